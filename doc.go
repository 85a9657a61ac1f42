/*
Package drivegate mediates file-storage operations between client applications
and a remote document-container service, translating HTTP-level expectations
(Content-Range, Range, If-None-Match, partial-content status codes) into the
upstream's session-oriented protocol.

The hard part is not the CRUD surface. It is the resumable chunked-upload
protocol and the byte-range / conditional-download negotiation layer, both of
which enforce chunk-size, ordering, and completion invariants that the
upstream will reject or silently corrupt if violated.

# Layout

The root package defines the data model (Item, ContentRange, ByteRange,
ConflictBehavior) and the Gateway interface, the single abstract capability
through which the upstream service is reached. The protocol logic is split by
concern:

	httprange  parses Range and Content-Range headers into typed intervals
	upload     chunk-size validation and the upload session coordinator
	download   range / conditional-GET negotiation
	listing    stable sorting and pagination of container listings
	server     the HTTP surface: routing, status mapping, problem responses
	backend    registry plus real Gateway implementations (Azure Blob Storage, Amazon S3)
	simple     resolves full item URIs against the registered gateways
	mocks      a deterministic in-memory Gateway for tests

The cmd tree holds drivegated, the API server, and drivegatecp, a copy tool
between local files and remote items. The nested testcontainers module runs
every gateway against emulated services (Azurite, LocalStack) under one
conformance suite.

Every blocking operation takes a context.Context and propagates its deadline
to the upstream unchanged. The layer performs no retries, polling, or
background work of its own; retry policy belongs to the transport the gateway
is constructed with.

# Usage

	gw, err := azure.NewGateway(azure.NewOptions())
	if err != nil {
		...
	}
	coord := upload.NewCoordinator(gw, upload.NewMemoryStore())
	session, err := coord.CreateSession(ctx, driveID, "reports/q3.pdf", drivegate.ConflictReplace)
*/
package drivegate

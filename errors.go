package drivegate

// Error is a type that allows for error constants below
type Error string

// Error returns a string representation of the error
func (e Error) Error() string { return string(e) }

const (
	// ErrInvalidRange - a Range or Content-Range header was syntactically malformed,
	// contained non-numeric fields, or had end < start
	ErrInvalidRange = Error("invalid byte range")

	// ErrSizeMismatch - the chunk payload length did not match the span declared by its Content-Range
	ErrSizeMismatch = Error("payload length does not match content range")

	// ErrChunkTooSmall - a non-final chunk was below the minimum chunk size
	ErrChunkTooSmall = Error("chunk below minimum size")

	// ErrChunkTooLarge - a chunk exceeded the maximum chunk size
	ErrChunkTooLarge = Error("chunk exceeds maximum size")

	// ErrEmptyChunk - a chunk submission carried no payload
	ErrEmptyChunk = Error("empty chunk payload")

	// ErrNotFound - the item could not be resolved by the upstream service
	ErrNotFound = Error("item not found")

	// ErrNotSatisfiable - the requested range starts at or beyond the item size
	ErrNotSatisfiable = Error("requested range not satisfiable")

	// ErrSessionExpired - the upload session passed its expiration and accepts no further chunks
	ErrSessionExpired = Error("upload session expired")

	// ErrInvalidPath - the item path failed validation
	ErrInvalidPath = Error("invalid item path")

	// ErrUpstreamFailure - the upstream call failed for a reason other than cancellation
	ErrUpstreamFailure = Error("upstream request failed")
)

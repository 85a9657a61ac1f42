/*
Package s3 AWS S3 gateway implementation

# Usage

Construct a gateway and, if URI resolution through the registry is wanted,
register it under its scheme:

	import (
	    "github.com/drivegate/drivegate/backend"
	    "github.com/drivegate/drivegate/backend/s3"
	)

	func useGateway(ctx context.Context) error {
	    gw, err := s3.NewGateway(ctx, s3.NewOptions())
	    if err != nil {
	        return err
	    }
	    backend.Register(s3.Scheme, gw)
	    ...
	}

# Authentication

NewOptions reads static credentials and endpoint overrides from the
environment:

	DRIVEGATE_S3_ACCESS_KEY_ID
	DRIVEGATE_S3_SECRET_ACCESS_KEY
	DRIVEGATE_S3_SESSION_TOKEN
	DRIVEGATE_S3_REGION
	DRIVEGATE_S3_ENDPOINT

With no static keys set, the standard AWS credential chain applies
(environment, shared config, instance roles). Setting DRIVEGATE_S3_ENDPOINT
also forces path-style addressing for MinIO and LocalStack.

# Chunked uploads

Upload sessions map onto S3 multipart uploads. The session handle encodes the
bucket, key, and upload ID; each chunk's part number derives from its byte
offset, and the final chunk lists and completes the uploaded parts. Chunks
for one session may therefore arrive through different processes.
*/
package s3

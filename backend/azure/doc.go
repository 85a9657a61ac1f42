/*
Package azure Microsoft Azure Blob Storage gateway implementation

# Usage

Construct a gateway and, if URI resolution through the registry is wanted,
register it under its scheme:

	import (
	    "github.com/drivegate/drivegate/backend"
	    "github.com/drivegate/drivegate/backend/azure"
	)

	func useGateway() error {
	    gw, err := azure.NewGateway(azure.NewOptions())
	    if err != nil {
	        return err
	    }
	    backend.Register(azure.Scheme, gw)
	    ...
	}

# Authentication

NewOptions reads credentials from the environment:

	DRIVEGATE_AZURE_TENANT_ID
	DRIVEGATE_AZURE_CLIENT_ID
	DRIVEGATE_AZURE_CLIENT_SECRET
	DRIVEGATE_AZURE_STORAGE_ACCOUNT
	DRIVEGATE_AZURE_STORAGE_ACCESS_KEY
	DRIVEGATE_AZURE_SERVICE_URL

Service-principal credentials take precedence over a shared storage key. With
neither set the client is anonymous, which is only useful against public
containers or an Azurite emulator.

# Chunked uploads

Upload sessions are stateless on the gateway side. The session handle encodes
the target container and blob; each chunk stages a block whose ID encodes the
chunk's byte offset, and the final chunk commits the full block list in offset
order. Chunks for one session may therefore arrive through different
processes.
*/
package azure

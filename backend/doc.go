/*
Package backend provides a registry allowing storage gateways to be looked up
by scheme name via backend.Register("some name", gateway) and
backend.Backend("some name").

Gateways need credentials, so construction is explicit; typically the process
entry point builds the configured gateway and registers it once:

	package main

	import (
	    "github.com/drivegate/drivegate/backend"
	    "github.com/drivegate/drivegate/backend/azure"
	)

	func main() {
	    gw, err := azure.NewGateway(nil)
	    if err != nil {
	        panic(err)
	    }
	    backend.Register(azure.Scheme, gw)

	    // THEN look it up wherever needed
	    item, err := backend.Backend(azure.Scheme).ItemMetadata(ctx, "container", "path/to/file.txt")
	    ...
	}

# Development

To create your own backend, implement drivegate.Gateway and register an
instance under a scheme of your choosing:

	package myexoticstore

	// IMPLEMENT drivegate.Gateway
	...

	backend.Register("exstore", &MyExoticStore{})

That's it. Simple.
*/
package backend

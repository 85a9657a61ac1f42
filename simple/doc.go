/*
Package simple resolves full item URIs against the registered gateways:

  - Azure Blob Storage: azure://mycontainer/path/to/file.txt
  - Amazon S3:          s3://mybucket/path/to/file.txt

# Usage

Register the gateways you need, then parse:

	package main

	import (
	    "github.com/drivegate/drivegate/backend"
	    "github.com/drivegate/drivegate/backend/azure"
	    "github.com/drivegate/drivegate/simple"
	)

	func doSomething(ctx context.Context) error {
	    gw, err := azure.NewGateway(nil)
	    if err != nil {
	        return err
	    }
	    backend.Register(azure.Scheme, gw)

	    ref, err := simple.ParseURI("azure://mycontainer/some/path/to/file.txt")
	    if err != nil {
	        return err
	    }

	    content, err := ref.Gateway.ItemContent(ctx, ref.Container, ref.Path, nil)
	    ...
	}

A gateway may also be registered under a more specific name such as
"azure://mycontainer/"; ParseURI always picks the longest registered prefix
matching the URI, so container-specific credentials win over scheme-wide
ones.
*/
package simple

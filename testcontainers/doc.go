/*
Package testcontainers runs the gateway implementations against emulated
storage services on the local Docker daemon: Azurite for the azure gateway and
LocalStack for the s3 gateway. Every gateway must pass the same conformance
suite, so a new backend only has to plug its register function into the suite
to be covered.
*/
package testcontainers

// Package integration provides end-to-end tests for sourcefetch.
// The tests serve statistics files and publication pages from a local HTTP
// server and run the fetch command against source lists pointing at it.
package integration

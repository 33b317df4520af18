// Package `boardsrv` implements server application for bulletin board over TCP.
//
// To compile board server locally, run from package directory:
//
//	go install .
//
// Or quickly launch server with command:
//
//	go run . -port 9999 -http :8080
//
// Clients talk plain text line protocol, every server message ends with `<END>` marker.
// When `-http` is set, read-only status routes and WebSocket endpoint `/ws` are served too.
// When `-archive-uri` is set, every posted message is copied into MongoDB collection.
package main

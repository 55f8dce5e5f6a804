// Package client contains the wallet's connections to things outside the
// chain: the local SQLite database, the backend REST API and the backend's
// gRPC health endpoint.
//
// Sentinel errors ErrUnavailable and ErrUnauthorized classify transport
// failures so callers can match them with errors.Is.
package client

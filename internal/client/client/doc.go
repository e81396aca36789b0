// Package client talks to the gophchat server over gRPC.
//
// GRPCClient fetches the server's public key, encrypts the shared password
// with it and logs in. The session token is attached to every later call by
// an interceptor. A login rejected because the server restarted with a new
// key is retried once with a freshly fetched key.
//
// gRPC statuses are mapped to the sentinel errors in errors.go so callers
// can match them with errors.Is.
package client

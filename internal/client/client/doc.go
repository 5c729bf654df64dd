// Package client talks to the healthsync backend.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic contract (see the Client interface): Fetch and Send
//     against category endpoints, Ping, Login, session export and restore.
//  2. RESTClient, a JSON-over-HTTP implementation with bearer tokens.
//  3. GRPCClient, an implementation over the healthsync.v1.RecordService
//     gRPC service using protobuf well-known types.
//
// Both implementations refresh an expired access token once and retry the
// call, and both attach the token to every authenticated request.
//
// # Error Handling
//
// Failures are classified for the offline logic above this package:
//   - *common.NetworkError: the remote could not be reached (dial failure,
//     reset, timeout). errors.Is(err, common.ErrNetwork) matches.
//   - *common.ServerError: the remote answered and rejected the request;
//     Status carries the HTTP status (or its gRPC equivalent).
//   - A context canceled by the caller is returned as is.
//
// Concurrency & Contexts
//
// Clients are safe for concurrent use. Every call honors the caller's context
// and is additionally bounded by the configured request timeout.
package client

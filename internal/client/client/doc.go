// Package client contains client-side building blocks for Time Capsule.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface) to talk
//     to the Time Capsule backend: identity provisioning, conversation
//     history, message delivery, session clearing, and diary CRUD.
//  2. A concrete HTTP/JSON implementation (see HTTPClient) that attaches the
//     device id header and no-cache headers to every request and maps
//     protocol outcomes to sentinel errors and SessionRejectedError.
//  3. Local persistence bootstrap utilities (InitDatabase, RunMigrations)
//     wiring an SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Common conditions are exposed as values callers can match: common.ErrUnavailable
// and common.ErrNotFound with errors.Is, and *SessionRejectedError with
// errors.As. The latter carries the server-issued replacement session id
// that drives the re-homing protocol.
//
// Concurrency & Contexts
//
// HTTPClient is safe for concurrent use. All operations accept
// context.Context and honor cancellation/timeouts.
package client

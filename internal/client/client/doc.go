// Package client contains the transport building blocks of the matchdeck
// client.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic backend contract (see the Client interface):
//     Discover, Swipe and Unmatch.
//  2. A concrete REST implementation (see HTTPClient) that attaches the
//     anti-forgery and bearer headers, decodes the loosely typed payloads of
//     the backend and maps failures to the sentinel errors of package common.
//  3. A realtime transport (see WSDialer) that opens one websocket per
//     conversation and exchanges whole JSON frames.
//  4. Local persistence bootstrap utilities (InitDatabase, RunMigrations)
//     that open an SQLite database and apply embedded goose migrations.
//
// # Error Handling
//
// Failures match with errors.Is against common.ErrTransport,
// common.ErrUnauthorized and common.ErrSessionExpired; non-2xx responses
// surface as *common.ServerError.
//
// Concurrency & Contexts
//
// HTTPClient and WSDialer are safe for concurrent use. All operations accept
// context.Context and honor cancellation and timeouts.
package client

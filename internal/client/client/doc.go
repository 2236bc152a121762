// Package client is the gateway to the election backend.
//
// # Overview
//
// The package provides:
//  1. The Client interface, one method per backend capability: voter login
//     and OTP verification, polls, vote casting, admin login, poll conduct,
//     tallies and the admin back-office calls (states, parties, voters).
//  2. HTTPClient, the REST implementation. It keeps the backend's paths and
//     field names bit-for-bit, carries the admin token and a request id from
//     the context, and performs no retries.
//  3. InitDatabase / RunMigrations, which open the local SQLite session
//     database and apply the embedded goose migrations.
//
// # Error Handling
//
// Every failure is normalised to one of the sentinel kinds below and can be
// matched with errors.Is: ErrValidation, ErrAuth, ErrConflict, ErrNotFound,
// ErrNetwork, ErrServer. Backend failures are *APIError values whose Error()
// is the backend's own message, unchanged.
package client

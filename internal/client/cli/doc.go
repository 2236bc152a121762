// Package cli provides the interactive ballot command-line client.
//
// It wires configuration, the session database, the backend client and the
// voting and admin flows behind a line-oriented REPL. A voter logs in with
// Aadhaar and phone, confirms the OTP, loads the poll for their state and
// votes once. An admin logs in against the backend and can conduct polls,
// register voters and parties, view the tally and reset polls.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// Output is produced by the Render* functions, which are pure over flow
// snapshots. See App, runREPL and the Render functions for details.
package cli

// Package tokenstore provides persistent storage for the session credential pair
// (access token + refresh token) used by the Kanban API client.
//
// Supports several storage backends with different security and deployment tradeoffs:
//   - File: Local JSON file with atomic writes and secure permissions
//   - Sealed: Like File, but the record is age-encrypted to an X25519 identity
//   - Keyring: OS-native credential storage (macOS Keychain, Windows Credential Manager, etc.)
//   - SQLite: Single-row key/value table in a local database
//   - Env: Read-only environment variable access (requires external secret management)
//   - Memory: Process-local storage for tests and embedding
//
// Every backend stores the pair as one record under the fixed key "tokens". A pair is
// written and read as a unit: Write rejects incomplete pairs and Read reports a
// malformed or partial record as absent rather than failing.
package tokenstore

// Package store provides SQLite-backed local state for the check-in client.
//
// It holds two things:
//   - Credentials: the single bearer token sent to the attendance service.
//     *Store implements api.TokenSource; ClearToken is the logout step.
//   - Attempts: an append-only journal of check-in attempts and their
//     outcome kind and message.
//
// # Ordering
//
// The journal orders by seq (insertion order), never by created_at, so
// listings are stable even when the wall clock steps backwards.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
package store

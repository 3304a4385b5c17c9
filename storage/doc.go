// Package storage persists agent chat history keyed by opaque run ids.
//
// Two implementations are provided:
//   - InMemoryStore: process local, for tests and one-off CLI sessions
//   - SQLStore: Postgres (lib/pq) or SQLite (go-sqlite3) backed
//
// Agents append the user query and the final answer of every response to the
// run of the current RunContext; the CLI lists previous runs to resume them.
package storage

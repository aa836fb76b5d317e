// Package database provides SQLite-based storage for brandscan.
//
// This package implements the HistoryDB, which stores:
//   - Completed extraction runs with their summary counters
//   - The pages and assets of every run, for cross-run lookups
//   - Background job states for the HTTP API
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
//
// The crawler itself never reads this database. History is written after a
// run finishes and is only consulted by the history command and the API.
package database

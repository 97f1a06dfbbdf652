// Package database provides SQLite-based storage for savescan.
//
// This package implements the AuditDB, which stores:
//   - Audit reports for historical analysis and comparison
//   - Flagged equipped items (legacy-format values and removed-item matches)
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
//
// Audit history powers the compare command: each run can be diffed against
// the stored baseline for the same save file to show which flagged items
// are new and which were resolved.
package database

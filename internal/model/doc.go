// Package model defines the core data structures used throughout savescan.
//
// This package contains the following main types:
//   - Hero: One decoded game-save record with ordered equipped slots
//   - EquippedItem: The tagged union of equipped-item representations
//   - RemovedItemSet: The deny list of retired item identifiers
//   - Report: The audit result structure with counters, matches, and findings
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (save, pipeline, report, database) need to
// use these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model

// Package save loads hero save-data documents from disk.
//
// A save document is a single JSON object mapping user identifiers to hero
// records. The loader walks the document with a token decoder instead of
// unmarshaling into a map because Go maps do not preserve JSON object order,
// and every downstream pass (census diagnostics, sampling) depends on
// document order being stable across runs.
//
// Design decision: parsing is strict where the record shape is concerned
// (missing equipped or inventory fails the whole load, as does trailing data
// after the top-level object) because the audit promises no partial results.
// A half-parsed document would produce counters that look authoritative but
// are not.
//
// The loader also computes a SHA3-256 digest of the raw bytes so audit
// history can tell whether a save file changed between runs.
package save

// Package main provides the entry point for the savescan CLI.
//
// Savescan is a diagnostic tool for hero save data. It audits equipped-item
// formats, detects retired items that are still equipped, and reports
// inventory totals with a sample of hero records.
//
// Usage:
//
//	savescan scan <save-file>
//	savescan compare <save-file>
//
// See --help for all available options.
package main

// main is the entry point for savescan.
func main() {
	Execute()
}

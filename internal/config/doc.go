// Package config provides configuration structures and utilities for savescan.
// It defines the main configuration options for auditing hero save files,
// the removed-item deny list, and report generation preferences.
package config

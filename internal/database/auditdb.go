package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/urachaosarena-lab/TerminalOne/internal/model"
)

// AuditDB provides SQLite-based storage for audit reports and flagged items.
// It manages connection pooling and provides methods for CRUD operations.
//
// Design decision: We use a single database file for all audited save files
// rather than one file per save. This keeps audit history queries and the
// compare command simple, and makes backup/restore a single-file operation.
type AuditDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures AuditDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates an AuditDB at the specified path.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*AuditDB, error) {
	dbPath := filepath.Join(dbDir, "savescan.db")

	// Check if we should create the database or require it to exist
	if !opts.CreateIfNotExists {
		// Check if database file exists
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		// Ensure directory exists
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Build connection string
	// We use modernc.org/sqlite which uses a different connection string format.
	// When CreateIfNotExists is false, we use mode=rw to prevent creating new files.
	// When CreateIfNotExists is true, we use mode=rwc to allow creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	// SQLite doesn't benefit from multiple connections for writes,
	// but multiple readers can improve performance
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	adb := &AuditDB{
		db:     db,
		dbPath: dbPath,
	}

	// Enable WAL mode if requested
	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	// Create tables
	if err := adb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return adb, nil
}

// Close closes the database connection.
func (adb *AuditDB) Close() error {
	return adb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (adb *AuditDB) createTables() error {
	schema := `
	-- Audit reports store complete audit results as JSON
	CREATE TABLE IF NOT EXISTS audit_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		save_file TEXT NOT NULL,
		run_id TEXT NOT NULL,
		digest TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		report_json TEXT NOT NULL,
		format_summary TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_reports_file ON audit_reports(save_file);
	CREATE INDEX IF NOT EXISTS idx_reports_digest ON audit_reports(digest);
	CREATE INDEX IF NOT EXISTS idx_reports_timestamp ON audit_reports(timestamp);

	-- Flagged items track individual equipped values needing attention
	CREATE TABLE IF NOT EXISTS flagged_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		audit_id INTEGER NOT NULL,
		user_id TEXT NOT NULL,
		slot TEXT NOT NULL,
		item_id TEXT,
		format TEXT NOT NULL,
		flag TEXT NOT NULL,
		FOREIGN KEY(audit_id) REFERENCES audit_reports(id)
	);

	CREATE INDEX IF NOT EXISTS idx_flagged_audit ON flagged_items(audit_id);
	CREATE INDEX IF NOT EXISTS idx_flagged_user ON flagged_items(user_id);
	CREATE INDEX IF NOT EXISTS idx_flagged_flag ON flagged_items(flag);
	`

	_, err := adb.db.ExecContext(context.Background(), schema)
	return err
}

// Flag values for flagged_items rows.
const (
	// FlagLegacy marks an equipped value still in the bare-string format.
	FlagLegacy = "legacy"

	// FlagRemoved marks an equipped item on the removed-item deny list.
	FlagRemoved = "removed"
)

// FlaggedItem represents a stored flagged equipped value.
type FlaggedItem struct {
	ID      int64
	AuditID int64
	UserID  string
	Slot    string
	ItemID  string
	Format  string
	Flag    string
}

// SaveAuditReport saves a complete audit report as JSON along with one
// flagged_items row per legacy value and removed-item match.
// Returns the database ID of the stored report.
//
// The report and its flagged items are written in one transaction so a
// stored audit is never missing its detail rows.
func (adb *AuditDB) SaveAuditReport(ctx context.Context, report *model.Report) (int64, error) {
	// Serialize report to JSON
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	// Create format summary
	formatSummary := map[string]int{
		"heroes":       report.TotalHeroes,
		"with_items":   report.HeroesWithItems,
		"legacy":       report.LegacyCount,
		"current":      report.CurrentCount,
		"unrecognized": report.UnrecognizedCount,
		"removed":      len(report.RemovedMatches),
		"inventory":    report.InventoryTotal,
	}
	summaryJSON, _ := json.Marshal(formatSummary) //nolint:errcheck,errchkjson // formatSummary is a simple map; Marshal won't fail

	tx, err := adb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	result, err := tx.ExecContext(ctx, `
	INSERT INTO audit_reports (save_file, run_id, digest, report_json, format_summary)
	VALUES (?, ?, ?, ?, ?)
	`,
		report.SaveFile,
		report.RunID,
		report.Digest,
		string(reportJSON),
		string(summaryJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save audit report: %w", err)
	}

	auditID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get audit report id: %w", err)
	}

	insertFlagged := `
	INSERT INTO flagged_items (audit_id, user_id, slot, item_id, format, flag)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	for _, item := range report.LegacyItems {
		if _, err := tx.ExecContext(ctx, insertFlagged,
			auditID, item.UserID, item.Slot, item.Value, model.FormatLegacy.String(), FlagLegacy,
		); err != nil {
			return 0, fmt.Errorf("failed to save flagged item: %w", err)
		}
	}

	for _, match := range report.RemovedMatches {
		if _, err := tx.ExecContext(ctx, insertFlagged,
			auditID, match.UserID, match.Slot, match.Item.ID, match.Item.Format.String(), FlagRemoved,
		); err != nil {
			return 0, fmt.Errorf("failed to save flagged item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit audit report: %w", err)
	}

	return auditID, nil
}

// GetFlaggedItems retrieves the flagged items stored with an audit report.
func (adb *AuditDB) GetFlaggedItems(ctx context.Context, auditID int64) ([]FlaggedItem, error) {
	query := `
	SELECT id, audit_id, user_id, slot, item_id, format, flag
	FROM flagged_items
	WHERE audit_id = ?
	ORDER BY id
	`

	rows, err := adb.db.QueryContext(ctx, query, auditID)
	if err != nil {
		return nil, fmt.Errorf("failed to query flagged items: %w", err)
	}
	defer rows.Close()

	var results []FlaggedItem
	for rows.Next() {
		var item FlaggedItem
		var itemID sql.NullString

		err := rows.Scan(
			&item.ID,
			&item.AuditID,
			&item.UserID,
			&item.Slot,
			&itemID,
			&item.Format,
			&item.Flag,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flagged item: %w", err)
		}

		item.ItemID = itemID.String
		results = append(results, item)
	}

	return results, rows.Err()
}

// GetLatestAuditReport retrieves the most recent audit report for a save file.
func (adb *AuditDB) GetLatestAuditReport(ctx context.Context, saveFile string) (*model.Report, error) {
	query := `
	SELECT report_json FROM audit_reports
	WHERE save_file = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`

	var reportJSON string
	err := adb.db.QueryRowContext(ctx, query, saveFile).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit report: %w", err)
	}

	var report model.Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// GetPreviousAuditReport retrieves the most recent audit report for a save
// file whose run ID differs from the given one. The compare command uses
// this to diff the audit it just produced against the stored baseline.
func (adb *AuditDB) GetPreviousAuditReport(ctx context.Context, saveFile, excludeRunID string) (*model.Report, error) {
	query := `
	SELECT report_json FROM audit_reports
	WHERE save_file = ? AND run_id != ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`

	var reportJSON string
	err := adb.db.QueryRowContext(ctx, query, saveFile, excludeRunID).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit report: %w", err)
	}

	var report model.Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// HasAuditForDigest checks if a byte-identical save file was already audited.
// Two audits with equal digests ran over the same input bytes, so the stored
// result is still valid.
func (adb *AuditDB) HasAuditForDigest(ctx context.Context, digest string) (bool, error) {
	if digest == "" {
		return false, nil
	}

	query := `
	SELECT COUNT(*) FROM audit_reports
	WHERE digest = ?
	`

	var count int
	err := adb.db.QueryRowContext(ctx, query, digest).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check audit digest: %w", err)
	}

	return count > 0, nil
}

// ListAuditedFiles returns a list of all audited save files.
func (adb *AuditDB) ListAuditedFiles(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT save_file FROM audit_reports
	ORDER BY save_file
	`

	rows, err := adb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list audited files: %w", err)
	}
	defer rows.Close()

	var files []string
	for rows.Next() {
		var file string
		if err := rows.Scan(&file); err != nil {
			return nil, fmt.Errorf("failed to scan save file: %w", err)
		}
		files = append(files, file)
	}

	return files, rows.Err()
}

// GetAuditHistory retrieves all audit reports for a save file.
func (adb *AuditDB) GetAuditHistory(ctx context.Context, saveFile string) ([]*model.Report, error) {
	query := `
	SELECT report_json FROM audit_reports
	WHERE save_file = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := adb.db.QueryContext(ctx, query, saveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit history: %w", err)
	}
	defer rows.Close()

	var reports []*model.Report
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}

		var report model.Report
		if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
			continue // Skip malformed reports
		}
		reports = append(reports, &report)
	}

	return reports, rows.Err()
}

// AuditReportMetadata contains summary information about an audit report.
// This is used for displaying audit history without loading the full report.
type AuditReportMetadata struct {
	// ID is the unique identifier of the audit report in the database.
	ID int64

	// SaveFile is the audited save-file path.
	SaveFile string

	// RunID is the audit run identifier.
	RunID string

	// Digest is the SHA3-256 digest of the audited bytes.
	Digest string

	// Timestamp is when the audit was performed.
	Timestamp time.Time

	// FormatSummary contains the census counters keyed by name.
	FormatSummary map[string]int
}

// GetAuditHistoryWithMetadata retrieves audit report metadata for a save file.
// This is more efficient than GetAuditHistory when only metadata is needed.
func (adb *AuditDB) GetAuditHistoryWithMetadata(ctx context.Context, saveFile string) ([]AuditReportMetadata, error) {
	query := `
	SELECT id, save_file, run_id, digest, timestamp, format_summary
	FROM audit_reports
	WHERE save_file = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := adb.db.QueryContext(ctx, query, saveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit history: %w", err)
	}
	defer rows.Close()

	var results []AuditReportMetadata
	for rows.Next() {
		var meta AuditReportMetadata
		var digest sql.NullString
		var timestamp string
		var summaryJSON sql.NullString

		if err := rows.Scan(&meta.ID, &meta.SaveFile, &meta.RunID, &digest, &timestamp, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.Digest = digest.String

		// Parse timestamp
		meta.Timestamp = parseTimestamp(timestamp)

		// Parse format summary
		if summaryJSON.Valid && summaryJSON.String != "" {
			if err := json.Unmarshal([]byte(summaryJSON.String), &meta.FormatSummary); err != nil {
				meta.FormatSummary = make(map[string]int)
			}
		} else {
			meta.FormatSummary = make(map[string]int)
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetAuditReportByID retrieves an audit report by its database ID.
func (adb *AuditDB) GetAuditReportByID(ctx context.Context, id int64) (*model.Report, error) {
	query := `
	SELECT report_json FROM audit_reports
	WHERE id = ?
	`

	var reportJSON string
	err := adb.db.QueryRowContext(ctx, query, id).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit report: %w", err)
	}

	var report model.Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	// Return zero time if no format matches
	// This is a fallback to avoid breaking functionality for edge cases
	return time.Time{}
}

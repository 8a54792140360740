package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/zombar/visibility/models"
)

// DB wraps the database connection and provides data access methods
type DB struct {
	conn *sql.DB
}

// Config contains database configuration
type Config struct {
	DSN string // PostgreSQL connection string
}

// New creates a new database connection
func New(config Config) (*DB, error) {
	conn, err := sql.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Configure connection pool
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn}

	// Run PostgreSQL migrations
	if err := Migrate(conn); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// DB returns the underlying database connection for metrics collection
func (db *DB) DB() *sql.DB {
	return db.conn
}

// SaveReport saves a coverage report and its entity results. The previous
// result set for the site is replaced atomically.
func (db *DB) SaveReport(report *models.CoverageReport) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	jsonData, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	query := `
		INSERT INTO visibility_reports (id, site_id, url, report, coverage_score, slug, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT(site_id) DO UPDATE SET
			url = excluded.url,
			report = excluded.report,
			coverage_score = excluded.coverage_score,
			slug = excluded.slug,
			updated_at = excluded.updated_at
	`

	_, err = tx.Exec(
		query,
		uuid.New().String(),
		report.SiteID,
		report.URL,
		string(jsonData),
		report.CoverageScore,
		report.Slug,
		report.CreatedAt,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	// Replace the previous entity result set for this site
	_, err = tx.Exec("DELETE FROM visibility_entity_results WHERE site_id = $1", report.SiteID)
	if err != nil {
		return fmt.Errorf("failed to delete old entity results: %w", err)
	}

	for _, result := range report.Results {
		id := result.ID
		if id == "" {
			id = uuid.New().String()
		}

		_, err = tx.Exec(`
			INSERT INTO visibility_entity_results (id, site_id, entity_name, entity_type, mention_count, gap, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			id,
			result.SiteID,
			result.EntityName,
			result.EntityType,
			result.MentionCount,
			result.Gap,
			result.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save entity result: %w", err)
		}
	}

	return tx.Commit()
}

// GetReportBySiteID retrieves the latest coverage report for a site.
// Returns nil without error when no report exists.
func (db *DB) GetReportBySiteID(siteID string) (*models.CoverageReport, error) {
	var jsonData string
	err := db.conn.QueryRow(
		"SELECT report FROM visibility_reports WHERE site_id = $1",
		siteID,
	).Scan(&jsonData)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query report: %w", err)
	}

	var report models.CoverageReport
	if err := json.Unmarshal([]byte(jsonData), &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}

	return &report, nil
}

// GetEntityResultsBySiteID retrieves the stored entity results for a site,
// most-mentioned first.
func (db *DB) GetEntityResultsBySiteID(siteID string) ([]models.EntityResult, error) {
	rows, err := db.conn.Query(`
		SELECT id, site_id, entity_name, entity_type, mention_count, gap, created_at
		FROM visibility_entity_results
		WHERE site_id = $1
		ORDER BY mention_count DESC
	`, siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entity results: %w", err)
	}
	defer rows.Close()

	results := []models.EntityResult{}
	for rows.Next() {
		var r models.EntityResult
		if err := rows.Scan(&r.ID, &r.SiteID, &r.EntityName, &r.EntityType, &r.MentionCount, &r.Gap, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entity result: %w", err)
		}
		results = append(results, r)
	}

	return results, rows.Err()
}

// SaveScoreSet saves a visibility score set for a site, replacing any
// previous one.
func (db *DB) SaveScoreSet(siteID, url string, scores *models.ScoreSet) error {
	jsonData, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("failed to marshal scores: %w", err)
	}

	query := `
		INSERT INTO visibility_score_sets (id, site_id, url, scores, analysis_method, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT(site_id) DO UPDATE SET
			url = excluded.url,
			scores = excluded.scores,
			analysis_method = excluded.analysis_method,
			updated_at = excluded.updated_at
	`

	_, err = db.conn.Exec(
		query,
		uuid.New().String(),
		siteID,
		url,
		string(jsonData),
		scores.AnalysisMethod,
		scores.CreatedAt,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save score set: %w", err)
	}

	return nil
}

// GetScoreSetBySiteID retrieves the stored score set for a site.
// Returns nil without error when none exists.
func (db *DB) GetScoreSetBySiteID(siteID string) (*models.ScoreSet, error) {
	var jsonData string
	err := db.conn.QueryRow(
		"SELECT scores FROM visibility_score_sets WHERE site_id = $1",
		siteID,
	).Scan(&jsonData)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query score set: %w", err)
	}

	var scores models.ScoreSet
	if err := json.Unmarshal([]byte(jsonData), &scores); err != nil {
		return nil, fmt.Errorf("failed to unmarshal score set: %w", err)
	}

	return &scores, nil
}

// List returns stored coverage reports ordered by last update, newest first.
func (db *DB) List(limit, offset int) ([]*models.CoverageReport, error) {
	rows, err := db.conn.Query(`
		SELECT report FROM visibility_reports
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	reports := []*models.CoverageReport{}
	for rows.Next() {
		var jsonData string
		if err := rows.Scan(&jsonData); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}

		var report models.CoverageReport
		if err := json.Unmarshal([]byte(jsonData), &report); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report: %w", err)
		}
		reports = append(reports, &report)
	}

	return reports, rows.Err()
}

// Count returns the number of stored coverage reports
func (db *DB) Count() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM visibility_reports").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return count, nil
}

// DeleteBySiteID removes the report, entity results, and score set for a
// site. Entity results go with the report via ON DELETE CASCADE.
func (db *DB) DeleteBySiteID(siteID string) error {
	result, err := db.conn.Exec("DELETE FROM visibility_reports WHERE site_id = $1", siteID)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}

	if _, err := db.conn.Exec("DELETE FROM visibility_score_sets WHERE site_id = $1", siteID); err != nil {
		return fmt.Errorf("failed to delete score set: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no report found for site %s", siteID)
	}

	return nil
}

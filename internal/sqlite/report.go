package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/civicwatch/civicwatch/internal/domain/report"
	"github.com/civicwatch/civicwatch/internal/repository"
)

// normalizedLocationSQL mirrors report.NormalizeLocation.
const normalizedLocationSQL = `CASE WHEN TRIM(COALESCE(location, ''), ' ' || char(9) || char(10) || char(13)) = '' THEN 'Unknown'
	ELSE TRIM(location, ' ' || char(9) || char(10) || char(13)) END`

// ReportRepository implements report.Repository for SQLite
type ReportRepository struct {
	db *DB
}

// NewReportRepository creates a new ReportRepository
func NewReportRepository(db *DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a new report document
func (r *ReportRepository) Create(ctx context.Context, doc *report.Document) error {
	if doc == nil || strings.TrimSpace(doc.ID) == "" || strings.TrimSpace(doc.OwnerID) == "" {
		return repository.ErrInvalidInput
	}
	status := doc.Status
	if status == "" {
		status = string(report.StatusNew)
	}

	query := `
		INSERT INTO reports (
			id, owner_id, type, description, location, status,
			created_at, created_at_client, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		doc.ID,
		doc.OwnerID,
		doc.Type,
		doc.Description,
		doc.Location,
		status,
		doc.ServerTime,
		doc.ClientMillis,
		time.Now(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to create report: %w", err)
	}

	doc.Status = status
	return nil
}

// Get retrieves a report document by ID
func (r *ReportRepository) Get(ctx context.Context, id string) (*report.Document, error) {
	query := `
		SELECT id, owner_id, type, description, location, status, created_at, created_at_client
		FROM reports
		WHERE id = ?
	`

	doc, err := scanDocument(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return doc, nil
}

// UpdateStatus sets the lifecycle status of a report. Writing the current
// status again succeeds.
func (r *ReportRepository) UpdateStatus(ctx context.Context, id string, status report.Status) error {
	query := `UPDATE reports SET status = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update report status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// List returns report documents matching the given options
func (r *ReportRepository) List(ctx context.Context, opts report.ListOptions) ([]report.Document, error) {
	query := `
		SELECT id, owner_id, type, description, location, status, created_at, created_at_client
		FROM reports
	`

	args := []interface{}{}
	conditions := []string{}

	if opts.OwnerID != "" {
		conditions = append(conditions, "owner_id = ?")
		args = append(args, opts.OwnerID)
	}
	if len(opts.Categories) > 0 {
		placeholders := make([]string, len(opts.Categories))
		for i, cat := range opts.Categories {
			placeholders[i] = "?"
			args = append(args, string(cat))
		}
		conditions = append(conditions, fmt.Sprintf("LOWER(TRIM(type)) IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(opts.Statuses) > 0 {
		placeholders := make([]string, len(opts.Statuses))
		for i, status := range opts.Statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if opts.Location != "" {
		conditions = append(conditions, normalizedLocationSQL+" = ?")
		args = append(args, report.NormalizeLocation(opts.Location))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY COALESCE(created_at_client, 0) DESC, id DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		if opts.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var docs []report.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating report rows: %w", err)
	}

	return docs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*report.Document, error) {
	var (
		doc          report.Document
		description  sql.NullString
		location     sql.NullString
		createdAt    sql.NullTime
		clientMillis sql.NullInt64
	)
	if err := row.Scan(
		&doc.ID,
		&doc.OwnerID,
		&doc.Type,
		&description,
		&location,
		&doc.Status,
		&createdAt,
		&clientMillis,
	); err != nil {
		return nil, err
	}
	if description.Valid {
		doc.Description = &description.String
	}
	if location.Valid {
		doc.Location = &location.String
	}
	if createdAt.Valid {
		t := createdAt.Time
		doc.ServerTime = &t
	}
	if clientMillis.Valid {
		ms := clientMillis.Int64
		doc.ClientMillis = &ms
	}
	return &doc, nil
}

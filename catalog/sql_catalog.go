package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// SQLCatalog implements Catalog over the visa_types table. Driver is
// "postgres" (lib/pq) or "sqlite" (modernc.org/sqlite).
type SQLCatalog struct {
	db     *sql.DB
	driver string
}

// NewSQLCatalog creates a catalog backed by db.
func NewSQLCatalog(db *sql.DB, driver string) *SQLCatalog {
	return &SQLCatalog{db: db, driver: driver}
}

// placeholders returns n bind markers in the driver's syntax.
func (c *SQLCatalog) placeholders(n int) string {
	marks := make([]string, n)
	for i := range marks {
		if c.driver == "sqlite" {
			marks[i] = "?"
		} else {
			marks[i] = fmt.Sprintf("$%d", i+1)
		}
	}
	return strings.Join(marks, ", ")
}

// EnsureSchema creates visa_types when it does not exist. Postgres
// deployments get the table from migrations; this is for sqlite.
func (c *SQLCatalog) EnsureSchema(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS visa_types (
			id     INTEGER PRIMARY KEY,
			code   TEXT NOT NULL UNIQUE,
			name   TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create visa_types: %w", err)
	}
	return nil
}

// ListActive returns active visa types ordered by ID.
func (c *SQLCatalog) ListActive(ctx context.Context) ([]VisaType, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, code, name, active
		FROM visa_types
		WHERE active = TRUE
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active visa types: %w", err)
	}
	defer rows.Close()

	visas := []VisaType{}
	for rows.Next() {
		var v VisaType
		if err := rows.Scan(&v.ID, &v.Code, &v.Name, &v.Active); err != nil {
			return nil, fmt.Errorf("failed to scan visa type: %w", err)
		}
		visas = append(visas, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating visa types: %w", err)
	}

	return visas, nil
}

// Seed upserts visa types by code in a single transaction.
func (c *SQLCatalog) Seed(ctx context.Context, visas []VisaType) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	stmt := `INSERT INTO visa_types (id, code, name, active) VALUES (` + c.placeholders(4) + `)
		ON CONFLICT (code) DO UPDATE SET name = excluded.name, active = excluded.active`

	for _, v := range visas {
		if _, err := tx.ExecContext(ctx, stmt, v.ID, v.Code, v.Name, v.Active); err != nil {
			return fmt.Errorf("failed to seed visa type %s: %w", v.Code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}
	return nil
}

// SetActive toggles a visa type's active flag.
func (c *SQLCatalog) SetActive(ctx context.Context, code string, active bool) error {
	marks := strings.Split(c.placeholders(2), ", ")
	result, err := c.db.ExecContext(ctx,
		`UPDATE visa_types SET active = `+marks[0]+` WHERE code = `+marks[1],
		active, code)
	if err != nil {
		return fmt.Errorf("failed to update visa type: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	return nil
}

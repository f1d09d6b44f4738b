package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Load returns the catalog stored in PostgreSQL, or the built-in one when
// databaseURL is empty or the table holds no rows.
func Load(ctx context.Context, databaseURL string) (Catalog, error) {
	if databaseURL == "" {
		return Default(), nil
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return Catalog{}, fmt.Errorf("catalog: create pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return Catalog{}, fmt.Errorf("catalog: ping database: %w", err)
	}
	if err := ensureSchema(ctx, pool); err != nil {
		return Catalog{}, err
	}

	styles, err := queryStyles(ctx, pool)
	if err != nil {
		return Catalog{}, err
	}
	if len(styles) == 0 {
		return Default(), nil
	}
	return New(styles), nil
}

func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS design_styles (
        name TEXT PRIMARY KEY,
        image_url TEXT NOT NULL DEFAULT '',
        position INTEGER NOT NULL DEFAULT 0,
        enabled BOOLEAN NOT NULL DEFAULT TRUE
    )`)
	if err != nil {
		return fmt.Errorf("catalog: create design_styles table: %w", err)
	}
	return nil
}

func queryStyles(ctx context.Context, pool *pgxpool.Pool) ([]DesignStyle, error) {
	rows, err := pool.Query(ctx, `SELECT name, image_url FROM design_styles WHERE enabled ORDER BY position, name`)
	if err != nil {
		return nil, fmt.Errorf("catalog: query styles: %w", err)
	}
	defer rows.Close()

	var styles []DesignStyle
	for rows.Next() {
		var s DesignStyle
		if err := rows.Scan(&s.Name, &s.ImageURL); err != nil {
			return nil, fmt.Errorf("catalog: scan style: %w", err)
		}
		styles = append(styles, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterate styles: %w", err)
	}
	return styles, nil
}

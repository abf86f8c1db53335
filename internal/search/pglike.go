package search

import (
	"database/sql"
	"fmt"
	"strings"
)

// PgLike implements Searcher with a case-insensitive title match in Postgres
// as the fallback path.
type PgLike struct {
	db *sql.DB
}

func NewPgLike(db *sql.DB) *PgLike {
	return &PgLike{db: db}
}

// Healthy always returns true: if Postgres is down, the whole app is down.
func (p *PgLike) Healthy() bool {
	return true
}

func (p *PgLike) Search(text string, limit int) ([]Result, int, error) {
	if strings.TrimSpace(text) == "" {
		return nil, 0, nil
	}
	if limit <= 0 {
		limit = 20
	}

	pattern := "%" + escapeLike(text) + "%"

	var total int
	if err := p.db.QueryRow(
		`SELECT COUNT(*) FROM vanes WHERE NOT draft AND title ILIKE $1`, pattern,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count vanes: %w", err)
	}

	rows, err := p.db.Query(`
		SELECT id, title
		FROM vanes
		WHERE NOT draft AND title ILIKE $1
		ORDER BY created_at DESC
		LIMIT $2
	`, pattern, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("search vanes: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Title); err != nil {
			return nil, 0, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate search results: %w", err)
	}
	return results, total, nil
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}

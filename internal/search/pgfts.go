package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true — if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query across websites and products using
// plainto_tsquery and ts_rank, with ts_headline for product snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}
	argN := 2

	var subQueries []string

	// Websites sub-query
	if q.FilterType == "" || q.FilterType == ResultWebsite {
		siteWhere := "to_tsvector('english', w.name) @@ " + tsQuery
		if q.FilterOwnerID != "" {
			siteWhere += fmt.Sprintf(" AND w.owner_id = $%d", argN)
			args = append(args, q.FilterOwnerID)
			argN++
		}
		if q.PublishedOnly {
			siteWhere += " AND w.published"
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'website'::text AS type, w.id, w.name AS title,
				''::text AS snippet,
				w.id AS website_id, w.owner_id, w.published,
				ts_rank(to_tsvector('english', w.name), %s) AS rank
			FROM websites w
			WHERE %s`, tsQuery, siteWhere))
	}

	// Products sub-query
	if q.FilterType == "" || q.FilterType == ResultProduct {
		prodWhere := "to_tsvector('english', pr.name || ' ' || pr.description) @@ " + tsQuery
		if q.FilterOwnerID != "" {
			prodWhere += fmt.Sprintf(" AND w.owner_id = $%d", argN)
			args = append(args, q.FilterOwnerID)
			argN++
		}
		if q.FilterWebsiteID != "" {
			prodWhere += fmt.Sprintf(" AND pr.website_id = $%d", argN)
			args = append(args, q.FilterWebsiteID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'product'::text AS type, pr.id, pr.name AS title,
				ts_headline('english', coalesce(pr.description, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				pr.website_id, w.owner_id, w.published,
				ts_rank(to_tsvector('english', pr.name || ' ' || pr.description), %s) AS rank
			FROM products pr
			JOIN websites w ON w.id = pr.website_id
			WHERE %s`, tsQuery, tsQuery, prodWhere))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	// Count query
	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	// Data query
	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, website_id, owner_id, published
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.WebsiteID, &r.OwnerID, &r.Published); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]WebsiteRecord, []ProductRecord, error) {
	siteRows, err := p.db.QueryContext(ctx, `
		SELECT id, name, owner_id, published
		FROM websites
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load websites: %w", err)
	}
	defer siteRows.Close()

	websites := make([]WebsiteRecord, 0)
	for siteRows.Next() {
		var w WebsiteRecord
		if err := siteRows.Scan(&w.ID, &w.Name, &w.OwnerID, &w.Published); err != nil {
			return nil, nil, fmt.Errorf("scan website: %w", err)
		}
		websites = append(websites, w)
	}
	if err := siteRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate websites: %w", err)
	}

	prodRows, err := p.db.QueryContext(ctx, `
		SELECT pr.id, pr.name, pr.description, pr.website_id, w.owner_id, pr.active
		FROM products pr
		JOIN websites w ON w.id = pr.website_id
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load products: %w", err)
	}
	defer prodRows.Close()

	products := make([]ProductRecord, 0)
	for prodRows.Next() {
		var pr ProductRecord
		if err := prodRows.Scan(&pr.ID, &pr.Name, &pr.Description, &pr.WebsiteID, &pr.OwnerID, &pr.Active); err != nil {
			return nil, nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, pr)
	}
	if err := prodRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate products: %w", err)
	}

	return websites, products, nil
}

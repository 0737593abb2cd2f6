package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NameSource looks up display names of rows of a company.
type NameSource interface {
	Names(ctx context.Context, table string, companyID uuid.UUID, ids []string) (map[string]string, error)
}

// nameColumns maps ID columns to the table holding their names.
var nameColumns = map[string]string{
	"user_id":     "users",
	"assignee_id": "users",
	"author_id":   "users",
	"reviewed_by": "users",
	"project_id":  "projects",
	"sprint_id":   "sprints",
	"team_id":     "teams",
}

// Resolver replaces ID columns of a Result with names.
type Resolver struct {
	names NameSource
}

// NewResolver creates a new Resolver.
func NewResolver(names NameSource) *Resolver {
	return &Resolver{names: names}
}

// Resolve rewrites res in place. Resolved columns lose their _id suffix;
// IDs without a match in the company are left as they are.
func (r *Resolver) Resolve(ctx context.Context, companyID uuid.UUID, res *Result) error {
	byTable := map[string][]int{}
	for i, col := range res.Columns {
		if table, ok := nameColumns[col]; ok {
			byTable[table] = append(byTable[table], i)
		}
	}

	for table, cols := range byTable {
		seen := map[string]bool{}
		var ids []string
		for _, row := range res.Rows {
			for _, c := range cols {
				if id, ok := row[c].(string); ok && !seen[id] {
					if _, err := uuid.Parse(id); err == nil {
						seen[id] = true
						ids = append(ids, id)
					}
				}
			}
		}
		if len(ids) == 0 {
			continue
		}

		names, err := r.names.Names(ctx, table, companyID, ids)
		if err != nil {
			return err
		}

		for _, row := range res.Rows {
			for _, c := range cols {
				if id, ok := row[c].(string); ok {
					if name, found := names[id]; found {
						row[c] = name
					}
				}
			}
		}
		for _, c := range cols {
			res.Columns[c] = strings.TrimSuffix(res.Columns[c], "_id")
		}
	}
	return nil
}

// PostgresNames implements NameSource with one query per table.
type PostgresNames struct {
	pool *pgxpool.Pool
}

// NewPostgresNames creates a new PostgresNames.
func NewPostgresNames(pool *pgxpool.Pool) *PostgresNames {
	return &PostgresNames{pool: pool}
}

// Names returns id to name for the given IDs of the company.
func (p *PostgresNames) Names(ctx context.Context, table string, companyID uuid.UUID, ids []string) (map[string]string, error) {
	switch table {
	case "users", "projects", "sprints", "teams":
	default:
		return nil, fmt.Errorf("no names for table %q", table)
	}

	rows, err := p.pool.Query(ctx,
		`SELECT id::text, name FROM `+table+` WHERE company_id = $1 AND id = ANY($2::uuid[])`,
		companyID, ids)
	if err != nil {
		return nil, fmt.Errorf("resolving %s names: %w", table, err)
	}
	defer rows.Close()

	names := make(map[string]string, len(ids))
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scanning %s name: %w", table, err)
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s names: %w", table, err)
	}
	return names, nil
}

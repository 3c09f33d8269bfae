package repository

import (
	"context"
	"fmt"

	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/model"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

// directoryTables maps a directory kind to its table. Table names cannot be
// bound as query parameters, so only these are ever interpolated.
var directoryTables = map[model.DirectoryKind]string{
	model.DirectoryPatients: "patients",
	model.DirectoryDoctors:  "doctors",
	model.DirectoryPhysios:  "physios",
}

// DirectoryRepository searches patients, doctors and physiotherapists.
type DirectoryRepository struct {
	*base.Repository
}

func NewDirectoryRepository(pool *pgxpool.Pool) *DirectoryRepository {
	return &DirectoryRepository{Repository: base.NewRepository(pool)}
}

// Search finds people whose name, phone or email contains query.
func (r *DirectoryRepository) Search(ctx context.Context, kind model.DirectoryKind, query string, limit int) ([]*model.DirectoryEntry, error) {
	table, ok := directoryTables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown directory %q", kind)
	}

	sql := `
		SELECT id, full_name, COALESCE(NULLIF(phone, ''), email, '')
		FROM ` + table + `
		WHERE full_name ILIKE '%' || $1 || '%'
		   OR phone ILIKE '%' || $1 || '%'
		   OR email ILIKE '%' || $1 || '%'
		ORDER BY full_name
		LIMIT $2
	`

	rows, err := r.Query(ctx, sql, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", table, err)
	}
	defer rows.Close()

	var entries []*model.DirectoryEntry
	for rows.Next() {
		var e model.DirectoryEntry
		if err := rows.Scan(&e.ID, &e.DisplayName, &e.Contact); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

// GetByID returns one directory entry, or nil if it does not exist.
func (r *DirectoryRepository) GetByID(ctx context.Context, kind model.DirectoryKind, id int64) (*model.DirectoryEntry, error) {
	table, ok := directoryTables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown directory %q", kind)
	}

	sql := `SELECT id, full_name, COALESCE(NULLIF(phone, ''), email, '') FROM ` + table + ` WHERE id = $1`

	var e model.DirectoryEntry
	err := r.QueryRow(ctx, sql, id).Scan(&e.ID, &e.DisplayName, &e.Contact)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s by id: %w", table, err)
	}
	return &e, nil
}

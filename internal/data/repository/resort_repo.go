package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"resort-booking/internal/data/entity"
	"resort-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type ResortRepository interface {
	Create(ctx context.Context, resort *entity.Resort) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Resort, error)
	FindAll(ctx context.Context, limit, offset int) ([]*entity.Resort, error)
	CountAll(ctx context.Context) (int64, error)
	SearchByLocation(ctx context.Context, term string) ([]*entity.Resort, error)
	Update(ctx context.Context, resort *entity.Resort) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type resortRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewResortRepository(db database.Querier, log *zap.Logger) ResortRepository {
	return &resortRepository{
		db:  db,
		log: log.With(zap.String("repository", "resort")),
	}
}

const resortColumns = `id, name, location, address, created_at, updated_at, deleted_at`

func scanResort(row pgx.Row) (*entity.Resort, error) {
	var resort entity.Resort
	err := row.Scan(
		&resort.ID,
		&resort.Name,
		&resort.Location,
		&resort.Address,
		&resort.CreatedAt,
		&resort.UpdatedAt,
		&resort.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &resort, nil
}

func (r *resortRepository) collect(rows pgx.Rows) ([]*entity.Resort, error) {
	defer rows.Close()

	var resorts []*entity.Resort
	for rows.Next() {
		resort, err := scanResort(rows)
		if err != nil {
			r.log.Error("Failed to scan resort row", zap.Error(err))
			return nil, fmt.Errorf("scan resort row: %w", err)
		}
		resorts = append(resorts, resort)
	}
	return resorts, rows.Err()
}

func (r *resortRepository) Create(ctx context.Context, resort *entity.Resort) error {
	query := `
		INSERT INTO resorts (id, name, location, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query,
		resort.ID,
		resort.Name,
		resort.Location,
		resort.Address,
		resort.CreatedAt,
		resort.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create resort", zap.Error(err), zap.String("name", resort.Name))
		return fmt.Errorf("create resort %s: %w", resort.Name, err)
	}

	return nil
}

func (r *resortRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Resort, error) {
	query := `SELECT ` + resortColumns + ` FROM resorts WHERE id = $1 AND deleted_at IS NULL`

	resort, err := scanResort(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find resort by ID", zap.Error(err), zap.String("resort_id", id.String()))
		return nil, fmt.Errorf("find resort by ID %s: %w", id, err)
	}

	return resort, nil
}

func (r *resortRepository) FindAll(ctx context.Context, limit, offset int) ([]*entity.Resort, error) {
	query := `
		SELECT ` + resortColumns + `
		FROM resorts
		WHERE deleted_at IS NULL
		ORDER BY name ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		r.log.Error("Failed to list resorts", zap.Error(err))
		return nil, fmt.Errorf("list resorts: %w", err)
	}

	return r.collect(rows)
}

func (r *resortRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM resorts WHERE deleted_at IS NULL`).Scan(&count); err != nil {
		r.log.Error("Failed to count resorts", zap.Error(err))
		return 0, fmt.Errorf("count resorts: %w", err)
	}
	return count, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes term match literally inside a LIKE pattern.
func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}

// SearchByLocation matches term case-insensitively anywhere in the location.
func (r *resortRepository) SearchByLocation(ctx context.Context, term string) ([]*entity.Resort, error) {
	query := `
		SELECT ` + resortColumns + `
		FROM resorts
		WHERE deleted_at IS NULL AND location ILIKE '%' || $1 || '%' ESCAPE '\'
		ORDER BY name ASC
	`

	rows, err := r.db.Query(ctx, query, escapeLike(term))
	if err != nil {
		r.log.Error("Failed to search resorts", zap.Error(err), zap.String("location", term))
		return nil, fmt.Errorf("search resorts: %w", err)
	}

	return r.collect(rows)
}

func (r *resortRepository) Update(ctx context.Context, resort *entity.Resort) error {
	query := `
		UPDATE resorts
		SET name = $2, location = $3, address = $4, updated_at = $5
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.Exec(ctx, query,
		resort.ID,
		resort.Name,
		resort.Location,
		resort.Address,
		resort.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to update resort", zap.Error(err), zap.String("resort_id", resort.ID.String()))
		return fmt.Errorf("update resort %s: %w", resort.ID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("resort %s not found", resort.ID)
	}

	return nil
}

func (r *resortRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `UPDATE resorts SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		r.log.Error("Failed to delete resort", zap.Error(err), zap.String("resort_id", id.String()))
		return fmt.Errorf("delete resort %s: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("resort %s not found", id)
	}

	return nil
}

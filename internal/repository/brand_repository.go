package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pesio-ai/be-brand-navigator/internal/database"
	"github.com/pesio-ai/be-brand-navigator/internal/errors"
	"github.com/pesio-ai/be-brand-navigator/internal/status"
)

// BrandRepository handles brand data operations in postgres.
type BrandRepository struct {
	db     *database.DB
	tracer trace.Tracer
}

// NewBrandRepository creates a new brand repository
func NewBrandRepository(db *database.DB, tracer trace.Tracer) *BrandRepository {
	return &BrandRepository{db: db, tracer: tracer}
}

const brandColumns = `id, owner_id, name, current_status, created_at, updated_at`

// Create inserts a brand together with its "created" history entry.
func (r *BrandRepository) Create(ctx context.Context, brand *Brand, entry *StatusHistoryEntry) error {
	return database.ExecuteAndTrace(ctx, r.tracer, "postgres.create_brand",
		[]attribute.KeyValue{attribute.String("owner_id", brand.OwnerID)},
		func(ctx context.Context) error {
			return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
				query := `
					INSERT INTO brands (owner_id, name, current_status)
					VALUES ($1, $2, $3)
					RETURNING id, created_at, updated_at
				`
				err := tx.QueryRow(ctx, query, brand.OwnerID, brand.Name, brand.CurrentStatus).
					Scan(&brand.ID, &brand.CreatedAt, &brand.UpdatedAt)
				if err != nil {
					return errors.Wrap(err, errors.ErrCodeInternal, "failed to create brand")
				}

				entry.BrandID = brand.ID
				return insertHistory(ctx, tx, entry)
			})
		})
}

// GetByID retrieves a brand.
func (r *BrandRepository) GetByID(ctx context.Context, id string) (*Brand, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.NotFound("brand", id)
	}

	brand := &Brand{}
	err := database.ExecuteAndTrace(ctx, r.tracer, "postgres.get_brand",
		[]attribute.KeyValue{attribute.String("brand_id", id)},
		func(ctx context.Context) error {
			query := `SELECT ` + brandColumns + ` FROM brands WHERE id = $1`
			err := scanBrand(r.db.QueryRow(ctx, query, id), brand)
			if err == pgx.ErrNoRows {
				return errors.NotFound("brand", id)
			}
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "failed to get brand")
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return brand, nil
}

// List retrieves brands with filtering and pagination.
func (r *BrandRepository) List(ctx context.Context, filter ListFilter) ([]*Brand, int64, error) {
	var (
		brands []*Brand
		total  int64
	)

	err := database.ExecuteAndTrace(ctx, r.tracer, "postgres.list_brands",
		[]attribute.KeyValue{attribute.String("owner_id", filter.OwnerID)},
		func(ctx context.Context) error {
			query := `SELECT ` + brandColumns + ` FROM brands WHERE owner_id = $1`
			countQuery := `SELECT COUNT(*) FROM brands WHERE owner_id = $1`

			args := []any{filter.OwnerID}
			argCount := 2

			if filter.Status != nil {
				query += fmt.Sprintf(" AND current_status = $%d", argCount)
				countQuery += fmt.Sprintf(" AND current_status = $%d", argCount)
				args = append(args, *filter.Status)
				argCount++
			}

			query += " ORDER BY created_at DESC, id"
			query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1)

			if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "failed to count brands")
			}

			rows, err := r.db.Query(ctx, query, append(args, filter.Limit, filter.Offset)...)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "failed to list brands")
			}
			defer rows.Close()

			brands = make([]*Brand, 0)
			for rows.Next() {
				brand := &Brand{}
				if err := scanBrand(rows, brand); err != nil {
					return errors.Wrap(err, errors.ErrCodeInternal, "failed to scan brand")
				}
				brands = append(brands, brand)
			}
			if err := rows.Err(); err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "failed to list brands")
			}
			return nil
		})
	if err != nil {
		return nil, 0, err
	}
	return brands, total, nil
}

// Transition moves a brand from one status to another and records the
// history entry in the same transaction. The update only applies while the
// stored status still equals from; otherwise a conflict is returned.
func (r *BrandRepository) Transition(ctx context.Context, id string, from, to status.BrandStatus, entry *StatusHistoryEntry) (*Brand, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.NotFound("brand", id)
	}

	brand := &Brand{}
	err := database.ExecuteAndTrace(ctx, r.tracer, "postgres.transition_brand",
		[]attribute.KeyValue{
			attribute.String("brand_id", id),
			attribute.String("status_before", string(from)),
			attribute.String("status_after", string(to)),
		},
		func(ctx context.Context) error {
			return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
				query := `
					UPDATE brands
					SET current_status = $3,
					    updated_at = NOW()
					WHERE id = $1 AND current_status = $2
					RETURNING ` + brandColumns

				err := scanBrand(tx.QueryRow(ctx, query, id, from, to), brand)
				if err == pgx.ErrNoRows {
					var exists bool
					if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM brands WHERE id = $1)`, id).Scan(&exists); err != nil {
						return errors.Wrap(err, errors.ErrCodeInternal, "failed to check brand")
					}
					if !exists {
						return errors.NotFound("brand", id)
					}
					return errors.New(errors.ErrCodeConflict,
						fmt.Sprintf("brand status changed concurrently, expected '%s'", from))
				}
				if err != nil {
					return errors.Wrap(err, errors.ErrCodeInternal, "failed to update brand status")
				}

				entry.BrandID = id
				return insertHistory(ctx, tx, entry)
			})
		})
	if err != nil {
		return nil, err
	}
	return brand, nil
}

// Delete removes a brand and, through the foreign key, its history.
func (r *BrandRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.NotFound("brand", id)
	}

	return database.ExecuteAndTrace(ctx, r.tracer, "postgres.delete_brand",
		[]attribute.KeyValue{attribute.String("brand_id", id)},
		func(ctx context.Context) error {
			tag, err := r.db.Exec(ctx, `DELETE FROM brands WHERE id = $1`, id)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "failed to delete brand")
			}
			if tag.RowsAffected() == 0 {
				return errors.NotFound("brand", id)
			}
			return nil
		})
}

// ── scan helpers ──────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBrand(sc rowScanner, brand *Brand) error {
	return sc.Scan(
		&brand.ID,
		&brand.OwnerID,
		&brand.Name,
		&brand.CurrentStatus,
		&brand.CreatedAt,
		&brand.UpdatedAt,
	)
}

func insertHistory(ctx context.Context, db database.DBTX, entry *StatusHistoryEntry) error {
	var metadataJSON []byte
	if entry.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(entry.Metadata)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal history metadata")
		}
	}

	query := `
		INSERT INTO brand_status_history
		    (brand_id, action, status_before, status_after, performed_by, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, performed_at
	`

	err := db.QueryRow(ctx, query,
		entry.BrandID,
		entry.Action,
		entry.StatusBefore,
		entry.StatusAfter,
		entry.PerformedBy,
		metadataJSON,
	).Scan(&entry.ID, &entry.PerformedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to record status history")
	}
	return nil
}

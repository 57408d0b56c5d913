package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pesio-ai/be-brand-navigator/internal/database"
	"github.com/pesio-ai/be-brand-navigator/internal/errors"
)

// StatusHistoryRepository reads the immutable brand status history. Rows are
// written by BrandRepository inside the status-changing transaction.
type StatusHistoryRepository struct {
	db     *database.DB
	tracer trace.Tracer
}

// NewStatusHistoryRepository creates a new StatusHistoryRepository.
func NewStatusHistoryRepository(db *database.DB, tracer trace.Tracer) *StatusHistoryRepository {
	return &StatusHistoryRepository{db: db, tracer: tracer}
}

// GetByBrandID returns the full history for a brand ordered oldest-first.
func (r *StatusHistoryRepository) GetByBrandID(ctx context.Context, brandID string) ([]*StatusHistoryEntry, error) {
	if _, err := uuid.Parse(brandID); err != nil {
		return nil, errors.NotFound("brand", brandID)
	}

	var entries []*StatusHistoryEntry
	err := database.ExecuteAndTrace(ctx, r.tracer, "postgres.get_status_history",
		[]attribute.KeyValue{attribute.String("brand_id", brandID)},
		func(ctx context.Context) error {
			query := `
				SELECT id, brand_id, action, status_before, status_after,
				       performed_by, performed_at, metadata
				FROM brand_status_history
				WHERE brand_id = $1
				ORDER BY performed_at ASC, id
			`

			rows, err := r.db.Query(ctx, query, brandID)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "failed to get status history")
			}
			defer rows.Close()

			entries, err = scanHistoryRows(rows)
			return err
		})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func scanHistoryRows(rows pgx.Rows) ([]*StatusHistoryEntry, error) {
	entries := make([]*StatusHistoryEntry, 0)
	for rows.Next() {
		entry := &StatusHistoryEntry{}
		var metadataJSON []byte

		err := rows.Scan(
			&entry.ID,
			&entry.BrandID,
			&entry.Action,
			&entry.StatusBefore,
			&entry.StatusAfter,
			&entry.PerformedBy,
			&entry.PerformedAt,
			&metadataJSON,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan status history entry")
		}

		if metadataJSON != nil {
			if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal history metadata")
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read status history")
	}
	return entries, nil
}

package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/novinrelay/lead-relay/internal/model"
)

// DeliveriesRepository persists one row per SMS attempt that passed the dedup
// gate, sent or failed.
type DeliveriesRepository interface {
	Insert(ctx context.Context, d model.Delivery) error
	ListRecent(ctx context.Context, phone string, status model.DeliveryStatus, limit, offset int) ([]model.Delivery, error)
}

type DeliveriesRepositoryImpl struct {
	db *sqlx.DB
}

func NewDeliveriesRepository(db *sqlx.DB) *DeliveriesRepositoryImpl {
	return &DeliveriesRepositoryImpl{db: db}
}

func (r *DeliveriesRepositoryImpl) Insert(ctx context.Context, d model.Delivery) error {
	const q = `
		INSERT INTO deliveries
		    (id, phone, actor_id, pattern_code, status, provider_status, error_detail, created_at)
		VALUES
		    (?,  ?,     ?,        ?,            ?,      ?,               ?,            NOW())
	`
	_, err := r.db.ExecContext(ctx, q,
		d.ID, d.Phone, d.ActorID, d.PatternCode, d.Status.String(), d.ProviderStatus, d.ErrorDetail,
	)
	return err
}

// ListRecent returns deliveries newest first, optionally filtered by phone
// and/or status.
func (r *DeliveriesRepositoryImpl) ListRecent(ctx context.Context, phone string, status model.DeliveryStatus, limit, offset int) ([]model.Delivery, error) {
	q := `
		SELECT id, phone, actor_id, pattern_code, status, provider_status, error_detail, created_at
		FROM deliveries
		WHERE 1=1
	`
	args := make([]any, 0, 4)
	if phone != "" {
		q += " AND phone = ?"
		args = append(args, phone)
	}
	if status != "" {
		q += " AND status = ?"
		args = append(args, status.String())
	}
	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var out []model.Delivery
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

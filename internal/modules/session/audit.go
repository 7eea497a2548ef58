// README: Delivery state audit trail (PostgreSQL or no-op).
package session

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"riderhub/internal/modules/delivery"
	"riderhub/internal/types"
)

type AuditEvent struct {
	OrderID    types.ID        `json:"order_id"`
	DriverID   types.ID        `json:"driver_id"`
	FromStatus delivery.Status `json:"from_status"`
	ToStatus   delivery.Status `json:"to_status"`
	ActorType  string          `json:"actor_type"`
	CreatedAt  time.Time       `json:"created_at"`
}

type AuditLog interface {
	Append(ctx context.Context, e AuditEvent) error
	ListByOrder(ctx context.Context, orderID types.ID) ([]AuditEvent, error)
}

// NopAudit keeps nothing; timelines read back empty.
type NopAudit struct{}

func (NopAudit) Append(context.Context, AuditEvent) error { return nil }

func (NopAudit) ListByOrder(context.Context, types.ID) ([]AuditEvent, error) { return nil, nil }

type PGAuditLog struct {
	db *pgxpool.Pool
}

func NewPGAuditLog(db *pgxpool.Pool) *PGAuditLog {
	return &PGAuditLog{db: db}
}

func (a *PGAuditLog) Append(ctx context.Context, e AuditEvent) error {
	_, err := a.db.Exec(ctx, `
		INSERT INTO delivery_state_events (
			order_id, driver_id, from_status, to_status, actor_type, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.OrderID),
		string(e.DriverID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorType,
		e.CreatedAt,
	)
	return err
}

func (a *PGAuditLog) ListByOrder(ctx context.Context, orderID types.ID) ([]AuditEvent, error) {
	rows, err := a.db.Query(ctx, `
		SELECT order_id, driver_id, from_status, to_status, actor_type, created_at
		FROM delivery_state_events
		WHERE order_id = $1
		ORDER BY id ASC`, string(orderID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditEvent
	for rows.Next() {
		var e AuditEvent
		if err := rows.Scan(&e.OrderID, &e.DriverID, &e.FromStatus, &e.ToStatus, &e.ActorType, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

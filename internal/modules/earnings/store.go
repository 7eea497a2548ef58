// README: Earnings store backed by PostgreSQL.
package earnings

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"

	"riderhub/internal/types"
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Append(ctx context.Context, r Record) error {
	var rating *int
	if r.CustomerRating != nil {
		v := *r.CustomerRating
		rating = &v
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO earnings_records (
			id, order_id, driver_id, recorded_at,
			base, tip, bonus, total, currency,
			distance_km, duration_minutes, customer_rating, status
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9,
			$10, $11, $12, $13
		)
		ON CONFLICT (id) DO NOTHING`,
		string(r.ID),
		string(r.OrderID),
		string(r.DriverID),
		r.At,
		r.Base.Amount, r.Tip.Amount, r.Bonus.Amount, r.Total.Amount, r.Total.Currency,
		r.DistanceKm,
		r.DurationMinutes,
		rating,
		string(r.Status),
	)
	return err
}

func (s *PGStore) ListByDriver(ctx context.Context, driverID types.ID) ([]Record, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, order_id, driver_id, recorded_at,
		       base, tip, bonus, total, currency,
		       distance_km, duration_minutes, customer_rating, status
		FROM earnings_records
		WHERE driver_id = $1
		ORDER BY recorded_at ASC, id ASC`, string(driverID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var currency string
		var rating sql.NullInt32
		if err := rows.Scan(
			&r.ID, &r.OrderID, &r.DriverID, &r.At,
			&r.Base.Amount, &r.Tip.Amount, &r.Bonus.Amount, &r.Total.Amount, &currency,
			&r.DistanceKm, &r.DurationMinutes, &rating, &r.Status,
		); err != nil {
			return nil, err
		}
		r.Base.Currency = currency
		r.Tip.Currency = currency
		r.Bonus.Currency = currency
		r.Total.Currency = currency
		if rating.Valid {
			v := int(rating.Int32)
			r.CustomerRating = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

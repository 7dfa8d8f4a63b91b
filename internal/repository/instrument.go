package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/marketloft/sessiongate/internal/model"
)

// insertBatchSize keeps each multi-row INSERT under the Postgres
// placeholder limit (13 columns per row).
const insertBatchSize = 500

const defaultQueryLimit = 1000

type InstrumentRepository interface {
	// ReplaceAll deletes every row and bulk-inserts the new set. Run it
	// inside a transaction (WithTx) so a failed insert rolls the delete
	// back and the mirror is never left half-populated.
	ReplaceAll(ctx context.Context, instruments []model.Instrument) (int64, error)
	// MaxUpdatedAt returns the most recent updated_at in the fixed
	// "YYYY-MM-DD HH:mm:ss" layout, or "" when the mirror is empty.
	MaxUpdatedAt(ctx context.Context) (string, error)
	Query(ctx context.Context, filter model.InstrumentFilter) ([]model.Instrument, error)
	Count(ctx context.Context) (int, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) InstrumentRepository
}

// instrumentDB adds named exec support for the batched insert.
type instrumentDB interface {
	sqlxDB
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

type instrumentRepo struct {
	db instrumentDB
}

func NewInstrumentRepository(db *sqlx.DB) InstrumentRepository {
	return &instrumentRepo{db: db}
}

func (r *instrumentRepo) WithTx(tx *sqlx.Tx) InstrumentRepository {
	return &instrumentRepo{db: tx}
}

func (r *instrumentRepo) ReplaceAll(ctx context.Context, instruments []model.Instrument) (int64, error) {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM instruments`); err != nil {
		return 0, fmt.Errorf("clear instruments: %w", err)
	}

	var inserted int64
	for start := 0; start < len(instruments); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(instruments) {
			end = len(instruments)
		}

		result, err := r.db.NamedExecContext(ctx, `
			INSERT INTO instruments (
				instrument_token, exchange_token, tradingsymbol, name, last_price,
				expiry, strike, tick_size, lot_size, instrument_type, segment,
				exchange, updated_at
			) VALUES (
				:instrument_token, :exchange_token, :tradingsymbol, :name, :last_price,
				:expiry, :strike, :tick_size, :lot_size, :instrument_type, :segment,
				:exchange, :updated_at
			)
		`, instruments[start:end])
		if err != nil {
			return 0, fmt.Errorf("insert instruments [%d:%d]: %w", start, end, err)
		}

		n, err := result.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += n
	}

	return inserted, nil
}

func (r *instrumentRepo) MaxUpdatedAt(ctx context.Context) (string, error) {
	var max string
	err := r.db.GetContext(ctx, &max, `
		SELECT COALESCE(MAX(updated_at), '') FROM instruments
	`)
	return max, err
}

func (r *instrumentRepo) Query(ctx context.Context, filter model.InstrumentFilter) ([]model.Instrument, error) {
	where := []string{"1=1"}
	args := []interface{}{}

	add := func(clause, value string) {
		if value != "" {
			args = append(args, value)
			where = append(where, fmt.Sprintf(clause, len(args)))
		}
	}

	add("exchange = $%d", filter.Exchange)
	add("tradingsymbol = $%d", filter.Tradingsymbol)
	add("name ILIKE '%%' || $%d || '%%'", filter.Name)
	add("expiry = $%d", filter.Expiry)
	add("strike::text = $%d", filter.Strike)
	add("segment = $%d", filter.Segment)
	add("instrument_type = $%d", filter.InstrumentType)

	limit := filter.Limit
	if limit <= 0 || limit > defaultQueryLimit {
		limit = defaultQueryLimit
	}
	args = append(args, limit)
	limitClause := fmt.Sprintf("LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	offsetClause := fmt.Sprintf("OFFSET $%d", len(args))

	query := fmt.Sprintf(`
		SELECT * FROM instruments
		WHERE %s
		ORDER BY exchange, tradingsymbol
		%s %s
	`, strings.Join(where, " AND "), limitClause, offsetClause)

	var instruments []model.Instrument
	if err := r.db.SelectContext(ctx, &instruments, query, args...); err != nil {
		return nil, err
	}
	return instruments, nil
}

func (r *instrumentRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM instruments`)
	return count, err
}

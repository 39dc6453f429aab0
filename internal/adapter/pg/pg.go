package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/olyamironova/trading-venue/internal/domain"
	"github.com/olyamironova/trading-venue/internal/port"
)

var _ port.Repository = (*PgRepo)(nil)

// PgRepo is the write-through store behind the engine. Amounts are
// persisted as text so the exact integer representation survives the
// round trip untouched.
type PgRepo struct {
	pool *pgxpool.Pool
}

// call Close when finished working with the database.
func NewPgRepo(ctx context.Context, dsn string) (*PgRepo, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	return &PgRepo{pool: pool}, nil
}

func (p *PgRepo) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

func (p *PgRepo) SaveMarket(ctx context.Context, m *domain.Market) error {
	if m == nil {
		return errors.New("nil market")
	}
	_, err := p.pool.Exec(ctx, `
INSERT INTO markets(id, instrument_id, status)
VALUES($1,$2,$3)
ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status
`, m.ID, m.InstrumentID, string(m.Status))
	return err
}

func (p *PgRepo) SaveOrder(ctx context.Context, o *domain.Order) error {
	if o == nil {
		return errors.New("nil order")
	}
	return p.saveOrder(ctx, p.pool, o)
}

// SaveExecution persists the outcome of one submit call in a single
// transaction: either the whole match cycle is stored or none of it is.
func (p *PgRepo) SaveExecution(ctx context.Context, taker *domain.Order, makers []*domain.Order, trades []*domain.Trade) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if err := p.saveOrder(ctx, tx, taker); err != nil {
		return err
	}
	for _, m := range makers {
		if err := p.saveOrder(ctx, tx, m); err != nil {
			return err
		}
	}
	for _, t := range trades {
		if _, err := tx.Exec(ctx, `
INSERT INTO trades(id, market_id, buy_order_id, sell_order_id, price, quantity, executed_at)
VALUES($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO NOTHING
`, t.ID, t.MarketID, t.BuyOrderID, t.SellOrderID, t.Price.String(), t.Quantity.String(), t.ExecutedAt); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	committed = true
	return nil
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (p *PgRepo) saveOrder(ctx context.Context, q execer, o *domain.Order) error {
	var price *string
	if o.Price != nil {
		s := o.Price.String()
		price = &s
	}
	_, err := q.Exec(ctx, `
INSERT INTO orders(id, market_id, trader_id, side, type, time_in_force, price, quantity, remaining, status, created_at, sequence)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
  remaining = EXCLUDED.remaining,
  status = EXCLUDED.status
`, o.ID, o.MarketID, o.TraderID, string(o.Side), string(o.Type), string(o.TimeInForce),
		price, o.Quantity.String(), o.Remaining.String(), string(o.Status), o.CreatedAt, o.Sequence)
	return err
}

func (p *PgRepo) LoadMarkets(ctx context.Context) ([]*domain.Market, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, instrument_id, status FROM markets`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.Market
	for rows.Next() {
		var m domain.Market
		var status string
		if err := rows.Scan(&m.ID, &m.InstrumentID, &status); err != nil {
			return nil, err
		}
		m.Status = domain.MarketStatus(status)
		res = append(res, &m)
	}
	return res, rows.Err()
}

// LoadOpenOrders returns live orders for a market ordered by created_at
// ASC (FIFO).
func (p *PgRepo) LoadOpenOrders(ctx context.Context, marketID string) ([]*domain.Order, error) {
	rows, err := p.pool.Query(ctx, `
SELECT id, market_id, trader_id, side, type, time_in_force, price, quantity, remaining, status, created_at, sequence
FROM orders
WHERE market_id = $1 AND status IN ('OPEN','PARTIALLY_FILLED')
ORDER BY created_at ASC, sequence ASC
`, marketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, o)
	}
	return res, rows.Err()
}

func scanOrder(rows pgx.Rows) (*domain.Order, error) {
	var o domain.Order
	var side, typ, tif, status string
	var price *string
	var quantity, remaining string
	var createdAt time.Time
	if err := rows.Scan(&o.ID, &o.MarketID, &o.TraderID, &side, &typ, &tif, &price, &quantity, &remaining, &status, &createdAt, &o.Sequence); err != nil {
		return nil, err
	}
	o.Side = domain.Side(side)
	o.Type = domain.OrderType(typ)
	o.TimeInForce = domain.TimeInForce(tif)
	o.Status = domain.OrderStatus(status)
	o.CreatedAt = createdAt
	if price != nil {
		pa, err := domain.ParseAmount(*price)
		if err != nil {
			return nil, err
		}
		o.Price = &pa
	}
	var err error
	if o.Quantity, err = domain.ParseAmount(quantity); err != nil {
		return nil, err
	}
	if o.Remaining, err = domain.ParseAmount(remaining); err != nil {
		return nil, err
	}
	return &o, nil
}

package storage

import (
	"context"
	"database/sql"
	"debtslayer/app/service/ledger"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

var ErrInvalidAmount = errors.New("deposit amount must be positive")

func (s *Store) SaveDeposit(ctx context.Context, amount int64, source string, ts time.Time) (ledger.Deposit, error) {
	if amount <= 0 {
		return ledger.Deposit{}, ErrInvalidAmount
	}

	res, err := s.exec(ctx, `INSERT INTO deposits (amount, source, created_at) VALUES (?, ?, ?)`,
		amount, source, toMillis(ts))
	if err != nil {
		return ledger.Deposit{}, oops.Errorf("insert deposit: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return ledger.Deposit{}, oops.Errorf("deposit id: %w", err)
	}

	s.publishDeposits(ctx)

	return ledger.Deposit{
		ID:        id,
		Amount:    amount,
		Source:    source,
		Timestamp: fromMillis(toMillis(ts)),
	}, nil
}

// Deposits returns every deposit, newest first.
func (s *Store) Deposits(ctx context.Context) ([]ledger.Deposit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, amount, source, created_at FROM deposits ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, oops.Errorf("query deposits: %w", err)
	}
	defer rows.Close()

	var result []ledger.Deposit
	for rows.Next() {
		var (
			d  ledger.Deposit
			ts int64
		)
		if err = rows.Scan(&d.ID, &d.Amount, &d.Source, &ts); err != nil {
			return nil, oops.Errorf("scan deposit: %w", err)
		}
		d.Timestamp = fromMillis(ts)
		result = append(result, d)
	}

	return result, rows.Err()
}

// DeleteLastDeposit removes the most recent deposit. The bool is false when there was none.
func (s *Store) DeleteLastDeposit(ctx context.Context) (ledger.Deposit, bool, error) {
	var (
		d  ledger.Deposit
		ts int64
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT id, amount, source, created_at FROM deposits ORDER BY created_at DESC, id DESC LIMIT 1`).
		Scan(&d.ID, &d.Amount, &d.Source, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Deposit{}, false, nil
	}
	if err != nil {
		return ledger.Deposit{}, false, oops.Errorf("select last deposit: %w", err)
	}
	d.Timestamp = fromMillis(ts)

	if _, err = s.DeleteDeposit(ctx, d.ID); err != nil {
		return ledger.Deposit{}, false, err
	}

	return d, true, nil
}

func (s *Store) DeleteDeposit(ctx context.Context, id int64) (bool, error) {
	res, err := s.exec(ctx, `DELETE FROM deposits WHERE id = ?`, id)
	if err != nil {
		return false, oops.Errorf("delete deposit %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		s.publishDeposits(ctx)
	}

	return n > 0, nil
}

// SubscribeDeposits pushes the full deposit list after every change. Subscribe first,
// then read Deposits once, so no change between the two is missed.
func (s *Store) SubscribeDeposits() (<-chan []ledger.Deposit, func()) {
	return s.deposits.Subscribe()
}

func (s *Store) publishDeposits(ctx context.Context) {
	list, err := s.Deposits(ctx)
	if err != nil {
		slog.Error("Failed to reload deposits", "error", err)
		return
	}

	s.deposits.Publish(list)
}

package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"stocks-simulator/models"
)

// Buy purchases shares of symbol at the current price. The transaction
// record, the portfolio entry and the cash debit are committed together.
func (s *Service) Buy(ctx context.Context, accountID uint, symbol, shares string) (models.Transaction, error) {
	l := s.logger.WithFields(logrus.Fields{
		"method":          "Buy",
		"param_accountID": accountID,
		"param_symbol":    symbol,
		"param_shares":    shares,
	})
	l.Infof("Buy requested")

	symbol, n, err := parseOrder(symbol, shares, "buy")
	if err != nil {
		logFailure(l, err)
		return models.Transaction{}, err
	}

	q, err := s.lookup(ctx, s.quotes, symbol)
	if err != nil {
		logFailure(l, err)
		return models.Transaction{}, err
	}
	cost := q.Price.Mul(decimal.NewFromInt(n))

	var record models.Transaction
	err = s.store.WithinTx(ctx, func(tx Tx) error {
		user, err := lockAccount(tx, accountID)
		if err != nil {
			return err
		}
		if cost.GreaterThan(user.Cash) {
			l.Debugf("Not enough cash. Want %s, have %s", cost, user.Cash)
			return userError(ErrInsufficientFunds, "balance too low to complete transaction")
		}

		record = models.Transaction{
			UserID:      accountID,
			CompanyName: q.Name,
			Symbol:      q.Symbol,
			Shares:      n,
			Price:       q.Price,
			Type:        models.Buy,
			CreatedAt:   s.now(),
		}
		if err := tx.AppendTransaction(&record); err != nil {
			return fmt.Errorf("appending buy record: %w", err)
		}

		rows, err := tx.HoldingsBySymbol(accountID, q.Symbol)
		if err != nil {
			return fmt.Errorf("loading holding: %w", err)
		}
		switch len(rows) {
		case 0:
			h := models.Holding{
				UserID:      accountID,
				CompanyName: q.Name,
				Symbol:      q.Symbol,
				Shares:      n,
			}
			h.Revalue(q.Price)
			if err := tx.CreateHolding(&h); err != nil {
				return fmt.Errorf("creating holding: %w", err)
			}
		case 1:
			h := rows[0]
			h.Shares += n
			h.Revalue(q.Price)
			if err := tx.UpdateHolding(&h); err != nil {
				return fmt.Errorf("updating holding: %w", err)
			}
		default:
			return &IntegrityError{AccountID: accountID, Symbol: q.Symbol, Rows: len(rows)}
		}

		if err := tx.SetCash(accountID, user.Cash.Sub(cost)); err != nil {
			return fmt.Errorf("debiting cash: %w", err)
		}
		return nil
	})
	if err != nil {
		logFailure(l, err)
		return models.Transaction{}, err
	}

	l.Infof("Bought %d %s @ %s. Total cost = %s", n, q.Symbol, q.Price, cost)
	return record, nil
}

// Sell sells shares of symbol at the current price. The portfolio entry is
// removed when no shares remain.
func (s *Service) Sell(ctx context.Context, accountID uint, symbol, shares string) (models.Transaction, error) {
	l := s.logger.WithFields(logrus.Fields{
		"method":          "Sell",
		"param_accountID": accountID,
		"param_symbol":    symbol,
		"param_shares":    shares,
	})
	l.Infof("Sell requested")

	symbol, n, err := parseOrder(symbol, shares, "sell")
	if err != nil {
		logFailure(l, err)
		return models.Transaction{}, err
	}

	q, err := s.lookup(ctx, s.quotes, symbol)
	if err != nil {
		logFailure(l, err)
		return models.Transaction{}, err
	}
	proceeds := q.Price.Mul(decimal.NewFromInt(n))

	var record models.Transaction
	err = s.store.WithinTx(ctx, func(tx Tx) error {
		user, err := lockAccount(tx, accountID)
		if err != nil {
			return err
		}

		rows, err := tx.HoldingsBySymbol(accountID, q.Symbol)
		if err != nil {
			return fmt.Errorf("loading holding: %w", err)
		}
		switch {
		case len(rows) == 0:
			return userError(ErrNotFound, "you don't own any shares of %s", q.Symbol)
		case len(rows) > 1:
			return &IntegrityError{AccountID: accountID, Symbol: q.Symbol, Rows: len(rows)}
		}
		h := rows[0]
		if n > h.Shares {
			l.Debugf("Not enough shares. Want %d, have %d", n, h.Shares)
			return userError(ErrInsufficientShares, "you can't sell more shares than you own")
		}

		record = models.Transaction{
			UserID:      accountID,
			CompanyName: q.Name,
			Symbol:      q.Symbol,
			Shares:      n,
			Price:       q.Price,
			Type:        models.Sell,
			CreatedAt:   s.now(),
		}
		if err := tx.AppendTransaction(&record); err != nil {
			return fmt.Errorf("appending sell record: %w", err)
		}

		if err := tx.SetCash(accountID, user.Cash.Add(proceeds)); err != nil {
			return fmt.Errorf("crediting cash: %w", err)
		}

		if n == h.Shares {
			if err := tx.DeleteHolding(h.ID); err != nil {
				return fmt.Errorf("deleting holding: %w", err)
			}
			return nil
		}
		h.Shares -= n
		h.Revalue(q.Price)
		if err := tx.UpdateHolding(&h); err != nil {
			return fmt.Errorf("updating holding: %w", err)
		}
		return nil
	})
	if err != nil {
		logFailure(l, err)
		return models.Transaction{}, err
	}

	l.Infof("Sold %d %s @ %s. Proceeds = %s", n, q.Symbol, q.Price, proceeds)
	return record, nil
}

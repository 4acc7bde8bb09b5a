package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"stocks-simulator/models"
	"stocks-simulator/quotes"
)

// Position is a portfolio entry valued at the latest price. Stale is set
// when the provider no longer knows the symbol and the last stored price
// was used instead.
type Position struct {
	models.Holding
	Stale bool `json:"stale"`
}

// Summary is an account's portfolio valuation.
type Summary struct {
	AccountID     uint            `json:"account_id"`
	Username      string          `json:"username"`
	Positions     []Position      `json:"positions"`
	Cash          decimal.Decimal `json:"cash"`
	HoldingsValue decimal.Decimal `json:"holdings_value"`
	NetWorth      decimal.Decimal `json:"net_worth"`
}

// Portfolio re-prices every holding of the account, stores the refreshed
// prices and returns the valuation. Prices are fetched before the unit of
// work starts so that no lock is held during lookups.
func (s *Service) Portfolio(ctx context.Context, accountID uint) (Summary, error) {
	l := s.logger.WithFields(logrus.Fields{
		"method":          "Portfolio",
		"param_accountID": accountID,
	})

	var held []models.Holding
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		if _, err := getAccount(tx, accountID); err != nil {
			return err
		}
		var err error
		held, err = tx.Holdings(accountID)
		if err != nil {
			return fmt.Errorf("listing holdings: %w", err)
		}
		return nil
	})
	if err != nil {
		logFailure(l, err)
		return Summary{}, err
	}

	fresh := make(map[string]quotes.Quote, len(held))
	stale := make(map[string]bool)
	for _, h := range held {
		q, err := s.lookup(ctx, s.quotes, h.Symbol)
		switch {
		case err == nil:
			fresh[h.Symbol] = q
		case errors.Is(err, ErrNotFound):
			l.Warnf("No quote for held symbol %s. Using last known price %s", h.Symbol, h.Price)
			stale[h.Symbol] = true
		default:
			logFailure(l, err)
			return Summary{}, err
		}
	}

	var summary Summary
	err = s.store.WithinTx(ctx, func(tx Tx) error {
		user, err := getAccount(tx, accountID)
		if err != nil {
			return err
		}
		// Re-read: a trade may have committed since the first snapshot.
		current, err := tx.Holdings(accountID)
		if err != nil {
			return fmt.Errorf("listing holdings: %w", err)
		}

		now := s.now()
		summary = Summary{
			AccountID:     accountID,
			Username:      user.Username,
			Positions:     make([]Position, 0, len(current)),
			Cash:          user.Cash,
			HoldingsValue: decimal.Zero,
		}
		var snapshots []models.StockPrice
		for _, h := range current {
			if q, ok := fresh[h.Symbol]; ok {
				h.Revalue(q.Price)
				if err := tx.UpdateHolding(&h); err != nil {
					return fmt.Errorf("refreshing %s: %w", h.Symbol, err)
				}
				snapshots = append(snapshots, models.StockPrice{Symbol: h.Symbol, Price: q.Price, Timestamp: now})
			} else {
				h.Revalue(h.Price)
			}
			summary.Positions = append(summary.Positions, Position{Holding: h, Stale: stale[h.Symbol]})
			summary.HoldingsValue = summary.HoldingsValue.Add(h.TotalValue)
		}
		summary.NetWorth = summary.Cash.Add(summary.HoldingsValue)

		if len(snapshots) > 0 {
			if err := tx.RecordPrices(snapshots); err != nil {
				return fmt.Errorf("recording prices: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		logFailure(l, err)
		return Summary{}, err
	}

	l.Debugf("Valued %d holdings. Net worth %s", len(summary.Positions), summary.NetWorth)
	return summary, nil
}

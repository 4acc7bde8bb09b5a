package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	AlphaVantageURL = "https://www.alphavantage.co/query"

	defaultLookupTimeout = 5 * time.Second
)

type globalQuoteResponse struct {
	GlobalQuote struct {
		Symbol string `json:"01. symbol"`
		Price  string `json:"05. price"`
	} `json:"Global Quote"`
	upstreamMessages
}

type symbolSearchResponse struct {
	BestMatches []struct {
		Symbol string `json:"1. symbol"`
		Name   string `json:"2. name"`
	} `json:"bestMatches"`
	upstreamMessages
}

// upstreamMessages are the fields Alpha Vantage uses instead of HTTP status
// codes to report rate limiting and bad requests. Unknown symbols are not
// reported here: they come back as an empty "Global Quote".
type upstreamMessages struct {
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

func (m upstreamMessages) err() error {
	switch {
	case m.Note != "":
		return fmt.Errorf("%w: %s", ErrUnavailable, m.Note)
	case m.Information != "":
		return fmt.Errorf("%w: %s", ErrUnavailable, m.Information)
	case m.ErrorMessage != "":
		return fmt.Errorf("%w: %s", ErrRejected, m.ErrorMessage)
	}
	return nil
}

// AlphaVantage is a Provider backed by the Alpha Vantage REST API.
type AlphaVantage struct {
	apiKey  string
	baseURL string
	client  *http.Client
	timeout time.Duration
	logger  *logrus.Entry
}

type AlphaVantageOption func(*AlphaVantage)

func WithHTTPClient(c *http.Client) AlphaVantageOption {
	return func(a *AlphaVantage) { a.client = c }
}

func WithBaseURL(u string) AlphaVantageOption {
	return func(a *AlphaVantage) { a.baseURL = u }
}

// WithTimeout bounds a single Lookup, both requests included.
func WithTimeout(d time.Duration) AlphaVantageOption {
	return func(a *AlphaVantage) { a.timeout = d }
}

func WithLogger(l *logrus.Entry) AlphaVantageOption {
	return func(a *AlphaVantage) { a.logger = l }
}

func NewAlphaVantage(apiKey string, opts ...AlphaVantageOption) *AlphaVantage {
	a := &AlphaVantage{
		apiKey:  apiKey,
		baseURL: AlphaVantageURL,
		client:  http.DefaultClient,
		timeout: defaultLookupTimeout,
		logger:  logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Lookup fetches the latest price of symbol and the company name behind it.
// A failed name search is not fatal: the symbol is used as the name.
func (a *AlphaVantage) Lookup(ctx context.Context, symbol string) (Quote, error) {
	l := a.logger.WithFields(logrus.Fields{
		"method":       "AlphaVantage.Lookup",
		"param_symbol": symbol,
	})

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return Quote{}, ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var gq globalQuoteResponse
	if err := a.get(ctx, url.Values{"function": {"GLOBAL_QUOTE"}, "symbol": {symbol}}, &gq); err != nil {
		return Quote{}, err
	}
	if err := gq.err(); err != nil {
		return Quote{}, err
	}
	if gq.GlobalQuote.Price == "" {
		return Quote{}, ErrNotFound
	}

	price, err := decimal.NewFromString(gq.GlobalQuote.Price)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: malformed price %q", ErrUnavailable, gq.GlobalQuote.Price)
	}
	if gq.GlobalQuote.Symbol != "" {
		symbol = strings.ToUpper(gq.GlobalQuote.Symbol)
	}

	name, err := a.companyName(ctx, symbol)
	if err != nil {
		l.Warnf("Company name search failed, using symbol: %v", err)
		name = symbol
	}

	l.Debugf("Got %s (%s) at %s", symbol, name, price)
	return Quote{Symbol: symbol, Name: name, Price: price}, nil
}

func (a *AlphaVantage) companyName(ctx context.Context, symbol string) (string, error) {
	var sr symbolSearchResponse
	if err := a.get(ctx, url.Values{"function": {"SYMBOL_SEARCH"}, "keywords": {symbol}}, &sr); err != nil {
		return "", err
	}
	if err := sr.err(); err != nil {
		return "", err
	}
	for _, m := range sr.BestMatches {
		if strings.EqualFold(m.Symbol, symbol) && m.Name != "" {
			return m.Name, nil
		}
	}
	return "", fmt.Errorf("%w: no exact match for %s", ErrNotFound, symbol)
}

func (a *AlphaVantage) get(ctx context.Context, params url.Values, out interface{}) error {
	params.Set("apikey", a.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: upstream status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 300:
		return fmt.Errorf("alphavantage: unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %w", ErrUnavailable, err)
	}
	return nil
}

package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/vitos/market_snapshot/internal/domain"
	"go.uber.org/zap"
)

const (
	BybitBaseURL        = "https://api.bybit.com"
	BybitTestnetBaseURL = "https://api-testnet.bybit.com"

	instrumentsPath = "/v5/market/instruments-info"
	klinePath       = "/v5/market/kline"

	spotCategory   = "spot"
	defaultTimeout = 10 * time.Second
	maxBackoff     = 30 * time.Second
	maxBodyInError = 512
)

// Authorizer attaches credentials to an outgoing request.
type Authorizer interface {
	Authorize(req *http.Request) error
}

type noAuth struct{}

func (noAuth) Authorize(*http.Request) error { return nil }

// BybitAdapter reads spot market metadata and klines from the Bybit V5 REST API.
// It does not cache, and retries only when configured with WithRetry.
type BybitAdapter struct {
	baseURL  string
	auth     Authorizer
	client   *http.Client
	timeout  time.Duration
	attempts int
	backoff  time.Duration
	logger   *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

type Option func(*BybitAdapter)

func WithBaseURL(baseURL string) Option {
	return func(b *BybitAdapter) {
		if baseURL != "" {
			b.baseURL = baseURL
		}
	}
}

// WithHTTPClient sends requests through a copy of client. Its Timeout is kept
// unless WithTimeout is also given; a zero Timeout gets the 10s default.
func WithHTTPClient(client *http.Client) Option {
	return func(b *BybitAdapter) {
		if client != nil {
			b.client = client
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(b *BybitAdapter) {
		if timeout > 0 {
			b.timeout = timeout
		}
	}
}

// WithRetry retries NetworkError up to attempts times in total, doubling the
// wait after each failure starting from backoff.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(b *BybitAdapter) {
		if attempts > 1 {
			b.attempts = attempts
		}
		if backoff > 0 {
			b.backoff = backoff
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(b *BybitAdapter) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func NewBybitAdapter(auth Authorizer, opts ...Option) *BybitAdapter {
	if auth == nil {
		auth = noAuth{}
	}
	b := &BybitAdapter{
		baseURL:  BybitBaseURL,
		auth:     auth,
		client:   http.DefaultClient,
		attempts: 1,
		backoff:  time.Second,
		logger:   zap.NewNop(),
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(b)
	}

	client := *b.client
	switch {
	case b.timeout > 0:
		client.Timeout = b.timeout
	case client.Timeout == 0:
		client.Timeout = defaultTimeout
	}
	b.client = &client
	return b
}

// --- REST API ---

// FetchInstruments lists spot instruments. An empty symbol lists all of them;
// limit <= 0 leaves the page size to the exchange.
func (b *BybitAdapter) FetchInstruments(ctx context.Context, symbol string, limit int) ([]json.RawMessage, error) {
	query := url.Values{}
	query.Set("category", spotCategory)
	if symbol != "" {
		query.Set("symbol", symbol)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	return b.fetchList(ctx, instrumentsPath, query)
}

// FetchKlines returns one page of candles. limit is not range-checked here:
// out-of-range values go to the exchange as-is and come back as a ProtocolError.
func (b *BybitAdapter) FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]json.RawMessage, error) {
	switch {
	case symbol == "":
		return nil, &domain.InvalidRequestError{Endpoint: klinePath, Param: "symbol", Reason: "is required"}
	case interval == "":
		return nil, &domain.InvalidRequestError{Endpoint: klinePath, Param: "interval", Reason: "is required"}
	case limit <= 0:
		return nil, &domain.InvalidRequestError{Endpoint: klinePath, Param: "limit", Reason: "must be positive"}
	}

	query := url.Values{}
	query.Set("category", spotCategory)
	query.Set("symbol", symbol)
	query.Set("interval", interval)
	query.Set("limit", strconv.Itoa(limit))
	return b.fetchList(ctx, klinePath, query)
}

// envelope mirrors the V5 response wrapper. Result stays raw so a missing
// key can be told apart from an empty object.
type envelope struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
	Time    int64           `json:"time"`
}

type listResult struct {
	List *[]json.RawMessage `json:"list"`
}

func (b *BybitAdapter) fetchList(ctx context.Context, path string, query url.Values) ([]json.RawMessage, error) {
	body, err := b.getWithRetry(ctx, path, query)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &domain.ProtocolError{Endpoint: path, Reason: "decode envelope", Err: err}
	}
	if env.RetCode != 0 {
		return nil, &domain.ProtocolError{Endpoint: path, RetCode: env.RetCode, RetMsg: env.RetMsg}
	}
	if len(env.Result) == 0 || bytes.Equal(env.Result, []byte("null")) {
		return nil, &domain.ProtocolError{Endpoint: path, Reason: "missing result"}
	}

	var result listResult
	if err := json.Unmarshal(env.Result, &result); err != nil {
		return nil, &domain.ProtocolError{Endpoint: path, Reason: "decode result", Err: err}
	}
	if result.List == nil {
		return nil, &domain.ProtocolError{Endpoint: path, Reason: "missing result.list"}
	}
	if len(*result.List) == 0 {
		return nil, &domain.EmptyResultError{Endpoint: path}
	}
	return *result.List, nil
}

func (b *BybitAdapter) getWithRetry(ctx context.Context, path string, query url.Values) ([]byte, error) {
	wait := b.backoff
	var lastErr error
	for attempt := 1; attempt <= b.attempts; attempt++ {
		body, err := b.get(ctx, path, query)
		if err == nil {
			return body, nil
		}
		lastErr = err
		var netErr *domain.NetworkError
		if !errors.As(err, &netErr) || attempt == b.attempts || ctx.Err() != nil {
			break
		}

		b.logger.Warn("Bybit request failed, retrying",
			zap.String("endpoint", path),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err))
		if err := b.sleep(ctx, wait); err != nil {
			break
		}
		wait *= 2
		if wait > maxBackoff {
			wait = maxBackoff
		}
	}
	return nil, lastErr
}

func (b *BybitAdapter) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint := b.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := b.auth.Authorize(req); err != nil {
		return nil, fmt.Errorf("authorize request %s: %w", path, err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, &domain.NetworkError{Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.NetworkError{Endpoint: path, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= 400 {
		return nil, &domain.NetworkError{
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(respBody), maxBodyInError),
		}
	}

	b.logger.Debug("Bybit response",
		zap.String("endpoint", path),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(respBody)))
	return respBody, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

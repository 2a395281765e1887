package degiro

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/trading-adapters/internal/httpclient"
	"github.com/Checker-Finance/trading-adapters/internal/totp"
)

const (
	DefaultBaseURL     = "https://trader.degiro.nl"
	DefaultTimeout     = 30 * time.Second
	DefaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:138.0) Gecko/20100101 Firefox/138.0"
	DefaultSearchLimit = 10
)

// Config configures a Client. BaseURL can point at a test double.
type Config struct {
	BaseURL     string      `validate:"required,url"`
	Credentials Credentials `validate:"required"`
	Timeout     time.Duration
	UserAgent   string

	// HTTPClient is copied and given a cookie jar if it has none.
	HTTPClient *http.Client `validate:"-"`
	// Now overrides the clock used for one-time passwords.
	Now func() time.Time `validate:"-"`
	// Observer sees every broker request, typically for metrics.
	Observer httpclient.Observer `validate:"-"`
	// OnLogin is told "success", "rejected" or "error" after each login attempt.
	OnLogin func(result string) `validate:"-"`
}

// Client talks to the broker's private web API on behalf of one account.
// Reads are safe for concurrent use; Login calls are serialised.
type Client struct {
	logger    *zap.Logger
	baseURL   string
	userAgent string
	creds     Credentials
	otp       *totp.Generator
	exec      *httpclient.Executor
	now       func() time.Time
	onLogin   func(string)

	loginMu sync.Mutex
	state   sessionState
}

// NewClient validates cfg and decodes the TOTP secret. It makes no requests.
func NewClient(logger *zap.Logger, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Credentials.TOTPSecret) == "" {
		return nil, fmt.Errorf("%w: secret is empty", ErrInvalidSecret)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("degiro: invalid config: %w", err)
	}
	gen, err := totp.NewGenerator(cfg.Credentials.TOTPSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}

	httpClient, err := withCookieJar(cfg.HTTPClient, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	c := &Client{
		logger:    logger,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		creds:     cfg.Credentials,
		otp:       gen,
		now:       cfg.Now,
		onLogin:   cfg.OnLogin,
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.now == nil {
		c.now = time.Now
	}

	c.exec = httpclient.New(logger, httpClient, "degiro", func(status int, body []byte) error {
		return &HTTPStatusError{Status: status, Body: truncateBody(body, 512)}
	})
	if cfg.Observer != nil {
		c.exec.WithObserver(cfg.Observer)
	}
	return c, nil
}

func withCookieJar(base *http.Client, timeout time.Duration) (*http.Client, error) {
	var hc http.Client
	if base != nil {
		hc = *base
	}
	if timeout > 0 {
		hc.Timeout = timeout
	} else if hc.Timeout == 0 {
		hc.Timeout = DefaultTimeout
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("degiro: cookie jar: %w", err)
		}
		hc.Jar = jar
	}
	return &hc, nil
}

// do builds, executes and decodes one call against the current session snapshot.
func (c *Client) do(ctx context.Context, in call, out any) error {
	return c.doWith(ctx, c.state.snapshot(), in, out)
}

func (c *Client) doWith(ctx context.Context, sess Session, in call, out any) error {
	req, err := c.build(ctx, sess, in)
	if err != nil {
		return err
	}
	body, err := c.exec.Do(ctx, req, in.endpoint.name)
	if err != nil {
		return mapTransportError(err)
	}
	if err := decode(body, out); err != nil {
		c.logger.Warn("degiro.decode_failed",
			zap.String("endpoint", in.endpoint.name),
			zap.Error(err))
		return err
	}
	return nil
}

// fetch runs one call and returns the decoded envelope.
func fetch[T any](ctx context.Context, c *Client, in call) (*T, error) {
	var out T
	if err := c.do(ctx, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func mapTransportError(err error) error {
	var te *httpclient.TransportError
	if errors.As(err, &te) {
		return &NetworkError{Op: te.Method, URL: te.URL, Err: te.Err}
	}
	return err
}

func truncateBody(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// ─── Endpoints ───────────────────────────────────────────────────────────────

// GetFavorites returns the product ids of the first favorites list.
// GET /favorites/secure/v1
func (c *Client) GetFavorites(ctx context.Context) ([]int64, error) {
	lists, err := c.GetFavoriteLists(ctx)
	if err != nil {
		return nil, err
	}
	if len(lists) == 0 {
		return []int64{}, nil
	}
	return lists[0].ProductIDs, nil
}

// GetFavoriteLists returns every favorites list.
// GET /favorites/secure/v1
func (c *Client) GetFavoriteLists(ctx context.Context) ([]FavoriteList, error) {
	resp, err := fetch[favoritesResponse](ctx, c, call{endpoint: endpointFavorites})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GetProductDetails returns product details keyed by id.
// POST /product_search/secure/v5/products/info
func (c *Client) GetProductDetails(ctx context.Context, ids []string) (ProductInfo, error) {
	if ids == nil {
		ids = []string{}
	}
	resp, err := fetch[productInfoResponse](ctx, c, call{endpoint: endpointProductInfo, body: ids})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// SearchProducts looks products up by free text.
// GET /product_search/secure/v5/products/lookup
func (c *Client) SearchProducts(ctx context.Context, s ProductSearch) (*ProductSearchResult, error) {
	if s.Limit == 0 {
		s.Limit = DefaultSearchLimit
	}
	q := url.Values{}
	q.Set("searchText", s.Text)
	q.Set("offset", strconv.Itoa(s.Offset))
	q.Set("limit", strconv.Itoa(s.Limit))
	return fetch[ProductSearchResult](ctx, c, call{endpoint: endpointProductSearch, query: q, check: s.Validate})
}

// SearchProductByName returns the first page of products matching name.
func (c *Client) SearchProductByName(ctx context.Context, name string) ([]Product, error) {
	res, err := c.SearchProducts(ctx, ProductSearch{Text: name})
	if err != nil {
		return nil, err
	}
	return res.Products, nil
}

// GetPortfolio returns the current positions.
// GET /trading/secure/v5/update/{intAccount};jsessionid={sessionId}
func (c *Client) GetPortfolio(ctx context.Context) (*Portfolio, error) {
	q := url.Values{}
	q.Set("portfolio", "0")
	resp, err := fetch[portfolioResponse](ctx, c, call{endpoint: endpointPortfolio, query: q})
	if err != nil {
		return nil, err
	}
	return &resp.Portfolio, nil
}

// GetOrderHistory returns order events between two dates inclusive.
// GET /portfolio-reports/secure/v4/order-history
func (c *Client) GetOrderHistory(ctx context.Context, from, to ReportDate) ([]HistoryItem, error) {
	q := url.Values{}
	q.Set("fromDate", from.String())
	q.Set("toDate", to.String())
	resp, err := fetch[historyResponse](ctx, c, call{
		endpoint: endpointOrderHistory,
		query:    q,
		check:    func() error { return checkRange(from, to) },
	})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GetTransactionHistory returns executed transactions between two dates.
// GET /portfolio-reports/secure/v4/transactions
func (c *Client) GetTransactionHistory(ctx context.Context, from, to ISODate, groupByOrder bool) ([]TransactionItem, error) {
	q := url.Values{}
	q.Set("fromDate", from.String())
	q.Set("toDate", to.String())
	q.Set("groupTransactionsByOrder", strconv.FormatBool(groupByOrder))
	resp, err := fetch[transactionsResponse](ctx, c, call{
		endpoint: endpointTransactions,
		query:    q,
		check:    func() error { return checkRange(from, to) },
	})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// CheckOrder asks the broker to price and validate order.
// POST /trading/secure/v5/checkOrder;jsessionid={sessionId}
func (c *Client) CheckOrder(ctx context.Context, order Order) (*CheckOrderResult, error) {
	resp, err := fetch[checkOrderResponse](ctx, c, call{endpoint: endpointCheckOrder, body: order})
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// ConfirmOrder places a checked order.
// POST /trading/secure/v5/order/{confirmationId};jsessionid={sessionId}
func (c *Client) ConfirmOrder(ctx context.Context, confirmationID string, order Order) (*ConfirmOrderResult, error) {
	resp, err := fetch[confirmOrderResponse](ctx, c, call{
		endpoint: endpointConfirmOrder,
		pathArgs: map[string]string{"confirmationId": confirmationID},
		body:     order,
		check: func() error {
			if strings.TrimSpace(confirmationID) == "" {
				return fmt.Errorf("%w: confirmation id is required", ErrInvalidRequest)
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// GetAccountInfo returns the bound account's settings.
// GET /trading/secure/v5/account/info/{intAccount};jsessionid={sessionId}
func (c *Client) GetAccountInfo(ctx context.Context) (*AccountInfo, error) {
	resp, err := fetch[accountInfoResponse](ctx, c, call{endpoint: endpointAccountInfo})
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// GetAccountOverview returns cash movements between two dates.
// GET /portfolio-reports/secure/v6/accountoverview
func (c *Client) GetAccountOverview(ctx context.Context, from, to ISODate) (*AccountOverview, error) {
	q := url.Values{}
	q.Set("fromDate", from.String())
	q.Set("toDate", to.String())
	resp, err := fetch[accountOverviewResponse](ctx, c, call{
		endpoint: endpointAccountOverview,
		query:    q,
		check:    func() error { return checkRange(from, to) },
	})
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

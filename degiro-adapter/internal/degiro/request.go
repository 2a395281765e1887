package degiro

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	headerAccept      = "application/json, text/plain, */*"
	contentTypeJSON   = "application/json; charset=UTF-8"
	contentTypeLogin  = "application/json;charset=UTF-8"
	refererTrader     = "/trader/"
	refererLogin      = "/login/nl"
	jsessionParamName = ";jsessionid="
)

// sessionParam says where an endpoint expects the session identifiers.
type sessionParam uint8

const (
	querySessionID sessionParam = 1 << iota
	queryIntAccount
	pathSessionID  // ;jsessionid={sessionId} suffix
	pathIntAccount // {intAccount} path segment

	queryBoth = querySessionID | queryIntAccount
)

func (p sessionParam) needsSession() bool { return p&(querySessionID|pathSessionID) != 0 }
func (p sessionParam) needsAccount() bool { return p&(queryIntAccount|pathIntAccount) != 0 }

type endpoint struct {
	name    string
	method  string
	path    string
	params  sessionParam
	referer string
}

// Broker endpoints. Both the query and the path-segment forms of the session
// identifiers exist upstream, so each endpoint declares its own.
var (
	endpointLogin           = endpoint{"login", http.MethodPost, "/login/secure/login/totp", 0, refererLogin}
	endpointClient          = endpoint{"client", http.MethodGet, "/pa/secure/client", querySessionID, refererTrader}
	endpointFavorites       = endpoint{"favorites", http.MethodGet, "/favorites/secure/v1", queryBoth, refererTrader}
	endpointProductInfo     = endpoint{"product_info", http.MethodPost, "/product_search/secure/v5/products/info", queryBoth, refererTrader}
	endpointProductSearch   = endpoint{"product_search", http.MethodGet, "/product_search/secure/v5/products/lookup", queryBoth, refererTrader}
	endpointPortfolio       = endpoint{"portfolio", http.MethodGet, "/trading/secure/v5/update/{intAccount}", queryBoth | pathSessionID | pathIntAccount, refererTrader}
	endpointOrderHistory    = endpoint{"order_history", http.MethodGet, "/portfolio-reports/secure/v4/order-history", queryBoth, refererTrader}
	endpointTransactions    = endpoint{"transactions", http.MethodGet, "/portfolio-reports/secure/v4/transactions", queryBoth, refererTrader}
	endpointCheckOrder      = endpoint{"check_order", http.MethodPost, "/trading/secure/v5/checkOrder", queryBoth | pathSessionID, refererTrader}
	endpointConfirmOrder    = endpoint{"confirm_order", http.MethodPost, "/trading/secure/v5/order/{confirmationId}", queryBoth | pathSessionID, refererTrader}
	endpointAccountInfo     = endpoint{"account_info", http.MethodGet, "/trading/secure/v5/account/info/{intAccount}", pathSessionID | pathIntAccount, refererTrader}
	endpointAccountOverview = endpoint{"account_overview", http.MethodGet, "/portfolio-reports/secure/v6/accountoverview", queryBoth, refererTrader}
)

// call describes one request before session identifiers are applied.
type call struct {
	endpoint endpoint
	pathArgs map[string]string
	query    url.Values
	body     any
	// check validates caller arguments once the session is known to be usable.
	check func() error
}

type selfValidator interface {
	Validate() error
}

// build addresses in for sess. It never touches the network and fails with
// NotAuthenticatedError before doing anything else.
func (c *Client) build(ctx context.Context, sess Session, in call) (*http.Request, error) {
	ep := in.endpoint

	var sessionID string
	var intAccount int64
	if ep.params.needsSession() {
		id, err := sess.ID.Take()
		if err != nil {
			return nil, &NotAuthenticatedError{Missing: ErrMissingSessionID}
		}
		sessionID = id
	}
	if ep.params.needsAccount() {
		acct, err := sess.IntAccount.Take()
		if err != nil {
			return nil, &NotAuthenticatedError{Missing: ErrMissingIntAccount}
		}
		intAccount = acct
	}

	if in.check != nil {
		if err := in.check(); err != nil {
			return nil, err
		}
	}
	if v, ok := in.body.(selfValidator); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}

	path := ep.path
	if ep.params&pathIntAccount != 0 {
		path = strings.ReplaceAll(path, "{intAccount}", strconv.FormatInt(intAccount, 10))
	}
	for k, v := range in.pathArgs {
		path = strings.ReplaceAll(path, "{"+k+"}", url.PathEscape(v))
	}
	if ep.params&pathSessionID != 0 {
		path += jsessionParamName + url.PathEscape(sessionID)
	}

	query := url.Values{}
	for k, vs := range in.query {
		query[k] = append([]string(nil), vs...)
	}
	if ep.params&queryIntAccount != 0 {
		query.Set("intAccount", strconv.FormatInt(intAccount, 10))
	}
	if ep.params&querySessionID != 0 {
		query.Set("sessionId", sessionID)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in.body != nil {
		data, err := json.Marshal(in.body)
		if err != nil {
			return nil, fmt.Errorf("%w: encode %s body: %v", ErrInvalidRequest, ep.name, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, ep.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRequest, ep.name, err)
	}
	c.setHeaders(req, ep, in.body != nil)
	return req, nil
}

func (c *Client) setHeaders(req *http.Request, ep endpoint, hasBody bool) {
	req.Header.Set("Accept", headerAccept)
	req.Header.Set("Referer", c.baseURL+ep.referer)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if hasBody {
		req.Header.Set("Content-Type", contentTypeJSON)
	}
	if ep == endpointLogin {
		req.Header.Set("Content-Type", contentTypeLogin)
		req.Header.Set("Origin", c.baseURL)
	}
}

package pesapal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/essenza-shop/essenza-backend/pkg/config"
	pkgerrors "github.com/essenza-shop/essenza-backend/pkg/errors"
	"github.com/essenza-shop/essenza-backend/pkg/logger"
)

const (
	authPath         = "/api/Auth/RequestToken"
	registerIPNPath  = "/api/URLSetup/RegisterIPN"
	submitOrderPath  = "/api/Transactions/SubmitOrderRequest"
	statusPath       = "/api/Transactions/GetTransactionStatus"
	gatewayName      = "pesapal"
	tokenSafetyGrace = 30 * time.Second
	defaultTokenTTL  = 4 * time.Minute
)

var (
	errConsumerKeyRequired    = errors.New("pesapal consumer key is required")
	errConsumerSecretRequired = errors.New("pesapal consumer secret is required")
	errBaseURLRequired        = errors.New("pesapal base url is required")
	errLoggerRequired         = errors.New("pesapal logger is required")
)

// TokenCache shares bearer tokens across processes so each instance does not
// burn its own auth round-trip. A Redis client satisfies it; cache outages
// degrade to per-process tokens.
type TokenCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GatewayTokenKey(name string) string
}

// cachedToken is the wire form of a shared token. The expiry travels with it
// so readers in other processes apply the same safety grace.
type cachedToken struct {
	Token  string    `json:"token"`
	Expiry time.Time `json:"expiry"`
}

// Client exposes gateway primitives with centralized auth, logging, and error
// mapping. Tokens are short-lived, so the client caches the latest one in
// memory and, when a cache is wired, shares it across processes.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cfg        config.PesapalConfig
	logger     *logger.Logger
	cache      TokenCache

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient initializes the gateway wrapper and validates the credentials.
// cache may be nil.
func NewClient(ctx context.Context, cfg config.PesapalConfig, cache TokenCache, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	if strings.TrimSpace(cfg.ConsumerKey) == "" {
		return nil, errConsumerKeyRequired
	}
	if strings.TrimSpace(cfg.ConsumerSecret) == "" {
		return nil, errConsumerSecretRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		cfg:        cfg,
		logger:     logg,
		cache:      cache,
	}

	logg.Info(ctx, "pesapal client initialized")
	return c, nil
}

// CallbackURL returns the configured redirect URL for hosted checkout.
func (c *Client) CallbackURL() string {
	if c == nil {
		return ""
	}
	return c.cfg.CallbackURL
}

// Currency returns the configured settlement currency.
func (c *Client) Currency() string {
	if c == nil {
		return ""
	}
	return c.cfg.Currency
}

// RequestToken returns a bearer token, reusing the in-memory one while valid,
// then any shared one, before asking the gateway for a fresh token.
func (c *Client) RequestToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-tokenSafetyGrace)) {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	if token, expiry, ok := c.sharedToken(ctx); ok {
		c.mu.Lock()
		c.token = token
		c.tokenExpiry = expiry
		c.mu.Unlock()
		return token, nil
	}

	c.log(ctx, "request", "request_token", map[string]any{"consumer_key": c.cfg.ConsumerKey})

	var resp tokenResponse
	err := c.postJSON(ctx, authPath, "", tokenRequest{
		ConsumerKey:    c.cfg.ConsumerKey,
		ConsumerSecret: c.cfg.ConsumerSecret,
	}, &resp)
	if err != nil {
		c.log(ctx, "error", "request_token", map[string]any{"error": err.Error()})
		return "", err
	}
	if !resp.Error.isZero() || resp.Token == "" {
		err := gatewayError(resp.Error, "token request rejected")
		c.log(ctx, "error", "request_token", map[string]any{"error": err.Error()})
		return "", err
	}

	expiry := time.Now().Add(defaultTokenTTL)
	if t, parseErr := time.Parse(time.RFC3339, resp.ExpiryDate); parseErr == nil {
		expiry = t
	}

	c.mu.Lock()
	c.token = resp.Token
	c.tokenExpiry = expiry
	c.mu.Unlock()

	c.shareToken(ctx, resp.Token, expiry)

	c.log(ctx, "response", "request_token", map[string]any{"expiry": expiry.UTC().Format(time.RFC3339)})
	return resp.Token, nil
}

// sharedToken reads the cross-process token. Cache errors count as a miss.
func (c *Client) sharedToken(ctx context.Context) (string, time.Time, bool) {
	if c.cache == nil {
		return "", time.Time{}, false
	}
	raw, err := c.cache.Get(ctx, c.cache.GatewayTokenKey(gatewayName))
	if err != nil {
		return "", time.Time{}, false
	}
	var cached cachedToken
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return "", time.Time{}, false
	}
	if cached.Token == "" || !time.Now().Before(cached.Expiry.Add(-tokenSafetyGrace)) {
		return "", time.Time{}, false
	}
	return cached.Token, cached.Expiry, true
}

// shareToken publishes a fresh token for other processes. Failures are logged
// and otherwise ignored; the in-memory copy still serves this process.
func (c *Client) shareToken(ctx context.Context, token string, expiry time.Time) {
	if c.cache == nil {
		return
	}
	ttl := time.Until(expiry)
	if ttl <= 0 {
		return
	}
	payload, err := json.Marshal(cachedToken{Token: token, Expiry: expiry})
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, c.cache.GatewayTokenKey(gatewayName), string(payload), ttl); err != nil {
		c.log(ctx, "error", "share_token", map[string]any{"error": err.Error()})
	}
}

// RegisterIPN registers a notification URL and returns the gateway's IPN id.
func (c *Client) RegisterIPN(ctx context.Context, params RegisterIPNParams) (*IPNRegistration, error) {
	token, err := c.RequestToken(ctx)
	if err != nil {
		return nil, err
	}

	c.log(ctx, "request", "register_ipn", map[string]any{"url": params.URL})

	var resp IPNRegistration
	if err := c.postJSON(ctx, registerIPNPath, token, params.toRequest(), &resp); err != nil {
		c.log(ctx, "error", "register_ipn", map[string]any{"error": err.Error()})
		return nil, err
	}
	if !resp.Error.isZero() || resp.ID == "" {
		err := gatewayError(resp.Error, "ipn registration rejected")
		c.log(ctx, "error", "register_ipn", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "register_ipn", map[string]any{"ipn_id": resp.ID})
	return &resp, nil
}

// SubmitOrderRequest starts a hosted checkout for the given order and returns
// the tracking id plus redirect URL.
func (c *Client) SubmitOrderRequest(ctx context.Context, params OrderRequestParams) (*OrderResponse, error) {
	token, err := c.RequestToken(ctx)
	if err != nil {
		return nil, err
	}

	c.log(ctx, "request", "submit_order_request", map[string]any{
		"merchant_reference": params.MerchantReference,
		"amount":             params.Amount.String(),
		"currency":           params.Currency,
		"email":              params.Email,
		"phone":              params.Phone,
	})

	var resp OrderResponse
	if err := c.postJSON(ctx, submitOrderPath, token, params.toRequest(), &resp); err != nil {
		c.log(ctx, "error", "submit_order_request", map[string]any{"error": err.Error()})
		return nil, err
	}
	if !resp.Error.isZero() || resp.OrderTrackingID == "" {
		err := gatewayError(resp.Error, "order request rejected")
		c.log(ctx, "error", "submit_order_request", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "submit_order_request", map[string]any{
		"order_tracking_id":  resp.OrderTrackingID,
		"merchant_reference": resp.MerchantReference,
	})
	return &resp, nil
}

// GetTransactionStatus queries the authoritative payment state for a tracking id.
func (c *Client) GetTransactionStatus(ctx context.Context, orderTrackingID string) (*TransactionStatus, error) {
	token, err := c.RequestToken(ctx)
	if err != nil {
		return nil, err
	}

	c.log(ctx, "request", "get_transaction_status", map[string]any{"order_tracking_id": orderTrackingID})

	endpoint := fmt.Sprintf("%s%s?%s", c.baseURL, statusPath, url.Values{"orderTrackingId": {orderTrackingID}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building status request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	var resp TransactionStatus
	if err := c.do(req, "get_transaction_status", &resp); err != nil {
		c.log(ctx, "error", "get_transaction_status", map[string]any{"error": err.Error()})
		return nil, err
	}
	if !resp.Error.isZero() {
		err := gatewayError(resp.Error, "status query rejected")
		c.log(ctx, "error", "get_transaction_status", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "get_transaction_status", map[string]any{
		"payment_status": resp.PaymentStatusDescription,
		"method":         resp.PaymentMethod,
	})
	return &resp, nil
}

func (c *Client) postJSON(ctx context.Context, path, token string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding gateway payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building gateway request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.do(req, path, out)
}

func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("pesapal %s failed", op))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("reading pesapal %s response", op))
	}

	if resp.StatusCode >= 400 {
		return pkgerrors.New(
			domainCodeForStatus(resp.StatusCode),
			fmt.Sprintf("pesapal %s returned status %d", op, resp.StatusCode),
		)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decoding pesapal %s response", op))
	}
	return nil
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("pesapal %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("pesapal %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"secret", "token", "key", "email", "phone"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func gatewayError(gwErr *Error, msg string) error {
	if gwErr != nil && gwErr.Message != "" {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("%s: %s", msg, gwErr.Message))
	}
	return pkgerrors.New(pkgerrors.CodeDependency, msg)
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}

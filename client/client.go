// Package client implements the BookBloom API facade. Every server
// call goes through it: the facade attaches the bearer token when a
// session exists, normalizes failures into a single human-readable
// message, and refuses protected operations locally when no session
// is present. It holds no view-model state; callers re-fetch after
// mutations (read-after-write, no local cache).
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/aluiziolira/go-bookbloom/config"
	"github.com/aluiziolira/go-bookbloom/models"
	"github.com/aluiziolira/go-bookbloom/session"
)

// Client is the single choke point for all BookBloom API traffic.
type Client struct {
	cfg     *config.Config
	http    *http.Client
	session *session.Store
	Metrics *Metrics
}

// New builds a client for cfg using store for session persistence.
func New(cfg *config.Config, store *session.Store) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		session: store,
		Metrics: NewMetrics(),
	}, nil
}

// WithTransport replaces the underlying round tripper. Used by tests
// to inject a mock transport.
func (c *Client) WithTransport(rt http.RoundTripper) {
	c.http.Transport = rt
}

// Authenticated reports whether a session token is present. A
// persisted token is trusted until a protected call fails.
func (c *Client) Authenticated() bool {
	_, ok := c.session.Token()
	return ok
}

// RequestOption mutates an outgoing request after the defaults are
// applied, so caller-supplied values win over them.
type RequestOption func(*http.Request)

// WithHeader sets a request header, overriding any default.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// do issues one request and decodes the response into out (when out
// is non-nil). Exactly one outcome per call: a decoded body or a
// normalized error. No retries.
func (c *Client) do(ctx context.Context, operation, method, path string, body, out any, opts ...RequestOption) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c.Metrics.IncRequest(operation)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if token, ok := c.session.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, opt := range opts {
		opt(req)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		category := errorCategory(err, 0)
		c.Metrics.IncError(category)
		slog.Debug("request failed",
			slog.String("operation", operation),
			slog.String("category", category),
			slog.Any("error", err),
		)
		return &APIError{Message: requestFailedMessage, Err: err}
	}
	defer resp.Body.Close()
	c.Metrics.ObserveDuration(time.Since(start))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.Metrics.IncError("transport")
		return &APIError{Message: requestFailedMessage, Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		category := errorCategory(nil, resp.StatusCode)
		c.Metrics.IncError(category)
		message := errorMessage(resp.StatusCode, respBody)
		slog.Debug("api error",
			slog.String("operation", operation),
			slog.Int("status", resp.StatusCode),
			slog.String("message", message),
		)
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Do issues a raw API request through the facade's header and error
// policy, for endpoints the typed operations do not cover.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	return c.do(ctx, "raw", method, path, body, out, opts...)
}

// requireSession refuses a protected operation locally when no
// session exists; no network call is made in that case.
func (c *Client) requireSession() error {
	if _, ok := c.session.Token(); !ok {
		c.Metrics.IncError("auth_required")
		return ErrAuthRequired
	}
	return nil
}

// Login authenticates and stores the issued bearer token in the
// session store. Requests made after Login returns carry the new
// token; there is no stale-token window.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var token models.Token
	creds := models.Credentials{Email: email, Password: password}
	if err := c.do(ctx, "login", http.MethodPost, "/api/login", creds, &token); err != nil {
		return err
	}
	if token.AccessToken == "" {
		return &APIError{Message: requestFailedMessage, Err: fmt.Errorf("login response missing access token")}
	}
	if err := c.session.Set(token.AccessToken); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// Register creates an account and returns the server's user record.
// It does not establish a session; chain Login with the same
// credentials afterwards.
func (c *Client) Register(ctx context.Context, firstName, lastName, email, password, socialHandle string) (*models.UserProfile, error) {
	reg := models.NewRegistration(firstName, lastName, email, password, socialHandle)
	var profile models.UserProfile
	if err := c.do(ctx, "register", http.MethodPost, "/api/register", reg, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Logout clears the session in memory and on disk. Logging out when
// already logged out is a no-op.
func (c *Client) Logout() error {
	return c.session.Clear()
}

// ListBooks fetches the catalog. A non-empty search term is appended
// as a URL-encoded "search" query parameter; an empty term lists
// everything and sends no parameter at all. The result is never nil:
// an empty catalog is distinct from "not yet loaded".
func (c *Client) ListBooks(ctx context.Context, search string) ([]models.Book, error) {
	path := "/api/books"
	if search != "" {
		path += "?search=" + url.QueryEscape(search)
	}

	var books []models.Book
	if err := c.do(ctx, "list_books", http.MethodGet, path, nil, &books); err != nil {
		return nil, err
	}
	if books == nil {
		books = []models.Book{}
	}
	return books, nil
}

// AddToCart puts one copy of a book in the cart. The server
// increments the quantity if the book is already present.
func (c *Client) AddToCart(ctx context.Context, bookID int) error {
	if err := c.requireSession(); err != nil {
		return err
	}
	payload := struct {
		BookID   int `json:"book_id"`
		Quantity int `json:"quantity"`
	}{BookID: bookID, Quantity: 1}
	return c.do(ctx, "add_to_cart", http.MethodPost, "/api/cart/add", payload, nil)
}

// GetCart fetches the current cart contents.
func (c *Client) GetCart(ctx context.Context) ([]models.CartItem, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	var items []models.CartItem
	if err := c.do(ctx, "get_cart", http.MethodGet, "/api/cart", nil, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.CartItem{}
	}
	return items, nil
}

// UpdateCartItem sets the quantity of a cart row. A quantity of zero
// or less removes the row instead of issuing a non-positive update.
func (c *Client) UpdateCartItem(ctx context.Context, bookID, quantity int) error {
	if quantity <= 0 {
		return c.RemoveFromCart(ctx, bookID)
	}
	if err := c.requireSession(); err != nil {
		return err
	}
	payload := struct {
		Quantity int `json:"quantity"`
	}{Quantity: quantity}
	return c.do(ctx, "update_cart_item", http.MethodPut, fmt.Sprintf("/api/cart/%d", bookID), payload, nil)
}

// RemoveFromCart deletes a cart row. Removing an absent row succeeds
// unless the server reports an error.
func (c *Client) RemoveFromCart(ctx context.Context, bookID int) error {
	if err := c.requireSession(); err != nil {
		return err
	}
	return c.do(ctx, "remove_from_cart", http.MethodDelete, fmt.Sprintf("/api/cart/%d", bookID), nil, nil)
}

// Checkout places the order for the current cart. The caller should
// re-fetch the cart afterwards; the facade caches nothing.
func (c *Client) Checkout(ctx context.Context) (*models.Order, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	var order models.Order
	if err := c.do(ctx, "checkout", http.MethodPost, "/api/checkout", nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Profile fetches the authenticated user's account record.
func (c *Client) Profile(ctx context.Context) (*models.UserProfile, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	var profile models.UserProfile
	if err := c.do(ctx, "profile", http.MethodGet, "/api/me", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

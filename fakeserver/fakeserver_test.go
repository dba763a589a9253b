package fakeserver

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/aluiziolira/go-bookbloom/client"
	"github.com/aluiziolira/go-bookbloom/config"
	"github.com/aluiziolira/go-bookbloom/models"
	"github.com/aluiziolira/go-bookbloom/session"
)

func newFlowClient(t *testing.T, ts *httptest.Server) *client.Client {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.BaseURL = ts.URL
	cfg.TokenFile = filepath.Join(t.TempDir(), "token")

	store, err := session.NewStore(cfg.TokenFile)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	c, err := client.New(cfg, store)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestFullPurchaseFlow(t *testing.T) {
	ts := httptest.NewServer(New(DefaultCatalog()))
	defer ts.Close()

	c := newFlowClient(t, ts)
	ctx := context.Background()

	profile, err := c.Register(ctx, "Ada", "Lovelace", "ada@example.test", "secret", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if profile.SocialHandleURL != nil {
		t.Fatalf("empty social handle should come back null, got %v", *profile.SocialHandleURL)
	}
	if c.Authenticated() {
		t.Fatalf("register must not establish a session")
	}

	if _, err := c.Register(ctx, "Ada", "Lovelace", "ada@example.test", "secret", ""); err == nil || err.Error() != "Email already registered" {
		t.Fatalf("duplicate register err = %v, want Email already registered", err)
	}

	if err := c.Login(ctx, "ada@example.test", "wrong"); err == nil || err.Error() != "Invalid email or password" {
		t.Fatalf("bad login err = %v, want Invalid email or password", err)
	}
	if err := c.Login(ctx, "ada@example.test", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !c.Authenticated() {
		t.Fatalf("login should establish a session")
	}

	books, err := c.ListBooks(ctx, "")
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	if len(books) != 4 {
		t.Fatalf("catalog size = %d, want 4", len(books))
	}

	matches, err := c.ListBooks(ctx, "le guin")
	if err != nil {
		t.Fatalf("search books: %v", err)
	}
	if len(matches) != 1 || matches[0].Author != "Ursula K. Le Guin" {
		t.Fatalf("author search results: %+v", matches)
	}

	none, err := c.ListBooks(ctx, "zzz-no-such-book")
	if err != nil {
		t.Fatalf("empty search: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Fatalf("no-match search should be an empty slice, got %v", none)
	}

	// Adding the same book twice increments instead of duplicating.
	if err := c.AddToCart(ctx, 1); err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	if err := c.AddToCart(ctx, 1); err != nil {
		t.Fatalf("add to cart again: %v", err)
	}
	if err := c.AddToCart(ctx, 2); err != nil {
		t.Fatalf("add second book: %v", err)
	}

	items, err := c.GetCart(ctx)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("cart rows = %d, want 2", len(items))
	}
	if items[0].Book.ID != 1 || items[0].Quantity != 2 {
		t.Fatalf("first row = %+v, want book 1 x2", items[0])
	}
	if !almostEqual(items[0].Subtotal, 2*9.99) {
		t.Fatalf("subtotal = %v, want %v", items[0].Subtotal, 2*9.99)
	}

	if err := c.UpdateCartItem(ctx, 1, 3); err != nil {
		t.Fatalf("update quantity: %v", err)
	}
	if err := c.RemoveFromCart(ctx, 2); err != nil {
		t.Fatalf("remove from cart: %v", err)
	}
	// Removing an absent row is still a success.
	if err := c.RemoveFromCart(ctx, 2); err != nil {
		t.Fatalf("remove absent row: %v", err)
	}

	if err := c.UpdateCartItem(ctx, 4, 2); err == nil || err.Error() != "Book not found in cart" {
		t.Fatalf("update absent row err = %v, want Book not found in cart", err)
	}

	order, err := c.Checkout(ctx)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if !almostEqual(order.Total, 3*9.99) {
		t.Fatalf("order total = %v, want %v", order.Total, 3*9.99)
	}
	if order.OrderID == "" {
		t.Fatalf("order id should be set")
	}

	after, err := c.GetCart(ctx)
	if err != nil {
		t.Fatalf("get cart after checkout: %v", err)
	}
	if len(after) != 0 {
		t.Fatalf("cart should be empty after checkout, got %d rows", len(after))
	}

	if _, err := c.Checkout(ctx); err == nil || err.Error() != "Cart is empty" {
		t.Fatalf("empty checkout err = %v, want Cart is empty", err)
	}

	me, err := c.Profile(ctx)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if me.Email != "ada@example.test" || me.CreatedAt.IsZero() {
		t.Fatalf("unexpected profile: %+v", me)
	}
}

func TestProtectedEndpointsRejectMissingToken(t *testing.T) {
	ts := httptest.NewServer(New(DefaultCatalog()))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/cart")
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["detail"] != "Not authenticated" {
		t.Fatalf("detail = %q, want Not authenticated", body["detail"])
	}

	// The facade refuses locally before the wire for the same case.
	c := newFlowClient(t, ts)
	if _, err := c.GetCart(context.Background()); !errors.Is(err, client.ErrAuthRequired) {
		t.Fatalf("facade err = %v, want ErrAuthRequired", err)
	}
}

func TestSearchMatchesTitleAndAuthor(t *testing.T) {
	ts := httptest.NewServer(New(DefaultCatalog()))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/books?search=dune")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	defer resp.Body.Close()

	var books []models.Book
	if err := json.NewDecoder(resp.Body).Decode(&books); err != nil {
		t.Fatalf("decode books: %v", err)
	}
	if len(books) != 1 || books[0].Title != "Dune" {
		t.Fatalf("search results: %+v", books)
	}
}

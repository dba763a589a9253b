// Package fakeserver is an in-memory stand-in for the BookBloom API,
// used by integration tests and local development. It mirrors the
// production contract: bearer auth, "detail" error bodies, cart adds
// that increment existing rows, quantity updates at or below zero
// removing the row, and checkout clearing the cart.
package fakeserver

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/go-bookbloom/models"
	"github.com/go-chi/chi/v5"
)

type user struct {
	profile  models.UserProfile
	password string
}

type cartRow struct {
	bookID   int
	quantity int
}

// Server holds the whole API state in memory. Safe for concurrent use.
type Server struct {
	mu       sync.Mutex
	books    []models.Book
	users    map[string]*user     // keyed by email
	tokens   map[string]string    // token -> email
	carts    map[string][]cartRow // email -> rows, insertion order kept
	nextID   int
	orderSeq int

	handler http.Handler
	Metrics *Metrics
}

// New builds a server seeded with the given catalog.
func New(books []models.Book) *Server {
	s := &Server{
		books:   append([]models.Book(nil), books...),
		users:   make(map[string]*user),
		tokens:  make(map[string]string),
		carts:   make(map[string][]cartRow),
		nextID:  1,
		Metrics: NewMetrics(),
	}

	r := chi.NewRouter()
	r.Use(s.countRequests)

	r.Post("/api/register", s.handleRegister)
	r.Post("/api/login", s.handleLogin)
	r.Get("/api/books", s.handleListBooks)
	r.Get("/api/books/{bookID}", s.handleGetBook)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post("/api/cart/add", s.handleAddToCart)
		r.Get("/api/cart", s.handleGetCart)
		r.Put("/api/cart/{bookID}", s.handleUpdateCart)
		r.Delete("/api/cart/{bookID}", s.handleRemoveFromCart)
		r.Post("/api/checkout", s.handleCheckout)
		r.Get("/api/me", s.handleMe)
	})

	s.handler = r
	return s
}

// ServeHTTP dispatches to the underlying router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// DefaultCatalog returns the seed books the dev server starts with.
func DefaultCatalog() []models.Book {
	return []models.Book{
		{ID: 1, Title: "Dune", Author: "Frank Herbert", ISBN: "9780441013593", YearOfRelease: 1965, Price: 9.99, Category: "Science Fiction", State: "like new"},
		{ID: 2, Title: "The Left Hand of Darkness", Author: "Ursula K. Le Guin", ISBN: "9780441478125", YearOfRelease: 1969, Price: 7.5, Category: "Science Fiction", State: "good"},
		{ID: 3, Title: "Pride and Prejudice", Author: "Jane Austen", YearOfRelease: 1813, Price: 4.25, Category: "Classic", State: "worn"},
		{ID: 4, Title: "Clean Architecture", Author: "Robert C. Martin", ISBN: "9780134494166", YearOfRelease: 2017, Price: 28.0, Category: "Software", State: "new"},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Metrics.IncRequest(r.Method)
		next.ServeHTTP(w, r)
	})
}

type contextKey string

const emailKey contextKey = "email"

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		s.mu.Lock()
		email, found := s.tokens[token]
		s.mu.Unlock()
		if !found {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		next.ServeHTTP(w, r.WithContext(withEmail(r.Context(), email)))
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg models.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if reg.Email == "" || reg.Password == "" || reg.FirstName == "" || reg.LastName == "" {
		writeDetail(w, http.StatusBadRequest, "Registration failed")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[reg.Email]; exists {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}

	profile := models.UserProfile{
		ID:              s.nextID,
		FirstName:       reg.FirstName,
		LastName:        reg.LastName,
		Email:           reg.Email,
		SocialHandleURL: reg.SocialHandleURL,
		CreatedAt:       time.Now().UTC().Truncate(time.Second),
	}
	s.nextID++
	s.users[reg.Email] = &user{profile: profile, password: reg.Password}

	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[creds.Email]
	if !ok || u.password != creds.Password {
		writeDetail(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token := newToken()
	s.tokens[token] = creds.Email

	writeJSON(w, http.StatusOK, models.Token{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	search := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("search")))

	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]models.Book, 0, len(s.books))
	for _, book := range s.books {
		if search != "" &&
			!strings.Contains(strings.ToLower(book.Title), search) &&
			!strings.Contains(strings.ToLower(book.Author), search) {
			continue
		}
		results = append(results, book)
	}

	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "bookID"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid book id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.findBook(id)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Book not found")
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		BookID   int `json:"book_id"`
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if payload.Quantity <= 0 {
		payload.Quantity = 1
	}

	email := emailFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.findBook(payload.BookID); !ok {
		writeDetail(w, http.StatusNotFound, "Book not found")
		return
	}

	rows := s.carts[email]
	for i := range rows {
		if rows[i].bookID == payload.BookID {
			rows[i].quantity += payload.Quantity
			writeJSON(w, http.StatusOK, map[string]string{"message": "Book added to cart successfully"})
			return
		}
	}
	s.carts[email] = append(rows, cartRow{bookID: payload.BookID, quantity: payload.Quantity})

	writeJSON(w, http.StatusOK, map[string]string{"message": "Book added to cart successfully"})
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	email := emailFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	writeJSON(w, http.StatusOK, s.cartItemsLocked(email))
}

func (s *Server) handleUpdateCart(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "bookID"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid book id")
		return
	}

	var payload struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	email := emailFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	if payload.Quantity <= 0 {
		s.removeRowLocked(email, id)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Book removed from cart"})
		return
	}

	rows := s.carts[email]
	for i := range rows {
		if rows[i].bookID == id {
			rows[i].quantity = payload.Quantity
			writeJSON(w, http.StatusOK, map[string]string{"message": "Cart updated successfully"})
			return
		}
	}

	writeDetail(w, http.StatusNotFound, "Book not found in cart")
}

func (s *Server) handleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "bookID"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid book id")
		return
	}

	email := emailFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Removing an absent row is still a success.
	s.removeRowLocked(email, id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Book removed from cart"})
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	email := emailFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.cartItemsLocked(email)
	if len(items) == 0 {
		writeDetail(w, http.StatusBadRequest, "Cart is empty")
		return
	}

	total := models.CartTotal(items)
	s.orderSeq++
	userID := 0
	if u, ok := s.users[email]; ok {
		userID = u.profile.ID
	}
	s.carts[email] = nil

	writeJSON(w, http.StatusOK, models.Order{
		OrderID: fmt.Sprintf("ORDER_%d_%d", userID, s.orderSeq),
		Total:   total,
		Message: "Order processed successfully",
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	email := emailFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[email]
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	writeJSON(w, http.StatusOK, u.profile)
}

func (s *Server) findBook(id int) (models.Book, bool) {
	for _, book := range s.books {
		if book.ID == id {
			return book, true
		}
	}
	return models.Book{}, false
}

func (s *Server) cartItemsLocked(email string) []models.CartItem {
	rows := s.carts[email]
	items := make([]models.CartItem, 0, len(rows))
	for _, row := range rows {
		book, ok := s.findBook(row.bookID)
		if !ok {
			continue
		}
		items = append(items, models.CartItem{
			Book:     book,
			Quantity: row.quantity,
			Subtotal: book.Price * float64(row.quantity),
		})
	}
	return items
}

func (s *Server) removeRowLocked(email string, bookID int) {
	rows := s.carts[email]
	kept := rows[:0]
	for _, row := range rows {
		if row.bookID != bookID {
			kept = append(kept, row)
		}
	}
	s.carts[email] = kept
}

func newToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("token source unavailable: %v", err))
	}
	return hex.EncodeToString(buf)
}

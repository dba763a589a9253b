// Package models defines the view-model types exchanged with the
// BookBloom API. All of them are transient snapshots of server-owned
// data; the client never caches them across requests.
package models

import "time"

// Book is a catalog entry. Read-only from the client's perspective.
// Optional fields come back as JSON null and stay at their zero value.
type Book struct {
	ID            int     `csv:"id" json:"id"`
	Title         string  `csv:"title" json:"title"`
	Author        string  `csv:"author" json:"author"`
	ISBN          string  `csv:"isbn" json:"isbn,omitempty"`
	YearOfRelease int     `csv:"year_of_release" json:"year_of_release,omitempty"`
	Price         float64 `csv:"price" json:"price,omitempty"`
	Category      string  `csv:"category" json:"category,omitempty"`
	State         string  `csv:"state" json:"state,omitempty"`
}

// CartItem is one cart row. Subtotal is computed server-side; the
// client only sums subtotals for the displayed total.
type CartItem struct {
	Book     Book    `json:"book"`
	Quantity int     `json:"quantity"`
	Subtotal float64 `json:"subtotal"`
}

// UserProfile is the account record returned by the profile endpoint.
type UserProfile struct {
	ID              int       `json:"id"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Email           string    `json:"email"`
	SocialHandleURL *string   `json:"social_handle_url"`
	CreatedAt       time.Time `json:"created_at"`
}

// Order is the checkout result. It is not retained after the caller
// is done displaying it.
type Order struct {
	OrderID string  `json:"order_id"`
	Total   float64 `json:"total"`
	Message string  `json:"message,omitempty"`
}

// Token is the login response payload.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Credentials is the login request payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the register request payload. SocialHandleURL is a
// pointer so an omitted handle marshals as JSON null rather than an
// empty string.
type Registration struct {
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	SocialHandleURL *string `json:"social_handle_url"`
}

// NewRegistration builds a registration payload, mapping an empty
// social handle to null.
func NewRegistration(firstName, lastName, email, password, socialHandle string) Registration {
	reg := Registration{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Password:  password,
	}
	if socialHandle != "" {
		reg.SocialHandleURL = &socialHandle
	}
	return reg
}

// CartTotal sums the server-computed subtotals for display.
func CartTotal(items []CartItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Subtotal
	}
	return total
}

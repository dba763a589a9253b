package fakeserver

import (
	"context"
	"net/http"
)

func withEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, emailKey, email)
}

// emailFrom returns the authenticated user's email. Only reachable
// behind requireAuth, so the value is always present.
func emailFrom(r *http.Request) string {
	email, _ := r.Context().Value(emailKey).(string)
	return email
}

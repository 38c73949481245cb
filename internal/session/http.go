package session

import (
	"net/http"

	"github.com/google/uuid"
)

const (
	HeaderName = "X-Session-ID"
	CookieName = "levelup_session"
)

// FromRequest returns the session id from the X-Session-ID header or the session cookie,
// or "" when the request carries neither.
func FromRequest(r *http.Request) string {
	if id := r.Header.Get(HeaderName); id != "" {
		return id
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// Ensure returns the request's session id, issuing a new one when absent. A new id is sent
// back in both the header and the cookie.
func Ensure(w http.ResponseWriter, r *http.Request) string {
	if id := FromRequest(r); id != "" {
		return id
	}

	id := uuid.New().String()
	w.Header().Set(HeaderName, id)
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

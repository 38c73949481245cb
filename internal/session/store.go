// Package session keeps per-browser-session state: the cart snapshot and the logged-in user.
package session

import (
	"context"

	"github.com/joao-fontenele/levelup-gamer/internal/domain"
)

const (
	cartKeyPrefix = "levelup:cart:"
	userKeyPrefix = "levelup:user:"
)

type Store interface {
	GetCart(ctx context.Context, sessionID string) ([]domain.CartLine, error)
	SaveCart(ctx context.Context, sessionID string, lines []domain.CartLine) error
	// GetCurrentUser returns nil when nobody is logged in on the session.
	GetCurrentUser(ctx context.Context, sessionID string) (*domain.User, error)
	SetCurrentUser(ctx context.Context, sessionID string, user domain.User) error
	ClearCurrentUser(ctx context.Context, sessionID string) error
}

func CartKey(sessionID string) string {
	return cartKeyPrefix + sessionID
}

func UserKey(sessionID string) string {
	return userKeyPrefix + sessionID
}

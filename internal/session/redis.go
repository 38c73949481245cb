package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/joao-fontenele/levelup-gamer/internal/domain"
)

type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// Connect opens a client and pings it before returning.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// NewRedis stores session values with a sliding ttl; zero keeps them forever.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (s *Redis) GetCart(ctx context.Context, sessionID string) ([]domain.CartLine, error) {
	var lines []domain.CartLine
	found, err := s.get(ctx, CartKey(sessionID), &lines)
	if err != nil {
		return nil, err
	}
	if !found || lines == nil {
		return []domain.CartLine{}, nil
	}
	return lines, nil
}

func (s *Redis) SaveCart(ctx context.Context, sessionID string, lines []domain.CartLine) error {
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return s.set(ctx, CartKey(sessionID), lines)
}

func (s *Redis) GetCurrentUser(ctx context.Context, sessionID string) (*domain.User, error) {
	var user domain.User
	found, err := s.get(ctx, UserKey(sessionID), &user)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

func (s *Redis) SetCurrentUser(ctx context.Context, sessionID string, user domain.User) error {
	return s.set(ctx, UserKey(sessionID), user.Public())
}

func (s *Redis) ClearCurrentUser(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, UserKey(sessionID)).Err(); err != nil {
		return &domain.PersistenceError{Op: "clear current user", Err: err}
	}
	return nil
}

func (s *Redis) get(ctx context.Context, key string, v any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}

	if s.ttl > 0 {
		_ = s.client.Expire(ctx, key, s.ttl).Err()
	}
	return true, nil
}

func (s *Redis) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return &domain.PersistenceError{Op: "save " + key, Err: err}
	}
	return nil
}

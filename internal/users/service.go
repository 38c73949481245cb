// Package users handles registration, login and the back-office user list.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/joao-fontenele/levelup-gamer/internal/domain"
	"github.com/joao-fontenele/levelup-gamer/internal/events"
	"github.com/joao-fontenele/levelup-gamer/internal/session"
	"github.com/joao-fontenele/levelup-gamer/internal/validation"
)

const (
	StaffEmailDomain   = "levelupgamer.cl"
	StudentEmailDomain = "duocuc.cl"

	// StudentDiscount is the lifetime percentage granted to Duoc UC addresses.
	StudentDiscount = 20.0
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type RegisterInput struct {
	RUT             string `json:"rut" validate:"required,rut"`
	Name            string `json:"name" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email,max=100"`
	Password        string `json:"password" validate:"required,min=4,max=10"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	Birthdate       string `json:"birthdate" validate:"required,adult"`
	Region          string `json:"region" validate:"max=80"`
	Comuna          string `json:"comuna" validate:"max=80"`
	Address         string `json:"address" validate:"max=300"`
}

// UserInput is the back-office form. Password is optional on update.
type UserInput struct {
	RUT                string          `json:"rut" validate:"required,rut"`
	Name               string          `json:"name" validate:"required,max=100"`
	Email              string          `json:"email" validate:"required,email,max=100"`
	Password           string          `json:"password" validate:"omitempty,min=4,max=10"`
	Birthdate          string          `json:"birthdate" validate:"omitempty,datetime=2006-01-02"`
	UserType           domain.UserType `json:"userType" validate:"required,oneof=Cliente Vendedor Administrador"`
	Region             string          `json:"region" validate:"max=80"`
	Comuna             string          `json:"comuna" validate:"max=80"`
	Address            string          `json:"address" validate:"max=300"`
	DiscountPercentage *float64        `json:"discountPercentage" validate:"omitempty,gte=0,lte=100"`
}

type Service struct {
	repo     *UserRepository
	sessions session.Store
	events   events.Publisher
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo *UserRepository, sessions session.Store, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		sessions: sessions,
		events:   publisher,
		logger:   logger,
		now:      time.Now,
	}
}

// AssignEmailDomain moves staff addresses onto the store's domain, keeping the local part.
// Customer addresses are returned unchanged.
func AssignEmailDomain(email string, userType domain.UserType) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if !userType.Staff() {
		return email
	}
	local, _, _ := strings.Cut(email, "@")
	return local + "@" + StaffEmailDomain
}

func studentDiscount(email string) *float64 {
	if !strings.HasSuffix(strings.ToLower(email), "@"+StudentEmailDomain) {
		return nil
	}
	d := StudentDiscount
	return &d
}

// Register creates a customer account and logs it in on the session.
func (s *Service) Register(ctx context.Context, sessionID string, in RegisterInput) (domain.User, error) {
	if err := validation.Struct(in); err != nil {
		return domain.User{}, err
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	rut := validation.FormatRUT(in.RUT)
	if err := s.checkUnique(ctx, "", email, rut); err != nil {
		return domain.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		RUT:                rut,
		Name:               strings.TrimSpace(in.Name),
		Email:              email,
		PasswordHash:       string(hash),
		Birthdate:          in.Birthdate,
		UserType:           domain.UserTypeCustomer,
		Region:             in.Region,
		Comuna:             in.Comuna,
		Address:            in.Address,
		DiscountPercentage: studentDiscount(email),
	}
	if err := s.repo.Create(ctx, &user); err != nil {
		return domain.User{}, err
	}

	s.logger.Info("user registered", "user_id", user.ID, "student_discount", user.DiscountPercentage != nil)

	if err := s.setCurrent(ctx, sessionID, user); err != nil {
		return domain.User{}, err
	}
	return user.Public(), nil
}

func (s *Service) Login(ctx context.Context, sessionID, email, password string) (domain.User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}

	if err := s.setCurrent(ctx, sessionID, user); err != nil {
		return domain.User{}, err
	}

	s.logger.Info("user logged in", "user_id", user.ID, "session_id", sessionID)
	return user.Public(), nil
}

func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.ClearCurrentUser(ctx, sessionID); err != nil {
		return &domain.PersistenceError{Op: "clear current user", Err: err}
	}
	s.events.Publish(events.Event{Kind: events.AuthChange, SessionID: sessionID, At: s.now()})
	return nil
}

// Current returns the session's user, or nil for a guest.
func (s *Service) Current(ctx context.Context, sessionID string) (*domain.User, error) {
	return s.sessions.GetCurrentUser(ctx, sessionID)
}

func (s *Service) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i] = users[i].Public()
	}
	return users, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	return user.Public(), nil
}

func (s *Service) Create(ctx context.Context, in UserInput) (domain.User, error) {
	if err := validation.Struct(in); err != nil {
		return domain.User{}, err
	}
	if in.Password == "" {
		return domain.User{}, domain.NewValidationError("password", "is required")
	}

	email := AssignEmailDomain(in.Email, in.UserType)
	rut := validation.FormatRUT(in.RUT)
	if err := s.checkUnique(ctx, "", email, rut); err != nil {
		return domain.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	discount := in.DiscountPercentage
	if discount == nil {
		discount = studentDiscount(email)
	}

	user := domain.User{
		RUT:                rut,
		Name:               strings.TrimSpace(in.Name),
		Email:              email,
		PasswordHash:       string(hash),
		Birthdate:          in.Birthdate,
		UserType:           in.UserType,
		Region:             in.Region,
		Comuna:             in.Comuna,
		Address:            in.Address,
		DiscountPercentage: discount,
	}
	if err := s.repo.Create(ctx, &user); err != nil {
		return domain.User{}, err
	}

	s.logger.Info("user created", "user_id", user.ID, "user_type", user.UserType)
	return user.Public(), nil
}

func (s *Service) Update(ctx context.Context, id string, in UserInput) (domain.User, error) {
	if err := validation.Struct(in); err != nil {
		return domain.User{}, err
	}

	email := AssignEmailDomain(in.Email, in.UserType)
	rut := validation.FormatRUT(in.RUT)
	if err := s.checkUnique(ctx, id, email, rut); err != nil {
		return domain.User{}, err
	}

	patch := map[string]any{
		"rut":       rut,
		"name":      strings.TrimSpace(in.Name),
		"email":     email,
		"birthdate": in.Birthdate,
		"userType":  in.UserType,
		"region":    in.Region,
		"comuna":    in.Comuna,
		"address":   in.Address,
	}
	if in.DiscountPercentage != nil {
		patch["discountPercentage"] = *in.DiscountPercentage
	}
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return domain.User{}, fmt.Errorf("hash password: %w", err)
		}
		patch["passwordHash"] = string(hash)
	}

	user, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return domain.User{}, err
	}

	s.logger.Info("user updated", "user_id", user.ID)
	return user.Public(), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// checkUnique rejects an email or RUT already held by a user other than selfID.
func (s *Service) checkUnique(ctx context.Context, selfID, email, rut string) error {
	byEmail, err := s.repo.GetByEmail(ctx, email)
	found, err := exists(byEmail, err)
	if err != nil {
		return err
	}
	if found && byEmail.ID != selfID {
		return domain.NewValidationError("email", "is already registered")
	}

	byRUT, err := s.repo.GetByRUT(ctx, rut)
	found, err = exists(byRUT, err)
	if err != nil {
		return err
	}
	if found && byRUT.ID != selfID {
		return domain.NewValidationError("rut", "is already registered")
	}
	return nil
}

func (s *Service) setCurrent(ctx context.Context, sessionID string, user domain.User) error {
	if err := s.sessions.SetCurrentUser(ctx, sessionID, user.Public()); err != nil {
		return &domain.PersistenceError{Op: "set current user", Err: err}
	}
	s.events.Publish(events.Event{
		Kind:      events.AuthChange,
		SessionID: sessionID,
		Payload:   map[string]string{"userId": user.ID},
		At:        s.now(),
	})
	return nil
}

// Package auth realizes the account/session surface the original platform
// delegated to a hosted service: sign-up into the users collection, opaque
// revocable session tokens, and per-client session change notifications.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/moastrends/newsroom/model"
	"github.com/moastrends/newsroom/store"
	"github.com/pkg/errors"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidSignUp      = errors.New("email, password and full name are required")
	ErrNotAdmin           = errors.New("account does not have the admin role")
)

// DefaultSessionTTL bounds how long a session token stays valid without a
// fresh sign-in.
const DefaultSessionTTL = 24 * time.Hour

type Service struct {
	store      store.Store
	tokens     TokenStore
	sessionTTL time.Duration
}

func NewService(st store.Store, tokens TokenStore) *Service {
	return &Service{store: st, tokens: tokens, sessionTTL: DefaultSessionTTL}
}

// SignUp registers a new account with the "user" role. Elevated roles are
// granted out of band, never at sign-up.
func (s *Service) SignUp(ctx context.Context, email, password, fullName string) (*model.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	fullName = strings.TrimSpace(fullName)
	if email == "" || !strings.Contains(email, "@") || password == "" || fullName == "" {
		return nil, ErrInvalidSignUp
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	user := &model.User{
		Id:           uuid.New().String(),
		CreatedAt:    time.Now(),
		Email:        email,
		FullName:     fullName,
		Role:         model.RoleUser,
		PasswordHash: hash,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, errors.Wrap(err, "create account")
	}
	return user, nil
}

// SignIn verifies the credential pair and issues a fresh session token.
func (s *Service) SignIn(ctx context.Context, email, password string) (string, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return "", err
	}
	return s.issueToken(ctx, user.Id)
}

// SignInAdmin is SignIn plus a role check, used by the admin login route.
// The check reads the role column, it never compares against a literal email.
func (s *Service) SignInAdmin(ctx context.Context, email, password string) (string, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return "", err
	}
	if user.Role != model.RoleAdmin {
		return "", ErrNotAdmin
	}
	return s.issueToken(ctx, user.Id)
}

func (s *Service) authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, errors.Wrap(err, "look up account")
	}
	if !VerifyPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) issueToken(ctx context.Context, accountId string) (string, error) {
	token := uuid.New().String()
	if err := s.tokens.Save(ctx, token, accountId, s.sessionTTL); err != nil {
		return "", errors.Wrap(err, "save session token")
	}
	return token, nil
}

// SignOut revokes the session token. Revoking an unknown token is not an
// error.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.tokens.Revoke(ctx, token)
}

// Session resolves a token to the account id it belongs to. An empty token
// means no session and is not an error.
func (s *Service) Session(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", nil
	}
	accountId, err := s.tokens.Lookup(ctx, token)
	if errors.Is(err, ErrNoSession) {
		return "", nil
	}
	return accountId, err
}

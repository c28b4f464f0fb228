package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/contactsbook/apiserver/config"
	"github.com/contactsbook/apiserver/types"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Token scopes discriminate the three token kinds the service issues.
// A token presented with the wrong scope is rejected regardless of its
// signature and expiry.
const (
	ScopeAccess  = "access_token"
	ScopeRefresh = "refresh_token"
	ScopeEmail   = "email_token"
)

var (
	// ErrInvalidEmail is returned when no account matches the email.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrInvalidPassword is returned when the password does not match.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrEmailNotConfirmed is returned when an unverified account logs in.
	ErrEmailNotConfirmed = errors.New("email not confirmed")
	// ErrInvalidToken is returned for malformed, expired, forged, or
	// wrong-scope tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidRefreshToken is returned when a presented refresh token
	// does not match the one last issued; the session is invalidated.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// VerificationSender delivers an email-verification message, either
// directly over SMTP or through a queue consumed by the mail worker.
type VerificationSender interface {
	SendVerification(ctx context.Context, to, username, token string) error
}

type tokenClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// TokenPair is the credential pair returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// AuthService issues and validates tokens and resolves the current user.
type AuthService struct {
	users  UserRepository
	sender VerificationSender
	secret []byte
	logger *slog.Logger

	accessTTL  time.Duration
	refreshTTL time.Duration
	emailTTL   time.Duration
}

func NewAuthService(users UserRepository, sender VerificationSender, cfg config.JWTConfig) *AuthService {
	return &AuthService{
		users:      users,
		sender:     sender,
		secret:     []byte(cfg.Secret),
		logger:     slog.Default(),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		emailTTL:   cfg.EmailTTL,
	}
}

// Register creates an unconfirmed account and queues a verification
// email. A duplicate email surfaces as store.ErrConflict. A failed send
// does not fail the signup: the account exists at that point, so the
// failure is logged and the user can re-request the mail.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (types.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.users.Create(ctx, types.User{
		Username: username,
		Email:    email,
		Password: string(hashed),
		Role:     types.RoleUser,
	})
	if err != nil {
		return types.User{}, err
	}

	if err := s.sendVerification(ctx, user); err != nil {
		s.logger.Error("failed to send verification mail on signup", "email", user.Email, "error", err)
	}
	return user, nil
}

// Login verifies credentials and issues a fresh token pair. The new
// refresh token replaces the stored one.
func (s *AuthService) Login(ctx context.Context, email, password string) (TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return TokenPair{}, ErrInvalidEmail
	}
	if !user.Confirmed {
		return TokenPair{}, ErrEmailNotConfirmed
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return TokenPair{}, ErrInvalidPassword
	}
	return s.issuePair(ctx, user)
}

// Refresh exchanges a valid refresh token for a new pair, rotating the
// stored token. A mismatch against the stored token clears it, forcing
// the user to log in again.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	email, err := s.ParseToken(refreshToken, ScopeRefresh)
	if err != nil {
		return TokenPair{}, ErrInvalidRefreshToken
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return TokenPair{}, ErrInvalidRefreshToken
	}
	if user.RefreshToken != refreshToken {
		_ = s.users.UpdateRefreshToken(ctx, user.ID, "")
		return TokenPair{}, ErrInvalidRefreshToken
	}
	return s.issuePair(ctx, user)
}

// CurrentUser resolves the account behind an access token.
func (s *AuthService) CurrentUser(ctx context.Context, accessToken string) (types.User, error) {
	email, err := s.ParseToken(accessToken, ScopeAccess)
	if err != nil {
		return types.User{}, ErrInvalidToken
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return types.User{}, ErrInvalidToken
	}
	return user, nil
}

// ConfirmEmail redeems an email-verification token. The returned flag
// reports whether the account was already confirmed.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) (bool, error) {
	email, err := s.ParseToken(token, ScopeEmail)
	if err != nil {
		return false, ErrInvalidToken
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return false, ErrInvalidToken
	}
	if user.Confirmed {
		return true, nil
	}
	return false, s.users.ConfirmEmail(ctx, email)
}

// RequestVerification re-sends the verification email for an
// unconfirmed account. Unknown emails and confirmed accounts are not
// distinguishable to the caller.
func (s *AuthService) RequestVerification(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil || user.Confirmed {
		return nil
	}
	return s.sendVerification(ctx, user)
}

func (s *AuthService) sendVerification(ctx context.Context, user types.User) error {
	token, err := s.IssueToken(user.Email, ScopeEmail, s.emailTTL)
	if err != nil {
		return err
	}
	return s.sender.SendVerification(ctx, user.Email, user.Username, token)
}

func (s *AuthService) issuePair(ctx context.Context, user types.User) (TokenPair, error) {
	access, err := s.IssueToken(user.Email, ScopeAccess, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.IssueToken(user.Email, ScopeRefresh, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.users.UpdateRefreshToken(ctx, user.ID, refresh); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
	}, nil
}

// IssueToken signs a token carrying the user's email as subject and the
// given scope.
func (s *AuthService) IssueToken(email, scope string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseToken validates signature, expiry, and scope, returning the
// subject email.
func (s *AuthService) ParseToken(tokenString, scope string) (string, error) {
	claims := tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Scope != scope {
		return "", errors.New("invalid token scope")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("missing subject")
	}
	return claims.Subject, nil
}

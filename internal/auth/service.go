package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/codecraftwt/loan-backend-sub000/internal/domain/apperr"
	userdomain "github.com/codecraftwt/loan-backend-sub000/internal/domain/user"
)

type Session struct {
	ID               string
	UserID           string
	RefreshTokenHash string
	UserAgent        string
	IPAddress        string
	ExpiresAt        time.Time
	RevokedAt        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type SessionRepository interface {
	Create(ctx context.Context, userID, refreshHash, userAgent, ipAddress string, expiresAt time.Time) (*Session, error)
	GetByID(ctx context.Context, sessionID string) (*Session, error)
	Revoke(ctx context.Context, sessionID string) error
	UpdateRefreshHash(ctx context.Context, sessionID, refreshHash string) error
}

type CodeStore interface {
	Issue(ctx context.Context, email string) (string, error)
	Consume(ctx context.Context, email, code string) (bool, error)
}

type Mailer interface {
	SendEmail(to, toName, subject, body string) error
}

type Service struct {
	users      userdomain.Repository
	sessions   SessionRepository
	jwt        *JWTManager
	codes      CodeStore
	mailer     Mailer
	logger     *slog.Logger
	accessTTL  time.Duration
	refreshTTL time.Duration
}

type AuthTokens struct {
	AccessToken  string
	RefreshToken string
	SessionID    string
	User         *userdomain.Entity
}

func NewService(
	users userdomain.Repository,
	sessions SessionRepository,
	jwt *JWTManager,
	codes CodeStore,
	mailer Mailer,
	logger *slog.Logger,
	accessTTL, refreshTTL time.Duration,
) *Service {
	return &Service{
		users:      users,
		sessions:   sessions,
		jwt:        jwt,
		codes:      codes,
		mailer:     mailer,
		logger:     logger,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     userdomain.Role
	IDNumber string
	Mobile   string
	Address  string
}

// Register creates a user with a fixed role. Borrowers must carry the
// national ID number that loans are registered against.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*userdomain.Entity, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" || in.Email == "" {
		return nil, apperr.Validation("INVALID_INPUT", "name and email are required")
	}
	if len(in.Password) < 8 {
		return nil, apperr.Validation("WEAK_PASSWORD", "password must be at least 8 characters")
	}
	if _, ok := userdomain.ParseRole(string(in.Role)); !ok || in.Role == userdomain.RoleAdmin {
		return nil, apperr.Validation("INVALID_ROLE", "role must be lender or borrower")
	}
	if in.Role == userdomain.RoleBorrower {
		if len(in.IDNumber) != 12 {
			return nil, apperr.Validation("INVALID_ID_NUMBER", "borrowers must register a 12-digit id number")
		}
	}
	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, apperr.Conflict("EMAIL_EXISTS", "an account with that email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.users.Create(ctx, userdomain.CreateInput{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
		IDNumber:     in.IDNumber,
		Mobile:       in.Mobile,
		Address:      in.Address,
	})
}

var errInvalidCredentials = errors.New("invalid credentials")

func (s *Service) Login(ctx context.Context, email, password, userAgent, ipAddress string) (*AuthTokens, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, errInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, errInvalidCredentials
	}

	bundle, err := s.createSessionAndTokens(ctx, u, userAgent, ipAddress)
	if err != nil {
		return nil, err
	}
	return &AuthTokens{AccessToken: bundle.AccessToken, RefreshToken: bundle.RefreshToken, SessionID: bundle.SessionID, User: u}, nil
}

type sessionBundle struct {
	AccessToken  string
	RefreshToken string
	SessionID    string
}

func (s *Service) Refresh(ctx context.Context, refreshToken, userAgent, ipAddress string) (*AuthTokens, error) {
	claims, err := s.jwt.Parse(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.Type != "refresh" {
		return nil, errors.New("invalid token type")
	}

	session, err := s.sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if session.RevokedAt != nil {
		return nil, errors.New("session revoked")
	}
	if time.Now().UTC().After(session.ExpiresAt) {
		return nil, errors.New("session expired")
	}
	if session.RefreshTokenHash != hashToken(refreshToken) {
		return nil, errors.New("refresh token mismatch")
	}

	if err := s.sessions.Revoke(ctx, session.ID); err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	bundle, err := s.createSessionAndTokens(ctx, u, userAgent, ipAddress)
	if err != nil {
		return nil, err
	}
	return &AuthTokens{AccessToken: bundle.AccessToken, RefreshToken: bundle.RefreshToken, SessionID: bundle.SessionID, User: u}, nil
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.jwt.Parse(refreshToken)
	if err != nil {
		return nil
	}
	if claims.Type != "refresh" || claims.SessionID == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, claims.SessionID)
}

func (s *Service) Me(ctx context.Context, userID string) (*userdomain.Entity, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *Service) RegisterDeviceToken(ctx context.Context, userID, token string) error {
	if strings.TrimSpace(token) == "" {
		return apperr.Validation("INVALID_TOKEN", "device token is required")
	}
	return s.users.AddDeviceToken(ctx, userID, strings.TrimSpace(token))
}

// ForgotPassword issues a short-lived code and emails it. It deliberately
// reports success for unknown addresses so the endpoint cannot be used to
// probe which emails are registered.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil
	}
	code, err := s.codes.Issue(ctx, email)
	if err != nil {
		return err
	}
	if err := s.mailer.SendEmail(u.Email, u.Name, "Password reset code",
		"Your password reset code is "+code+". It expires in a few minutes."); err != nil {
		s.logger.Error("send reset email", "email", email, "err", err)
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(newPassword) < 8 {
		return apperr.Validation("WEAK_PASSWORD", "password must be at least 8 characters")
	}
	ok, err := s.codes.Consume(ctx, email, code)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Validation("INVALID_CODE", "reset code is invalid or expired")
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return apperr.NotFound("USER_NOT_FOUND", "user not found")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, u.ID, string(hash))
}

func (s *Service) createSessionAndTokens(ctx context.Context, u *userdomain.Entity, userAgent, ipAddress string) (*sessionBundle, error) {
	expiresAt := time.Now().UTC().Add(s.refreshTTL)
	sessionSeed := uuid.NewString()
	session, err := s.sessions.Create(ctx, u.ID, hashToken(sessionSeed), userAgent, ipAddress, expiresAt)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.jwt.Mint(u.ID, string(u.Role), session.ID, "access", s.accessTTL)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.jwt.Mint(u.ID, string(u.Role), session.ID, "refresh", s.refreshTTL)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.UpdateRefreshHash(ctx, session.ID, hashToken(refreshToken)); err != nil {
		return nil, err
	}

	return &sessionBundle{AccessToken: accessToken, RefreshToken: refreshToken, SessionID: session.ID}, nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func ClientIP(r *http.Request) string {
	xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/MichaelKMarwa/recupio/internal/auth"
	"github.com/MichaelKMarwa/recupio/internal/domain"
	"github.com/MichaelKMarwa/recupio/internal/event"
	"github.com/MichaelKMarwa/recupio/internal/repository"
	apperrors "github.com/MichaelKMarwa/recupio/pkg/errors"
)

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// errInvalidCredentials is returned for every login failure so callers
// cannot tell an unknown email from a wrong password.
var errInvalidCredentials = apperrors.InvalidArgument("invalid credentials")

// AuthService implements registration, login, logout and account upgrades.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	registry   auth.Registry
	producer   *event.Producer
	bcryptCost int
	logger     *slog.Logger
	now        func() time.Time
}

// NewAuthService creates a new auth service.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenManager,
	registry auth.Registry,
	producer *event.Producer,
	bcryptCost int,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		registry:   registry,
		producer:   producer,
		bcryptCost: bcryptCost,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// LoginInput holds the parameters for user login.
type LoginInput struct {
	Email    string
	Password string
}

// UpgradeInput describes the payment made for a premium upgrade.
type UpgradeInput struct {
	FeatureID     string
	Amount        int64
	Currency      string
	PaymentMethod string
}

// Register creates a standard account and signs the user in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.AuthResult, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.InvalidArgument("name is required")
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         domain.RoleStandard,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	result, err := s.signIn(ctx, user)
	if err != nil {
		return nil, err
	}

	// Publish registration event (non-blocking on failure).
	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
	)
	return result, nil
}

// Login authenticates a user with email and password.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*domain.AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, errInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, errInvalidCredentials
	}

	now := s.now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logger.WarnContext(ctx, "failed to update last login",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	} else {
		user.LastLogin = &now
		user.LastActivity = &now
	}

	result, err := s.signIn(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
	)
	return result, nil
}

// signIn issues a token for user and records it in the registry.
func (s *AuthService) signIn(ctx context.Context, user *domain.User) (*domain.AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	if err := s.registry.RegisterSeen(ctx, user.ID, token, expiresAt); err != nil {
		s.logger.WarnContext(ctx, "failed to register issued token",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	return &domain.AuthResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

// VerifySession returns the account behind an authenticated identity.
func (s *AuthService) VerifySession(ctx context.Context, id domain.Identity) (*domain.User, error) {
	if !id.IsAuthenticated() {
		return nil, apperrors.Unauthenticated("authentication required")
	}
	return s.users.GetByID(ctx, id.UserID)
}

// Logout drops the token from the registry. The token itself stays valid
// until it expires, so registry failures and unknown tokens are logged and
// the logout still succeeds.
func (s *AuthService) Logout(ctx context.Context, id domain.Identity, token string) error {
	if !id.IsAuthenticated() {
		return apperrors.Unauthenticated("authentication required")
	}

	removed, err := s.registry.Revoke(ctx, id.UserID, token)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to revoke token",
			slog.String("user_id", id.UserID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user logged out",
		slog.String("user_id", id.UserID),
		slog.Bool("registry_entry_removed", removed),
	)
	return nil
}

// Upgrade promotes the identity's account to premium and records the
// payment in the same transaction.
func (s *AuthService) Upgrade(ctx context.Context, id domain.Identity, input UpgradeInput) (*domain.User, error) {
	if !id.IsAuthenticated() {
		return nil, apperrors.Unauthenticated("authentication required")
	}
	if input.Amount <= 0 {
		return nil, apperrors.InvalidArgument("amount must be greater than zero")
	}
	currency, err := normalizeCurrency(input.Currency)
	if err != nil {
		return nil, err
	}
	method := input.PaymentMethod
	if method == "" {
		method = domain.PaymentMethodCard
	}
	if !domain.IsValidPaymentMethodType(method) {
		return nil, apperrors.InvalidArgument(fmt.Sprintf("invalid payment method: %s", method))
	}

	payment := &domain.Payment{
		ID:            uuid.New().String(),
		UserID:        id.UserID,
		Amount:        input.Amount,
		Currency:      currency,
		PaymentMethod: method,
		Status:        domain.PaymentStatusCompleted,
		FeatureID:     input.FeatureID,
		CreatedAt:     s.now(),
	}

	if err := s.users.UpgradeToPremium(ctx, id.UserID, payment); err != nil {
		return nil, fmt.Errorf("upgrade user: %w", err)
	}

	s.logger.InfoContext(ctx, "user upgraded to premium",
		slog.String("user_id", id.UserID),
		slog.String("payment_id", payment.ID),
	)
	return s.users.GetByID(ctx, id.UserID)
}

// GetPreferences returns the user's preference document.
func (s *AuthService) GetPreferences(ctx context.Context, userID string) (json.RawMessage, error) {
	return s.users.GetPreferences(ctx, userID)
}

// SavePreferences replaces the user's preference document, which must be a
// JSON object.
func (s *AuthService) SavePreferences(ctx context.Context, userID string, prefs json.RawMessage) error {
	var obj map[string]any
	if err := json.Unmarshal(prefs, &obj); err != nil || obj == nil {
		return apperrors.InvalidArgument("preferences must be a JSON object")
	}
	if err := s.users.SavePreferences(ctx, userID, prefs); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", apperrors.InvalidArgument("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperrors.InvalidArgument("email is invalid")
	}
	return email, nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidArgument(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	return nil
}

func normalizeCurrency(currency string) (string, error) {
	if currency == "" {
		return "USD", nil
	}
	currency = strings.ToUpper(currency)
	if len(currency) != 3 {
		return "", apperrors.InvalidArgument("currency must be a 3-letter ISO 4217 code")
	}
	return currency, nil
}

package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"safesupport/internal/auth/models"
	jwttoken "safesupport/internal/jwt_token"
	"safesupport/internal/platform/metrics"
	dErrors "safesupport/pkg/domain-errors"
	"safesupport/pkg/platform/sentinel"
	"safesupport/pkg/requestcontext"
)

// BcryptCost is the work factor for password hashes.
const BcryptCost = 10

// Store is the user store.
type Store interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id string, fn func(*models.User) error) (*models.User, error)
}

// TokenIssuer signs and parses the access, verify and reset tokens.
type TokenIssuer interface {
	GenerateAccessToken(userID string) (string, error)
	GenerateToken(userID string, purpose jwttoken.Purpose, expiresIn time.Duration) (string, error)
	ValidateToken(token string) (*jwttoken.Claims, error)
}

// Mailer sends the account emails.
type Mailer interface {
	SendVerification(ctx context.Context, to, token string) error
	SendPasswordReset(ctx context.Context, to, token string) error
}

// Service implements registration, login, email verification and password
// reset.
type Service struct {
	users   Store
	tokens  TokenIssuer
	mailer  Mailer
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(users Store, tokens TokenIssuer, mailer Mailer, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{users: users, tokens: tokens, mailer: mailer, metrics: m, logger: logger}
}

var (
	errEmailTaken         = dErrors.New(dErrors.CodeBadRequest, "Email already registered")
	errInvalidCredentials = dErrors.New(dErrors.CodeUnauthorized, "Invalid credentials")
	errEmailNotVerified   = dErrors.New(dErrors.CodeForbidden, "Email not verified. Please check your email for a verification link.")
	errUserNotFound       = dErrors.New(dErrors.CodeNotFound, "User not found")
)

// Register creates an unverified account and returns an access token. The
// verification email is best effort: a send failure is logged and the
// account is still created.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	email := models.NormalizeEmail(req.Email)

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, errEmailTaken
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "Registration failed")
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		ID:              uuid.NewString(),
		Email:           email,
		Name:            req.Name,
		Phone:           req.Phone,
		NotifyBySMS:     req.NotifyBySMS,
		IsVerified:      false,
		PasswordHash:    hash,
		TrustedContacts: []models.TrustedContact{},
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, errEmailTaken
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "Registration failed")
	}
	s.metrics.IncrementUsersRegistered()

	token, err := s.tokens.GenerateAccessToken(user.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "Registration failed")
	}
	s.sendVerification(ctx, user)

	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return &models.AuthResult{User: user.Public(), Token: token}, nil
}

func (s *Service) sendVerification(ctx context.Context, user *models.User) {
	token, err := s.tokens.GenerateToken(user.ID, jwttoken.PurposeVerify, jwttoken.VerifyTokenTTL)
	if err == nil {
		err = s.mailer.SendVerification(ctx, user.Email, token)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to send verification email",
			"user_id", user.ID,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

// Login checks credentials and refuses unverified accounts.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResult, error) {
	if err := req.Validate(); err != nil {
		return nil, errInvalidCredentials
	}
	user, err := s.users.FindByEmail(ctx, models.NormalizeEmail(req.Email))
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "Login failed")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, errInvalidCredentials
	}
	if !user.IsVerified {
		return nil, errEmailNotVerified
	}

	token, err := s.tokens.GenerateAccessToken(user.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "Login failed")
	}
	return &models.AuthResult{User: user.Public(), Token: token}, nil
}

// Verify marks the token's user as verified. Using the same token again is
// not an error: it reports VerifyOutcomeAlreadyVerified.
func (s *Service) Verify(ctx context.Context, token string) (models.VerifyOutcome, error) {
	if token == "" {
		return 0, dErrors.New(dErrors.CodeBadRequest, "Missing token")
	}
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeBadRequest, "Verification failed or token expired")
	}
	if claims.Purpose != jwttoken.PurposeVerify {
		return 0, dErrors.New(dErrors.CodeBadRequest, "Invalid token")
	}

	outcome := models.VerifyOutcomeVerified
	_, err = s.users.Update(ctx, claims.UserID, func(u *models.User) error {
		if u.IsVerified {
			outcome = models.VerifyOutcomeAlreadyVerified
		}
		u.IsVerified = true
		return nil
	})
	if errors.Is(err, sentinel.ErrNotFound) {
		return 0, errUserNotFound
	}
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeBadRequest, "Verification failed or token expired")
	}
	if outcome == models.VerifyOutcomeVerified {
		s.logger.InfoContext(ctx, "email verified",
			"user_id", claims.UserID,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return outcome, nil
}

// RequestPasswordReset emails a one-hour reset link when the address belongs
// to a user. It never reports whether it does.
func (s *Service) RequestPasswordReset(ctx context.Context, req *models.PasswordResetRequest) error {
	user, err := s.users.FindByEmail(ctx, models.NormalizeEmail(req.Email))
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.ErrorContext(ctx, "password reset lookup failed",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return nil
	}

	token, err := s.tokens.GenerateToken(user.ID, jwttoken.PurposeReset, jwttoken.ResetTokenTTL)
	if err == nil {
		err = s.mailer.SendPasswordReset(ctx, user.Email, token)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to send reset email",
			"user_id", user.ID,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return nil
}

// ResetPassword replaces the password hash of the reset token's user.
func (s *Service) ResetPassword(ctx context.Context, req *models.ResetPasswordRequest) error {
	if req.Token == "" || req.Password == "" {
		return dErrors.New(dErrors.CodeBadRequest, "Missing token or password")
	}
	if err := req.Validate(); err != nil {
		return err
	}
	claims, err := s.tokens.ValidateToken(req.Token)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "Invalid or expired token")
	}
	if claims.Purpose != jwttoken.PurposeReset {
		return dErrors.New(dErrors.CodeBadRequest, "Invalid token")
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return err
	}
	_, err = s.users.Update(ctx, claims.UserID, func(u *models.User) error {
		u.PasswordHash = hash
		return nil
	})
	if errors.Is(err, sentinel.ErrNotFound) {
		return errUserNotFound
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "Failed to reset password")
	}
	s.logger.InfoContext(ctx, "password reset",
		"user_id", claims.UserID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// Me returns the caller's profile.
func (s *Service) Me(ctx context.Context, userID string) (*models.PublicUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, errUserNotFound
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "Authentication check failed")
	}
	return user.Public(), nil
}

// IsVerified backs the verified-email middleware. Unknown users yield
// sentinel.ErrNotFound.
func (s *Service) IsVerified(ctx context.Context, userID string) (bool, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsVerified, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeValidation, "password must be at most 72 bytes")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	return string(hash), nil
}

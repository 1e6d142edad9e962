package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"safesupport/internal/auth/models"
	"safesupport/internal/auth/service/mocks"
	userstore "safesupport/internal/auth/store/user"
	jwttoken "safesupport/internal/jwt_token"
	"safesupport/internal/platform/metrics"
	dErrors "safesupport/pkg/domain-errors"
	"safesupport/pkg/platform/sentinel"
)

type AuthServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	users   *userstore.InMemoryUserStore
	tokens  *mocks.MockTokenIssuer
	mailer  *mocks.MockMailer
	metrics *metrics.Metrics
	service *Service
	ctx     context.Context
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}

func (s *AuthServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.users = userstore.New()
	s.tokens = mocks.NewMockTokenIssuer(s.ctrl)
	s.mailer = mocks.NewMockMailer(s.ctrl)
	s.metrics = metrics.NewWithRegistry(prometheus.NewRegistry())
	s.service = New(s.users, s.tokens, s.mailer, s.metrics, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.ctx = context.Background()
}

func (s *AuthServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *AuthServiceSuite) seedUser(email, password string, verified bool) *models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	s.Require().NoError(err)
	u := &models.User{
		ID:           "user-" + email,
		Email:        email,
		Name:         "Jane",
		IsVerified:   verified,
		PasswordHash: string(hash),
	}
	s.Require().NoError(s.users.Create(s.ctx, u))
	return u
}

func (s *AuthServiceSuite) assertCode(err error, code dErrors.Code, message string) {
	s.Require().Error(err)
	de, ok := dErrors.As(err)
	s.Require().True(ok, "expected domain error, got %v", err)
	s.Equal(code, de.Code)
	if message != "" {
		s.Equal(message, de.Message)
	}
}

func (s *AuthServiceSuite) TestRegister() {
	s.Run("creates unverified user and emails a verify link", func() {
		s.SetupTest()
		s.tokens.EXPECT().GenerateAccessToken(gomock.Any()).Return("access-token", nil)
		s.tokens.EXPECT().GenerateToken(gomock.Any(), jwttoken.PurposeVerify, jwttoken.VerifyTokenTTL).Return("verify-token", nil)
		s.mailer.EXPECT().SendVerification(gomock.Any(), "jane@example.com", "verify-token").Return(nil)

		res, err := s.service.Register(s.ctx, &models.RegisterRequest{
			Email: "  Jane@Example.com ", Password: "hunter22", Name: "Jane",
		})
		s.Require().NoError(err)
		s.Equal("access-token", res.Token)
		s.Equal("jane@example.com", res.User.Email)
		s.False(res.User.IsVerified)
		s.NotNil(res.User.TrustedContacts)

		stored, err := s.users.FindByEmail(s.ctx, "jane@example.com")
		s.Require().NoError(err)
		s.NotEqual("hunter22", stored.PasswordHash)
		s.NoError(bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("hunter22")))
		cost, err := bcrypt.Cost([]byte(stored.PasswordHash))
		s.Require().NoError(err)
		s.Equal(BcryptCost, cost)
		s.InDelta(1, testutil.ToFloat64(s.metrics.UsersRegistered), 0)
	})

	s.Run("email failure still registers", func() {
		s.SetupTest()
		s.tokens.EXPECT().GenerateAccessToken(gomock.Any()).Return("access-token", nil)
		s.tokens.EXPECT().GenerateToken(gomock.Any(), jwttoken.PurposeVerify, gomock.Any()).Return("verify-token", nil)
		s.mailer.EXPECT().SendVerification(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("smtp down"))

		res, err := s.service.Register(s.ctx, &models.RegisterRequest{Email: "a@b.co", Password: "pw"})
		s.Require().NoError(err)
		s.Equal("access-token", res.Token)
	})

	s.Run("duplicate email", func() {
		s.SetupTest()
		s.seedUser("jane@example.com", "pw", false)

		_, err := s.service.Register(s.ctx, &models.RegisterRequest{Email: "JANE@example.com", Password: "pw"})
		s.assertCode(err, dErrors.CodeBadRequest, "Email already registered")
	})

	s.Run("invalid email", func() {
		s.SetupTest()
		_, err := s.service.Register(s.ctx, &models.RegisterRequest{Email: "nope", Password: "pw"})
		s.assertCode(err, dErrors.CodeValidation, "")
	})
}

func (s *AuthServiceSuite) TestLogin() {
	s.Run("verified user gets a token", func() {
		s.SetupTest()
		u := s.seedUser("jane@example.com", "hunter22", true)
		s.tokens.EXPECT().GenerateAccessToken(u.ID).Return("access-token", nil)

		res, err := s.service.Login(s.ctx, &models.LoginRequest{Email: "jane@example.com", Password: "hunter22"})
		s.Require().NoError(err)
		s.Equal("access-token", res.Token)
		s.Equal(u.ID, res.User.ID)
	})

	s.Run("wrong password and unknown email look the same", func() {
		s.SetupTest()
		s.seedUser("jane@example.com", "hunter22", true)

		_, err := s.service.Login(s.ctx, &models.LoginRequest{Email: "jane@example.com", Password: "wrong"})
		s.assertCode(err, dErrors.CodeUnauthorized, "Invalid credentials")
		_, err = s.service.Login(s.ctx, &models.LoginRequest{Email: "who@example.com", Password: "hunter22"})
		s.assertCode(err, dErrors.CodeUnauthorized, "Invalid credentials")
	})

	s.Run("unverified user is refused", func() {
		s.SetupTest()
		s.seedUser("jane@example.com", "hunter22", false)

		_, err := s.service.Login(s.ctx, &models.LoginRequest{Email: "jane@example.com", Password: "hunter22"})
		s.assertCode(err, dErrors.CodeForbidden, "Email not verified. Please check your email for a verification link.")
	})
}

func (s *AuthServiceSuite) TestVerify() {
	s.Run("first use verifies, second use is idempotent", func() {
		s.SetupTest()
		u := s.seedUser("jane@example.com", "pw", false)
		claims := &jwttoken.Claims{UserID: u.ID, Purpose: jwttoken.PurposeVerify}
		s.tokens.EXPECT().ValidateToken("tok").Return(claims, nil).Times(2)

		outcome, err := s.service.Verify(s.ctx, "tok")
		s.Require().NoError(err)
		s.Equal(models.VerifyOutcomeVerified, outcome)

		outcome, err = s.service.Verify(s.ctx, "tok")
		s.Require().NoError(err)
		s.Equal(models.VerifyOutcomeAlreadyVerified, outcome)

		stored, err := s.users.FindByID(s.ctx, u.ID)
		s.Require().NoError(err)
		s.True(stored.IsVerified)
	})

	s.Run("missing token", func() {
		s.SetupTest()
		_, err := s.service.Verify(s.ctx, "")
		s.assertCode(err, dErrors.CodeBadRequest, "Missing token")
	})

	s.Run("expired token", func() {
		s.SetupTest()
		s.tokens.EXPECT().ValidateToken("tok").Return(nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired"))
		_, err := s.service.Verify(s.ctx, "tok")
		s.assertCode(err, dErrors.CodeBadRequest, "Verification failed or token expired")
	})

	s.Run("reset token cannot verify", func() {
		s.SetupTest()
		s.tokens.EXPECT().ValidateToken("tok").Return(&jwttoken.Claims{UserID: "u1", Purpose: jwttoken.PurposeReset}, nil)
		_, err := s.service.Verify(s.ctx, "tok")
		s.assertCode(err, dErrors.CodeBadRequest, "Invalid token")
	})

	s.Run("unknown user", func() {
		s.SetupTest()
		s.tokens.EXPECT().ValidateToken("tok").Return(&jwttoken.Claims{UserID: "ghost", Purpose: jwttoken.PurposeVerify}, nil)
		_, err := s.service.Verify(s.ctx, "tok")
		s.assertCode(err, dErrors.CodeNotFound, "User not found")
	})
}

func (s *AuthServiceSuite) TestRequestPasswordReset() {
	s.Run("known email gets a one hour reset link", func() {
		s.SetupTest()
		u := s.seedUser("jane@example.com", "pw", true)
		s.tokens.EXPECT().GenerateToken(u.ID, jwttoken.PurposeReset, jwttoken.ResetTokenTTL).Return("reset-token", nil)
		s.mailer.EXPECT().SendPasswordReset(gomock.Any(), "jane@example.com", "reset-token").Return(nil)

		s.NoError(s.service.RequestPasswordReset(s.ctx, &models.PasswordResetRequest{Email: "Jane@example.com"}))
	})

	s.Run("unknown email is silent", func() {
		s.SetupTest()
		s.NoError(s.service.RequestPasswordReset(s.ctx, &models.PasswordResetRequest{Email: "who@example.com"}))
	})

	s.Run("mail failure is swallowed", func() {
		s.SetupTest()
		s.seedUser("jane@example.com", "pw", true)
		s.tokens.EXPECT().GenerateToken(gomock.Any(), jwttoken.PurposeReset, gomock.Any()).Return("reset-token", nil)
		s.mailer.EXPECT().SendPasswordReset(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("boom"))

		s.NoError(s.service.RequestPasswordReset(s.ctx, &models.PasswordResetRequest{Email: "jane@example.com"}))
	})
}

func (s *AuthServiceSuite) TestResetPassword() {
	s.Run("replaces the hash", func() {
		s.SetupTest()
		u := s.seedUser("jane@example.com", "old", true)
		s.tokens.EXPECT().ValidateToken("tok").Return(&jwttoken.Claims{UserID: u.ID, Purpose: jwttoken.PurposeReset}, nil)

		s.Require().NoError(s.service.ResetPassword(s.ctx, &models.ResetPasswordRequest{Token: "tok", Password: "new-secret"}))

		stored, err := s.users.FindByID(s.ctx, u.ID)
		s.Require().NoError(err)
		s.NoError(bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("new-secret")))
		s.Error(bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("old")))
	})

	s.Run("missing fields", func() {
		s.SetupTest()
		err := s.service.ResetPassword(s.ctx, &models.ResetPasswordRequest{Token: "tok"})
		s.assertCode(err, dErrors.CodeBadRequest, "Missing token or password")
	})

	s.Run("bad token", func() {
		s.SetupTest()
		s.tokens.EXPECT().ValidateToken("tok").Return(nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
		err := s.service.ResetPassword(s.ctx, &models.ResetPasswordRequest{Token: "tok", Password: "x"})
		s.assertCode(err, dErrors.CodeBadRequest, "Invalid or expired token")
	})

	s.Run("verify token cannot reset", func() {
		s.SetupTest()
		s.tokens.EXPECT().ValidateToken("tok").Return(&jwttoken.Claims{UserID: "u1", Purpose: jwttoken.PurposeVerify}, nil)
		err := s.service.ResetPassword(s.ctx, &models.ResetPasswordRequest{Token: "tok", Password: "x"})
		s.assertCode(err, dErrors.CodeBadRequest, "Invalid token")
	})

	s.Run("unknown user", func() {
		s.SetupTest()
		s.tokens.EXPECT().ValidateToken("tok").Return(&jwttoken.Claims{UserID: "ghost", Purpose: jwttoken.PurposeReset}, nil)
		err := s.service.ResetPassword(s.ctx, &models.ResetPasswordRequest{Token: "tok", Password: "x"})
		s.assertCode(err, dErrors.CodeNotFound, "User not found")
	})
}

func (s *AuthServiceSuite) TestMeAndIsVerified() {
	u := s.seedUser("jane@example.com", "pw", true)

	me, err := s.service.Me(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(u.Email, me.Email)

	_, err = s.service.Me(s.ctx, "ghost")
	s.assertCode(err, dErrors.CodeNotFound, "User not found")

	ok, err := s.service.IsVerified(s.ctx, u.ID)
	s.Require().NoError(err)
	s.True(ok)

	_, err = s.service.IsVerified(s.ctx, "ghost")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *AuthServiceSuite) TestStoreFailureIsInternal() {
	store := mocks.NewMockStore(s.ctrl)
	svc := New(store, s.tokens, s.mailer, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	store.EXPECT().FindByEmail(gomock.Any(), "jane@example.com").Return(nil, errors.New("disk gone"))

	_, err := svc.Login(s.ctx, &models.LoginRequest{Email: "jane@example.com", Password: "pw"})
	s.assertCode(err, dErrors.CodeInternal, "")
}

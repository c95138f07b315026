package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/account-api/internal/apperr"
	"github.com/redmonkez12/account-api/internal/logging"
	"github.com/redmonkez12/account-api/internal/user"
)

// UserStore is the part of the credential store the session logic needs
type UserStore interface {
	Create(ctx context.Context, u *user.User) error
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	SetAdmin(ctx context.Context, id uuid.UUID) error
	SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) error
	SwapRefreshToken(ctx context.Context, id uuid.UUID, expected, next string) (bool, error)
}

// Notifier sends account notices. Failures never fail the calling operation.
type Notifier interface {
	SendPasswordChangedEmail(ctx context.Context, toEmail string) error
}

// Options tunes token lifetimes and revocation policy
type Options struct {
	AccessTokenDuration    time.Duration
	RefreshTokenDuration   time.Duration
	RevokeOnPasswordChange bool
}

// Service handles authentication business logic
type Service struct {
	users        UserStore
	hasher       *PasswordHasher
	accessToken  TokenService
	refreshToken TokenService
	identity     IdentityVerifier
	notifier     Notifier
	logger       *logging.Logger
	opts         Options
}

func NewService(
	users UserStore,
	hasher *PasswordHasher,
	accessToken TokenService,
	refreshToken TokenService,
	identity IdentityVerifier,
	notifier Notifier,
	logger *logging.Logger,
	opts Options,
) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		users:        users,
		hasher:       hasher,
		accessToken:  accessToken,
		refreshToken: refreshToken,
		identity:     identity,
		notifier:     notifier,
		logger:       logger,
		opts:         opts,
	}
}

// Register creates a local account. It does not start a session.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*user.Profile, error) {
	email := user.NormalizeEmail(in.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if len(email) > 254 {
		return nil, ErrInvalidEmailFormat
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmailFormat
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrNameRequired
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Phone) == "" {
		return nil, ErrPhoneRequired
	}

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrEmailTaken
	case !errors.Is(err, user.ErrNotFound):
		return nil, apperr.Internalf("failed to look up user", err)
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	newUser := &user.User{
		Email:      email,
		Credential: user.LocalCredential(passwordHash),
		Name:       strings.TrimSpace(in.Name),
		Bio:        strings.TrimSpace(in.Bio),
		Phone:      strings.TrimSpace(in.Phone),
		AvatarURL:  in.AvatarURL,
		IsPublic:   true,
	}
	if err := s.users.Create(ctx, newUser); err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, apperr.Internalf("failed to create user", err)
	}

	s.logger.Info("user registered", "user_id", newUser.ID)
	return newUser.Profile(), nil
}

// checkPassword rejects blank passwords and ones bcrypt cannot hash.
// The raw value is what gets hashed.
func checkPassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return ErrPasswordRequired
	}
	if len(password) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

// Login checks a password and starts a new session, replacing any previous one
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if strings.TrimSpace(email) == "" {
		return nil, ErrEmailRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}

	existingUser, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperr.Internalf("failed to get user", err)
	}

	if !existingUser.Credential.SupportsPassword() ||
		!s.hasher.Verify(existingUser.Credential.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	tokens, err := s.startSession(ctx, existingUser)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", "user_id", existingUser.ID)
	return &LoginResult{Tokens: tokens, User: existingUser.Profile()}, nil
}

// Refresh exchanges the current refresh token for a new pair. A token that is
// no longer the stored one fails with ErrStaleToken.
func (s *Service) Refresh(ctx context.Context, presented string) (*AuthTokens, error) {
	if presented == "" {
		return nil, ErrMissingRefresh
	}

	claims, err := s.refreshToken.VerifyToken(presented)
	if err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	existingUser, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, apperr.Internalf("failed to get user", err)
	}

	tokens, err := s.generateTokens(existingUser)
	if err != nil {
		return nil, err
	}

	rotated, err := s.users.SwapRefreshToken(ctx, existingUser.ID, presented, tokens.RefreshToken)
	if err != nil {
		return nil, apperr.Internalf("failed to rotate refresh token", err)
	}
	if !rotated {
		s.logger.Warn("stale refresh token presented", "user_id", existingUser.ID)
		return nil, ErrStaleToken
	}

	return tokens, nil
}

// Logout clears the stored refresh token. Logging out twice, or for a user
// that no longer exists, is not an error.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.users.SetRefreshToken(ctx, userID, nil); err != nil && !errors.Is(err, user.ErrNotFound) {
		return apperr.Internalf("failed to clear refresh token", err)
	}
	s.logger.Info("user logged out", "user_id", userID)
	return nil
}

// ChangePassword replaces the password of a local account after checking the
// old one. The current session survives unless RevokeOnPasswordChange is set.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	if err := checkPassword(newPassword); err != nil {
		return err
	}

	existingUser, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrUserNotFound
		}
		return apperr.Internalf("failed to get user", err)
	}

	if !existingUser.Credential.SupportsPassword() ||
		!s.hasher.Verify(existingUser.Credential.PasswordHash, oldPassword) {
		return ErrInvalidCredentials
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrUserNotFound
		}
		return apperr.Internalf("failed to update password", err)
	}

	if s.opts.RevokeOnPasswordChange {
		if err := s.users.SetRefreshToken(ctx, userID, nil); err != nil {
			s.logger.Warn("failed to revoke session after password change", "user_id", userID, "error", err)
		}
	}

	if s.notifier != nil {
		email := existingUser.Email
		go func() {
			if err := s.notifier.SendPasswordChangedEmail(context.Background(), email); err != nil {
				s.logger.Warn("failed to send password changed email", "user_id", userID, "error", err)
			}
		}()
	}

	s.logger.Info("password changed", "user_id", userID)
	return nil
}

// PromoteToAdmin grants the admin role to targetID on behalf of actor
func (s *Service) PromoteToAdmin(ctx context.Context, actor *user.User, targetID uuid.UUID) (*user.Profile, error) {
	if err := s.RequireAdmin(actor); err != nil {
		return nil, err
	}

	if err := s.users.SetAdmin(ctx, targetID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperr.Internalf("failed to promote user", err)
	}

	promoted, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, apperr.Internalf("failed to get user", err)
	}

	s.logger.Info("user promoted to admin", "user_id", targetID, "actor_id", actor.ID)
	return promoted.Profile(), nil
}

// LoginWithGoogle verifies a Google ID token, provisions a federated account
// on first sight and starts a session.
func (s *Service) LoginWithGoogle(ctx context.Context, rawToken string) (*LoginResult, error) {
	if s.identity == nil {
		return nil, ErrInvalidAssertion
	}

	assertion, err := s.identity.Verify(ctx, rawToken)
	if err != nil {
		if apperr.KindOf(err) == apperr.InvalidAssertion {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.InvalidAssertion, ErrInvalidAssertion.Message, err)
	}

	account, err := s.findOrCreateFederated(ctx, assertion)
	if err != nil {
		return nil, err
	}

	tokens, err := s.startSession(ctx, account)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in with google", "user_id", account.ID)
	return &LoginResult{Tokens: tokens, User: account.Profile()}, nil
}

func (s *Service) findOrCreateFederated(ctx context.Context, assertion *IdentityAssertion) (*user.User, error) {
	existingUser, err := s.users.GetByEmail(ctx, assertion.Email)
	if err == nil {
		return existingUser, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return nil, apperr.Internalf("failed to get user", err)
	}

	name := strings.TrimSpace(assertion.Name)
	if name == "" {
		name, _, _ = strings.Cut(assertion.Email, "@")
	}

	newUser := &user.User{
		Email:      assertion.Email,
		Credential: user.FederatedCredential(user.ProviderGoogle),
		Name:       name,
		AvatarURL:  assertion.PictureURL,
		IsPublic:   true,
	}
	if err := s.users.Create(ctx, newUser); err != nil {
		// a concurrent first login created the account
		if errors.Is(err, user.ErrDuplicateEmail) {
			existingUser, err := s.users.GetByEmail(ctx, assertion.Email)
			if err != nil {
				return nil, apperr.Internalf("failed to get user", err)
			}
			return existingUser, nil
		}
		return nil, apperr.Internalf("failed to create user", err)
	}

	s.logger.Info("federated user provisioned", "user_id", newUser.ID, "provider", user.ProviderGoogle)
	return newUser, nil
}

// Authenticate resolves an access token to its user
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*user.User, error) {
	if accessToken == "" {
		return nil, ErrMissingToken
	}

	claims, err := s.accessToken.VerifyToken(accessToken)
	if err != nil {
		msg := ErrInvalidToken.Message
		if appErr := apperr.From(err); appErr != nil {
			msg = appErr.Message
		}
		return nil, apperr.Wrap(apperr.Unauthorized, msg, err)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unauthorized, "invalid user id in token", ErrInvalidToken)
	}

	existingUser, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, apperr.Internalf("failed to get user", err)
	}

	return existingUser, nil
}

// RequireAdmin fails with ErrForbidden unless u is an admin
func (s *Service) RequireAdmin(u *user.User) error {
	if u == nil || !u.IsAdmin {
		return ErrForbidden
	}
	return nil
}

// startSession mints a pair and stores its refresh half, replacing any
// previous session of the user.
func (s *Service) startSession(ctx context.Context, u *user.User) (*AuthTokens, error) {
	tokens, err := s.generateTokens(u)
	if err != nil {
		return nil, err
	}

	if err := s.users.SetRefreshToken(ctx, u.ID, &tokens.RefreshToken); err != nil {
		return nil, apperr.Internalf("failed to store refresh token", err)
	}
	u.RefreshToken = &tokens.RefreshToken

	return tokens, nil
}

// generateTokens creates both access and refresh tokens
func (s *Service) generateTokens(u *user.User) (*AuthTokens, error) {
	accessToken, err := s.accessToken.CreateToken(TokenClaims{
		UserID: u.ID.String(),
		Email:  u.Email,
		Name:   u.Name,
	}, s.opts.AccessTokenDuration)
	if err != nil {
		return nil, apperr.Internalf("failed to create access token", err)
	}

	refreshToken, err := s.refreshToken.CreateToken(TokenClaims{
		UserID: u.ID.String(),
	}, s.opts.RefreshTokenDuration)
	if err != nil {
		return nil, apperr.Internalf("failed to create refresh token", err)
	}

	return &AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.opts.AccessTokenDuration.Seconds()),
	}, nil
}

// NewTokenServices builds the access and refresh token services for strategy
func NewTokenServices(strategy string, accessSecret, refreshSecret []byte) (access, refresh TokenService, err error) {
	switch strategy {
	case "", "jwt":
		a, err := NewJWTService(accessSecret)
		if err != nil {
			return nil, nil, err
		}
		r, err := NewJWTService(refreshSecret)
		if err != nil {
			return nil, nil, err
		}
		return a, r, nil
	case "paseto":
		a, err := NewPasetoService(accessSecret)
		if err != nil {
			return nil, nil, err
		}
		r, err := NewPasetoService(refreshSecret)
		if err != nil {
			return nil, nil, err
		}
		return a, r, nil
	default:
		return nil, nil, fmt.Errorf("unknown token strategy %q", strategy)
	}
}

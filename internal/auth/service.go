// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/contacts-backend/internal/avatar"
	"github.com/carterperez-dev/contacts-backend/internal/core"
	"github.com/carterperez-dev/contacts-backend/internal/mail"
	"github.com/carterperez-dev/contacts-backend/internal/metrics"
	"github.com/carterperez-dev/contacts-backend/internal/middleware"
	"github.com/carterperez-dev/contacts-backend/internal/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email already exists")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrAlreadyVerified    = errors.New("email already verified")
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	VerifyTimingSafe(password string, encodedHash *string) (bool, error)
	NeedsRehash(encodedHash string) bool
}

type Issuer interface {
	IssueSession(userID string) (string, error)
	IssueVerification() (string, error)
	VerifySession(token string) (string, error)
}

type AvatarStore interface {
	Persist(ctx context.Context, tempPath, ext string) (string, error)
	DeleteIfCustom(ctx context.Context, value string) error
}

// Notifier queues outbound mail. Enqueue must not block.
type Notifier interface {
	Enqueue(msg mail.Message) bool
}

type ServiceConfig struct {
	RequireVerification bool
	VerifyBaseURL       string
	MutationTimeout     time.Duration
}

type Service struct {
	users    user.Repository
	hasher   PasswordHasher
	issuer   Issuer
	avatars  AvatarStore
	notifier Notifier
	config   ServiceConfig
	log      *slog.Logger
}

func NewService(
	users user.Repository,
	hasher PasswordHasher,
	issuer Issuer,
	avatars AvatarStore,
	notifier Notifier,
	cfg ServiceConfig,
	log *slog.Logger,
) *Service {
	if cfg.MutationTimeout <= 0 {
		cfg.MutationTimeout = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		users:    users,
		hasher:   hasher,
		issuer:   issuer,
		avatars:  avatars,
		notifier: notifier,
		config:   cfg,
		log:      log,
	}
}

func (s *Service) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return core.Detached(ctx, s.config.MutationTimeout)
}

// Signup creates an account. A staged upload, when present, becomes the
// avatar; otherwise the gravatar address for the email is stored.
func (s *Service) Signup(
	ctx context.Context,
	req RegisterRequest,
	upload *avatar.Upload,
) (profile *user.Profile, err error) {
	ctx, span := core.StartSpan(ctx, "auth.Signup")
	defer span.End()
	defer func() {
		metrics.AuthRegistrationsTotal.WithLabelValues(metrics.Result(err)).Inc()
		if err != nil {
			core.SetSpanError(ctx, err)
		}
	}()

	exists, err := s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, ErrEmailExists
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var verificationToken *string
	if s.config.RequireVerification {
		token, tokenErr := s.issuer.IssueVerification()
		if tokenErr != nil {
			return nil, tokenErr
		}
		verificationToken = &token
	}

	mctx, cancel := s.detached(ctx)
	defer cancel()

	avatarURL := avatar.DefaultURL(req.Email)
	if upload != nil {
		avatarURL, err = s.avatars.Persist(mctx, upload.TempPath, upload.Ext)
		if err != nil {
			return nil, fmt.Errorf("persist avatar: %w", err)
		}
	}

	u := &user.User{
		ID:                uuid.New().String(),
		Email:             req.Email,
		PasswordHash:      passwordHash,
		Subscription:      user.SubscriptionStarter,
		AvatarURL:         avatarURL,
		Verified:          !s.config.RequireVerification,
		VerificationToken: verificationToken,
	}

	if err := s.users.Create(mctx, u); err != nil {
		if upload != nil {
			s.discardAvatar(mctx, avatarURL)
		}
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if verificationToken != nil {
		s.sendVerification(ctx, u.Email, *verificationToken)
	}

	core.AddSpanEvent(ctx, "user.registered",
		attribute.String("user.id", u.ID),
		attribute.Bool("user.verified", u.Verified),
	)

	p := user.ToProfile(u)
	return &p, nil
}

// Verify marks the holder of verificationToken as verified. An unknown or
// already consumed token is core.ErrNotFound.
func (s *Service) Verify(ctx context.Context, verificationToken string) (err error) {
	ctx, span := core.StartSpan(ctx, "auth.Verify")
	defer span.End()
	defer func() {
		metrics.AuthVerificationsTotal.WithLabelValues(metrics.Result(err)).Inc()
	}()

	if verificationToken == "" {
		return fmt.Errorf("verify email: %w", core.ErrNotFound)
	}

	mctx, cancel := s.detached(ctx)
	defer cancel()

	u, err := s.users.MarkVerified(mctx, verificationToken)
	if err != nil {
		return fmt.Errorf("verify email: %w", err)
	}

	core.AddSpanEvent(ctx, "user.verified", attribute.String("user.id", u.ID))
	return nil
}

// ResendVerification queues another copy of the existing token. The token
// is not rotated.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	ctx, span := core.StartSpan(ctx, "auth.ResendVerification")
	defer span.End()

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("resend verification: %w", err)
	}

	if u.Verified || u.VerificationToken == nil {
		return ErrAlreadyVerified
	}

	s.sendVerification(ctx, u.Email, *u.VerificationToken)
	return nil
}

// Signin checks credentials before verification state, so an unverified
// account with a wrong password still reports ErrInvalidCredentials.
func (s *Service) Signin(
	ctx context.Context,
	req LoginRequest,
) (resp *LoginResponse, err error) {
	ctx, span := core.StartSpan(ctx, "auth.Signin")
	defer span.End()
	defer func() {
		metrics.AuthLoginsTotal.WithLabelValues(metrics.Result(err)).Inc()
	}()

	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // equalises timing with the wrong-password path
			_, _ = s.hasher.VerifyTimingSafe(req.Password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, err := s.hasher.VerifyTimingSafe(req.Password, &u.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, ErrInvalidCredentials
	}

	if s.config.RequireVerification && !u.Verified {
		return nil, ErrEmailNotVerified
	}

	mctx, cancel := s.detached(ctx)
	defer cancel()

	if s.hasher.NeedsRehash(u.PasswordHash) {
		s.upgradePasswordHash(mctx, u.ID, req.Password)
	}

	token, err := s.issuer.IssueSession(u.ID)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	updated, err := s.users.SetToken(mctx, u.ID, core.HashToken(token))
	if err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	core.AddSpanEvent(ctx, "user.signed_in", attribute.String("user.id", u.ID))

	return &LoginResponse{
		Token: token,
		User:  user.ToProfile(updated),
	}, nil
}

// ResolveSession authenticates a bearer token: the signature and claims
// first, then the stored session slot. A token that verifies but is no
// longer stored is rejected.
func (s *Service) ResolveSession(
	ctx context.Context,
	token string,
) (*middleware.Principal, error) {
	subject, err := s.issuer.VerifySession(token)
	if err != nil {
		return nil, err
	}

	tokenHash := core.HashToken(token)

	u, err := s.users.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("resolve session: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("resolve session: %w", err)
	}

	if u.ID != subject {
		return nil, fmt.Errorf(
			"resolve session: subject mismatch: %w",
			core.ErrTokenInvalid,
		)
	}

	return &middleware.Principal{
		UserID:       u.ID,
		Email:        u.Email,
		Subscription: u.Subscription,
		AvatarURL:    u.AvatarURL,
		Token:        token,
		TokenHash:    tokenHash,
	}, nil
}

func (s *Service) GetCurrent(p *middleware.Principal) user.Profile {
	return user.Profile{
		Email:        p.Email,
		Subscription: p.Subscription,
		AvatarURL:    p.AvatarURL,
	}
}

// Logout clears the session the request was made with. If a newer signin
// has already replaced it there is nothing to clear.
func (s *Service) Logout(ctx context.Context, p *middleware.Principal) error {
	mctx, cancel := s.detached(ctx)
	defer cancel()

	cleared, err := s.users.ClearToken(mctx, p.UserID, p.TokenHash)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	if !cleared {
		s.log.Debug("logout for superseded session", "user_id", p.UserID)
	}

	return nil
}

func (s *Service) UpdateSubscription(
	ctx context.Context,
	p *middleware.Principal,
	subscription string,
) (*user.Profile, error) {
	if !user.IsValidSubscription(subscription) {
		return nil, fmt.Errorf(
			"update subscription: unknown tier %q: %w",
			subscription, core.ErrInvalidInput,
		)
	}

	mctx, cancel := s.detached(ctx)
	defer cancel()

	u, err := s.users.UpdateSubscriptionByToken(mctx, p.TokenHash, subscription)
	if err != nil {
		return nil, fmt.Errorf("update subscription: %w", err)
	}

	profile := user.ToProfile(u)
	return &profile, nil
}

// UpdateAvatar publishes the upload, swaps it in, then removes the file it
// replaced. Any failure after the publish leaves an unreferenced file
// rather than a reference to a missing one.
func (s *Service) UpdateAvatar(
	ctx context.Context,
	p *middleware.Principal,
	upload *avatar.Upload,
) (*AvatarResponse, error) {
	if upload == nil {
		return nil, fmt.Errorf("update avatar: no file: %w", core.ErrInvalidInput)
	}

	ctx, span := core.StartSpan(ctx, "auth.UpdateAvatar")
	defer span.End()

	mctx, cancel := s.detached(ctx)
	defer cancel()

	avatarURL, err := s.avatars.Persist(mctx, upload.TempPath, upload.Ext)
	if err != nil {
		return nil, fmt.Errorf("update avatar: %w", err)
	}

	swap, err := s.users.SwapAvatarByToken(mctx, p.TokenHash, avatarURL)
	if err != nil {
		return nil, fmt.Errorf("update avatar: %w", err)
	}

	if swap.Previous != "" && swap.Previous != swap.User.AvatarURL {
		if err := s.avatars.DeleteIfCustom(mctx, swap.Previous); err != nil {
			s.log.Warn("failed to delete previous avatar",
				"user_id", swap.User.ID,
				"avatar", swap.Previous,
				"error", err,
			)
		}
	}

	return &AvatarResponse{AvatarURL: swap.User.AvatarURL}, nil
}

func (s *Service) sendVerification(ctx context.Context, email, token string) {
	msg, err := mail.VerificationMessage(email, s.config.VerifyBaseURL, token)
	if err != nil {
		s.log.Error("failed to render verification email",
			"email", email,
			"error", err,
		)
		return
	}

	if !s.notifier.Enqueue(msg) {
		core.AddSpanEvent(ctx, "mail.dropped")
	}
}

func (s *Service) upgradePasswordHash(ctx context.Context, userID, password string) {
	newHash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.users.UpdatePassword(ctx, userID, newHash)
	}
	if err != nil {
		s.log.Warn("password rehash failed", "user_id", userID, "error", err)
	}
}

func (s *Service) discardAvatar(ctx context.Context, value string) {
	if err := s.avatars.DeleteIfCustom(ctx, value); err != nil {
		s.log.Warn("failed to remove avatar of rejected signup",
			"avatar", value,
			"error", err,
		)
	}
}

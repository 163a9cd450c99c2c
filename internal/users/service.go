package users

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hnatiuk/accounts/internal/apperror"
	"github.com/hnatiuk/accounts/internal/token"
)

// loginFailedMessage is returned for both an unknown email and a wrong
// password, so a caller can't probe which one failed.
const loginFailedMessage = "Email or password is wrong"

// signupPasswordMinLen is a signup-only constraint. Login deliberately
// does not enforce it so accounts created under older rules can still
// sign in.
const signupPasswordMinLen = 6

// Service defines the business logic contract for account and session
// operations. Handlers call these methods -- they never touch the
// repository directly.
type Service interface {
	Signup(ctx context.Context, req SignupRequest) (*Profile, error)
	Login(ctx context.Context, req LoginRequest) (string, *Profile, error)
	Logout(ctx context.Context, accountID string) error
	UpdateSubscription(ctx context.Context, accountID, tier string) (*Profile, error)

	// Authenticate is the session gate: it verifies the token signature and
	// expiry, loads the account, and checks the token is still the
	// account's current one. Protected handlers reach it through the
	// RequireSession middleware.
	Authenticate(ctx context.Context, rawToken string) (*User, error)
}

// accountService implements Service with bcrypt hashing and signed
// session tokens stored on the account row.
type accountService struct {
	repo       Repository
	issuer     *token.Issuer
	bcryptCost int
	tiers      map[string]bool
	// tierOrder preserves the configured ordering; the first entry is the
	// default assigned at signup.
	tierOrder []string
}

// NewService creates an account service. The tier list is the valid
// subscription enumeration; its first entry is assigned at signup.
func NewService(repo Repository, issuer *token.Issuer, bcryptCost int, tiers []string) Service {
	tierSet := make(map[string]bool, len(tiers))
	for _, t := range tiers {
		tierSet[t] = true
	}
	return &accountService{
		repo:       repo,
		issuer:     issuer,
		bcryptCost: bcryptCost,
		tiers:      tierSet,
		tierOrder:  tiers,
	}
}

// Signup creates a new account. It validates the input, checks email
// uniqueness, hashes the password, derives the placeholder avatar, and
// persists the account with no active session.
func (s *accountService) Signup(ctx context.Context, req SignupRequest) (*Profile, error) {
	if msg := validateSignup(req); msg != "" {
		return nil, apperror.NewBadRequest(msg)
	}

	// Check for duplicates before doing expensive hashing. The unique key
	// on email still backstops a race; Create maps it to the same conflict.
	exists, err := s.repo.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("checking email: %w", err))
	}
	if exists {
		return nil, apperror.NewConflict("Email in Use")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	user := &User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: string(hash),
		AvatarURL:    gravatarURL(req.Email),
		Subscription: s.tierOrder[0],
		SessionToken: "",
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		var appErr *apperror.AppError
		if asAppError(err, &appErr) {
			return nil, appErr
		}
		return nil, apperror.NewInternal(fmt.Errorf("creating user: %w", err))
	}

	slog.Info("user signed up",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return &Profile{
		Email:        user.Email,
		Subscription: user.Subscription,
		AvatarURL:    user.AvatarURL,
	}, nil
}

// Login authenticates an account by email and password. On success it
// issues a fresh session token and overwrites the stored one, so any
// previously issued token stops passing the gate.
func (s *accountService) Login(ctx context.Context, req LoginRequest) (string, *Profile, error) {
	if msg := validateLogin(req); msg != "" {
		// Login validation failures are 401, matching the endpoint's
		// uniform failure mode.
		return "", nil, apperror.NewUnauthorized(msg)
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		var appErr *apperror.AppError
		if asAppError(err, &appErr) && appErr.Code == 404 {
			// Don't reveal whether the email exists.
			return "", nil, apperror.NewUnauthorized(loginFailedMessage)
		}
		return "", nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return "", nil, apperror.NewUnauthorized(loginFailedMessage)
	}

	tok, err := s.issuer.Issue(user.ID)
	if err != nil {
		return "", nil, apperror.NewInternal(fmt.Errorf("issuing session token: %w", err))
	}

	if err := s.repo.UpdateSessionToken(ctx, user.ID, tok); err != nil {
		return "", nil, apperror.NewInternal(fmt.Errorf("storing session token: %w", err))
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return tok, &Profile{
		Email:        user.Email,
		Subscription: user.Subscription,
	}, nil
}

// Logout clears the stored session token. Idempotent: logging out an
// already-logged-out account is a no-op success.
func (s *accountService) Logout(ctx context.Context, accountID string) error {
	if err := s.repo.UpdateSessionToken(ctx, accountID, ""); err != nil {
		return apperror.NewInternal(fmt.Errorf("clearing session token: %w", err))
	}

	slog.Info("user logged out", slog.String("user_id", accountID))
	return nil
}

// UpdateSubscription validates the tier against the configured enumeration
// and persists it, returning the updated projection.
func (s *accountService) UpdateSubscription(ctx context.Context, accountID, tier string) (*Profile, error) {
	if !s.tiers[tier] {
		return nil, apperror.NewBadRequest(fmt.Sprintf("subscription must be one of: %s", s.tierList()))
	}

	user, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		var appErr *apperror.AppError
		if asAppError(err, &appErr) {
			return nil, appErr
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	if err := s.repo.UpdateSubscription(ctx, accountID, tier); err != nil {
		var appErr *apperror.AppError
		if asAppError(err, &appErr) {
			return nil, appErr
		}
		return nil, apperror.NewInternal(fmt.Errorf("updating subscription: %w", err))
	}

	return &Profile{
		Email:        user.Email,
		Subscription: tier,
	}, nil
}

// Authenticate validates a raw session token end to end. Signature and
// expiry alone are not enough: the token must also exactly equal the one
// stored on the account, otherwise logout (and login supersession) would
// leave old tokens usable until they expired.
func (s *accountService) Authenticate(ctx context.Context, rawToken string) (*User, error) {
	if rawToken == "" {
		return nil, apperror.NewUnauthorized("Not authorized")
	}

	accountID, err := s.issuer.Verify(rawToken)
	if err != nil {
		return nil, apperror.NewUnauthorized("Not authorized")
	}

	user, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		var appErr *apperror.AppError
		if asAppError(err, &appErr) && appErr.Code == 404 {
			return nil, apperror.NewUnauthorized("Not authorized")
		}
		return nil, apperror.NewInternal(fmt.Errorf("loading account for gate: %w", err))
	}

	if user.SessionToken == "" || user.SessionToken != rawToken {
		return nil, apperror.NewUnauthorized("Not authorized")
	}

	return user, nil
}

// CurrentProfile is the pure projection of an already-gated account.
// No store access; the gate loaded the user.
func CurrentProfile(u *User) *Profile {
	return &Profile{
		Email:        u.Email,
		Subscription: u.Subscription,
	}
}

// --- Validation ---

// validateSignup checks the signup input shape. Returns an error message
// or empty string.
func validateSignup(req SignupRequest) string {
	if req.Email == "" {
		return "email is required"
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return "email must be a valid email address"
	}
	if req.Password == "" {
		return "password is required"
	}
	if len(req.Password) < signupPasswordMinLen {
		return fmt.Sprintf("password must be at least %d characters", signupPasswordMinLen)
	}
	return ""
}

// validateLogin checks the login input shape. Looser than signup on
// purpose: presence only.
func validateLogin(req LoginRequest) string {
	if req.Email == "" {
		return "email is required"
	}
	if req.Password == "" {
		return "password is required"
	}
	return ""
}

// --- Helpers ---

// gravatarURL derives the deterministic placeholder avatar from an email.
// Gravatar hashes the trimmed, lowercased address; this only affects the
// placeholder image, not account identity, which stays case-sensitive.
func gravatarURL(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	sum := md5.Sum([]byte(normalized))
	return "http://www.gravatar.com/avatar/" + hex.EncodeToString(sum[:])
}

// tierList renders the valid tier set for error messages, in the
// configured order.
func (s *accountService) tierList() string {
	return strings.Join(s.tierOrder, ", ")
}

// asAppError is a thin wrapper around errors.As for AppError.
func asAppError(err error, target **apperror.AppError) bool {
	return errors.As(err, target)
}

// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces rules, orchestrates
//	Repository (data layer)  → reads/writes the database
//
// Handlers never touch SQL; services never touch HTTP. Every service method
// takes primitives or model structs, returns model structs or apperror
// values, and can therefore be exercised with plain function calls in tests.
//
// Authorization runs INSIDE this layer: each entity service re-checks the
// caller's grant on every operation. There is no cross-request caching of
// grants — revoking access is visible to the very next request.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/taskboard/internal/apperror"
	"github.com/sakif/taskboard/internal/auth"
	"github.com/sakif/taskboard/internal/model"
	"github.com/sakif/taskboard/internal/repository"
)

const (
	MinPasswordLength = 8
	MaxNameLength     = 200
)

// AuthService owns identity: registration, login (password and GitHub),
// token resolution, and the admin-only account operations.
type AuthService struct {
	users     repository.UserRepository
	invites   repository.InvitationRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	invites repository.InvitationRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		invites:   invites,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user record and the issued token, so the handler
// can respond to a successful login in one step.
type AuthResult struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// Register creates an account and logs it in.
//
// The duplicate-email error is deliberately vague: confirming that an email
// is registered hands an attacker a user-enumeration oracle, so the message
// never names the reason.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if len(name) > MaxNameLength {
		return nil, apperror.ValidationFailed("name", "name is too long")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.ValidationFailed("email", "a valid email address is required")
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Privileges:   model.PrivilegeUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, &apperror.AppError{Err: apperror.ErrConflict, Message: "unable to register with the supplied details"}
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	// Invitations sent to this email before the account existed now get a
	// receiver. Failure here must not fail the registration.
	if err := s.invites.AttachReceiver(ctx, email, user.ID); err != nil {
		s.logger.Warn("attaching pending invitations failed",
			slog.Int64("userID", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("user registered", slog.Int64("userID", user.ID))

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for user %d: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// Login verifies email + password and issues a token.
//
// Unknown email and wrong password are indistinguishable to the caller —
// both come back as the same Unauthenticated error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated()
		}
		return nil, fmt.Errorf("service/auth: looking up login email: %w", err)
	}

	if !s.passwords.Verify(user.PasswordHash, password) {
		return nil, apperror.Unauthenticated()
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for user %d: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.Int64("userID", user.ID))
	return &AuthResult{User: user, Token: token}, nil
}

// LoginWithGitHub logs in (or registers) a user from a GitHub profile.
//
// Accounts created this way get a random, unguessable password hash — the
// password login path stays closed until the user explicitly sets one.
func (s *AuthService) LoginWithGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	email := strings.ToLower(strings.TrimSpace(ghUser.Email))
	if email == "" {
		// GitHub lets users hide their email; fall back to the noreply form
		// so the unique-email invariant still holds.
		email = fmt.Sprintf("%s@users.noreply.github.com", strings.ToLower(ghUser.Login))
	}

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		// existing account
	case errors.Is(err, apperror.ErrNotFound):
		name := ghUser.Name
		if name == "" {
			name = ghUser.Login
		}

		// 32 random bytes, hex-encoded. Never matches any typed password.
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("service/auth: generating placeholder password: %w", err)
		}
		hash, err := s.passwords.Hash(hex.EncodeToString(buf))
		if err != nil {
			return nil, fmt.Errorf("service/auth: hashing placeholder password: %w", err)
		}

		user = &model.User{
			Name:         name,
			Email:        email,
			PasswordHash: hash,
			Privileges:   model.PrivilegeUser,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: creating user from GitHub profile: %w", err)
		}
		if err := s.invites.AttachReceiver(ctx, email, user.ID); err != nil {
			s.logger.Warn("attaching pending invitations failed",
				slog.Int64("userID", user.ID),
				slog.String("error", err.Error()),
			)
		}
		s.logger.Info("user registered via GitHub",
			slog.Int64("userID", user.ID),
			slog.Int64("githubID", ghUser.ID),
		)
	default:
		return nil, fmt.Errorf("service/auth: looking up GitHub email: %w", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for user %d: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// Resolve maps a raw bearer token to a live user record.
//
// Two checks, both mandatory: the signature/expiry must verify AND the
// subject must still exist. A perfectly valid token for a deleted account
// resolves to nothing — tokens are claims about the past, the user table is
// the present.
func (s *AuthService) Resolve(ctx context.Context, tokenStr string) (*model.User, error) {
	userID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return nil, apperror.Unauthenticated()
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated()
		}
		return nil, fmt.Errorf("service/auth: resolving user %d: %w", userID, err)
	}
	return user, nil
}

// GetUser maps an already-authenticated user ID to its live record. Like
// Resolve, a missing row means the identity is gone, not that a resource
// was not found.
func (s *AuthService) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated()
		}
		return nil, fmt.Errorf("service/auth: resolving user %d: %w", userID, err)
	}
	return user, nil
}

// ListUsers returns every account. Callers must gate with RequireAdmin.
func (s *AuthService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/auth: listing users: %w", err)
	}
	return users, nil
}

// SetPrivileges changes a user's account-wide privilege. Admin only —
// callers gate with RequireAdmin. An admin cannot demote themselves; that
// guard lives here because it is a business rule, not an HTTP concern.
func (s *AuthService) SetPrivileges(ctx context.Context, actor *model.User, targetID int64, p model.Privilege) error {
	if p != model.PrivilegeUser && p != model.PrivilegeAdmin {
		return apperror.ValidationFailed("privileges", "privileges must be \"user\" or \"admin\"")
	}
	if actor.ID == targetID && p != model.PrivilegeAdmin {
		return apperror.ValidationFailed("privileges", "cannot remove your own admin privilege")
	}

	if err := s.users.UpdatePrivileges(ctx, targetID, p); err != nil {
		return fmt.Errorf("service/auth: updating privileges: %w", err)
	}

	s.logger.Info("privileges changed",
		slog.Int64("actorID", actor.ID),
		slog.Int64("targetID", targetID),
		slog.String("privileges", string(p)),
	)
	return nil
}

// DeleteUser removes an account. Admin only — callers gate with
// RequireAdmin. Outstanding tokens for the account die with it: Resolve
// refuses to map them once the row is gone.
func (s *AuthService) DeleteUser(ctx context.Context, actor *model.User, targetID int64) error {
	if actor.ID == targetID {
		return apperror.ValidationFailed("id", "cannot delete your own account")
	}
	if err := s.users.Delete(ctx, targetID); err != nil {
		return fmt.Errorf("service/auth: deleting user %d: %w", targetID, err)
	}
	s.logger.Info("user deleted",
		slog.Int64("actorID", actor.ID),
		slog.Int64("targetID", targetID),
	)
	return nil
}

// Package service contains the business logic layer: validation, the
// authorization rules, and orchestration between the credential utilities
// and the repositories. Handlers parse HTTP and delegate here; services
// return domain errors (apperror) and never touch status codes.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/sakif/poetry-share/internal/apperror"
	"github.com/sakif/poetry-share/internal/auth"
	"github.com/sakif/poetry-share/internal/authz"
	"github.com/sakif/poetry-share/internal/model"
	"github.com/sakif/poetry-share/internal/repository"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// AuthService handles registration, login, and account management.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// RegisterInput carries the registration fields. Photo is optional;
// everything else is required (whitespace-only counts as missing).
type RegisterInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	NickName  string `json:"nickName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Photo     string `json:"photo"`
}

// AuthResult bundles the account and its freshly issued session token so
// the handler can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates a new account with the "user" role.
//
// Validation order matters for error messages: required fields first, then
// email shape, then the duplicate check. The duplicate check here is a
// courtesy read — the UNIQUE constraint in the repository is what actually
// guarantees uniqueness under concurrent registrations.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	for _, f := range []struct{ name, value string }{
		{"firstName", in.FirstName},
		{"lastName", in.LastName},
		{"nickName", in.NickName},
		{"email", in.Email},
		{"password", in.Password},
	} {
		if err := authz.RequiredText(f.name, f.value); err != nil {
			return nil, err
		}
	}

	email := strings.TrimSpace(in.Email)
	if !emailPattern.MatchString(email) {
		return nil, apperror.ValidationFailed("email", "email field is not valid")
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict("email", "email already exists")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking email %s: %w", email, err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		NickName:     strings.TrimSpace(in.NickName),
		Email:        email,
		Photo:        strings.TrimSpace(in.Photo),
		PasswordHash: hash,
		Role:         model.RoleUser,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("nickName", user.NickName),
	)

	return user, nil
}

// Login verifies the credentials and issues a session token.
//
// A missing account and a wrong password both come back as the same
// InvalidCredential message so a caller can't probe which emails are
// registered.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if err := authz.RequiredText("email", email); err != nil {
		return nil, err
	}
	if err := authz.RequiredText("password", password); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidCredential("invalid email or password")
		}
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, err
	}

	return s.issueToken(user)
}

// LoginOrRegisterGitHub completes the OAuth callback: first login creates
// an account with the "user" role, later logins reuse it. OAuth accounts
// get a random throwaway password hash — they authenticate through GitHub,
// never through the password login.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user, err := s.users.GetUserByGitHubID(ctx, ghUser.ID)
	if err == nil {
		return s.issueToken(user)
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: looking up githubID %d: %w", ghUser.ID, err)
	}

	first, last := splitName(ghUser.Name, ghUser.Login)

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("service/auth: generating OAuth account secret: %w", err)
	}
	hash, err := s.passwords.Hash(hex.EncodeToString(secret)[:64])
	if err != nil {
		return nil, err
	}

	user = &model.User{
		FirstName:    first,
		LastName:     last,
		NickName:     ghUser.Login,
		Email:        ghUser.Email,
		Photo:        ghUser.AvatarURL,
		PasswordHash: hash,
		Role:         model.RoleUser,
		GitHubID:     ghUser.ID,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating OAuth user (githubID=%d): %w", ghUser.ID, err)
	}

	s.logger.Info("user registered via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", ghUser.Login),
	)

	return s.issueToken(user)
}

func (s *AuthService) issueToken(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(auth.Identity{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user authenticated", slog.String("userID", user.ID))

	return &AuthResult{User: user, Token: token}, nil
}

// CheckToken validates a raw token string and returns the identity it
// carries. Thin delegation so handlers only import the service package.
func (s *AuthService) CheckToken(tokenStr string) (auth.Identity, error) {
	return s.tokens.Validate(tokenStr)
}

// ListUsers returns all accounts. Admin-gated at the route.
func (s *AuthService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		s.logger.Error("failed to list users", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// GetUserByID returns the account for the given ID.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}
	return s.users.GetUserByID(ctx, id)
}

// UpdateUserInput carries the self-service profile fields. Empty fields
// are left unchanged.
type UpdateUserInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	NickName  string `json:"nickName"`
	Photo     string `json:"photo"`
}

// UpdateUser applies a profile update. Only the account holder or an
// admin may update an account; role changes go through ChangeRole, never
// here.
func (s *AuthService) UpdateUser(ctx context.Context, caller auth.Identity, id string, in UpdateUserInput) (*model.User, error) {
	if caller.UserID != id && !caller.Role.AtLeast(model.RoleAdmin) {
		return nil, apperror.Forbidden("you can only update your own account")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if v := strings.TrimSpace(in.FirstName); v != "" {
		user.FirstName = v
	}
	if v := strings.TrimSpace(in.LastName); v != "" {
		user.LastName = v
	}
	if v := strings.TrimSpace(in.NickName); v != "" {
		user.NickName = v
	}
	if v := strings.TrimSpace(in.Photo); v != "" {
		user.Photo = v
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: updating user %s: %w", id, err)
	}

	s.logger.Info("user updated", slog.String("userID", id))
	return user, nil
}

// DeleteUser removes an account. Only the account holder or an admin.
// The account's poems are not touched here — they become orphans and are
// purged lazily by the poem service on the next listing read.
func (s *AuthService) DeleteUser(ctx context.Context, caller auth.Identity, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "user ID is required")
	}

	if caller.UserID != id && !caller.Role.AtLeast(model.RoleAdmin) {
		return apperror.Forbidden("you can only delete your own account")
	}

	if err := s.users.DeleteUser(ctx, id); err != nil {
		return err
	}

	s.logger.Info("user deleted",
		slog.String("userID", id),
		slog.String("deletedBy", caller.UserID),
	)
	return nil
}

// ChangeRole sets an account's role tier. The route is super-admin-gated;
// the service still validates the target role so a typo can't write an
// unknown tier into the database.
func (s *AuthService) ChangeRole(ctx context.Context, id string, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, apperror.ValidationFailed("role",
			fmt.Sprintf("unknown role %q", role))
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.Role = role
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: changing role of %s: %w", id, err)
	}

	s.logger.Info("user role changed",
		slog.String("userID", id),
		slog.String("role", string(role)),
	)
	return user, nil
}

// splitName turns a GitHub display name into first/last parts, falling
// back to the login when the display name is hidden.
func splitName(name, login string) (first, last string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return login, login
	}
	parts := strings.SplitN(name, " ", 2)
	if len(parts) == 1 {
		return parts[0], parts[0]
	}
	return parts[0], parts[1]
}

// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"

	"github.com/sweethome/vacancies-bot/internal/domain/profile"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER USER COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// RegisterUserCommand creates the base account for a Telegram user.
type RegisterUserCommand struct {
	UserID    int64
	FirstName string
	LastName  string
}

// RegisterUserHandler handles RegisterUserCommand.
type RegisterUserHandler struct {
	users profile.UserRepository
}

// NewRegisterUserHandler creates a new RegisterUserHandler.
func NewRegisterUserHandler(users profile.UserRepository) *RegisterUserHandler {
	return &RegisterUserHandler{users: users}
}

// Handle registers the user. A second registration of the same ID fails with
// ErrUserAlreadyExists.
func (h *RegisterUserHandler) Handle(ctx context.Context, cmd RegisterUserCommand) (*profile.User, error) {
	user, err := profile.NewUser(cmd.UserID, cmd.FirstName, cmd.LastName)
	if err != nil {
		return nil, err
	}

	if err := h.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("register_user: %w", err)
	}

	return user, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE USER COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// UpdateUserCommand renames an existing user.
type UpdateUserCommand struct {
	UserID    int64
	FirstName string
	LastName  string
}

// UpdateUserHandler handles UpdateUserCommand.
type UpdateUserHandler struct {
	users profile.UserRepository
	cache profile.Cache
}

// NewUpdateUserHandler creates a new UpdateUserHandler. cache may be nil.
func NewUpdateUserHandler(users profile.UserRepository, cache profile.Cache) *UpdateUserHandler {
	return &UpdateUserHandler{users: users, cache: cache}
}

// Handle applies the new names and drops the cached profile.
func (h *UpdateUserHandler) Handle(ctx context.Context, cmd UpdateUserCommand) (*profile.User, error) {
	user, err := h.users.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("update_user: %w", err)
	}

	if err := user.Rename(cmd.FirstName, cmd.LastName); err != nil {
		return nil, err
	}

	if err := h.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update_user: %w", err)
	}

	invalidate(ctx, h.cache, cmd.UserID)
	return user, nil
}

// invalidate drops a cached profile. A failure only delays freshness until
// the cache TTL, so it is not reported.
func invalidate(ctx context.Context, cache profile.Cache, userID int64) {
	if cache != nil {
		_ = cache.Invalidate(ctx, userID)
	}
}

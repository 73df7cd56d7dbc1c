package services

import (
	"context"
	"fmt"

	"neosocial/internal/storage"
)

// AuthorizationGuard answers role and relationship questions before a
// mutation is attempted. Each check is one existence read.
type AuthorizationGuard interface {
	IsAdmin(ctx context.Context, userID, groupID string) (bool, error)
	IsMember(ctx context.Context, userID, groupID string) (bool, error)
	IsFriend(ctx context.Context, userID, otherID string) (bool, error)
	// RequireAdmin returns ErrUnauthorized unless userID holds ADMIN_OF on groupID.
	RequireAdmin(ctx context.Context, userID, groupID string) error
}

type authorizationGuard struct {
	store storage.GraphStore
}

// NewAuthorizationGuard creates a new AuthorizationGuard.
func NewAuthorizationGuard(store storage.GraphStore) AuthorizationGuard {
	return &authorizationGuard{store: store}
}

func (g *authorizationGuard) check(ctx context.Context, fn func(tx storage.GraphTx) (bool, error)) (bool, error) {
	var ok bool
	err := g.store.Read(ctx, func(tx storage.GraphTx) error {
		var err error
		ok, err = fn(tx)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("authorization check failed: %w", err)
	}
	return ok, nil
}

func (g *authorizationGuard) IsAdmin(ctx context.Context, userID, groupID string) (bool, error) {
	return g.check(ctx, func(tx storage.GraphTx) (bool, error) {
		return tx.IsAdmin(ctx, userID, groupID)
	})
}

func (g *authorizationGuard) IsMember(ctx context.Context, userID, groupID string) (bool, error) {
	return g.check(ctx, func(tx storage.GraphTx) (bool, error) {
		member, err := tx.GetMembership(ctx, userID, groupID)
		return member != nil, err
	})
}

func (g *authorizationGuard) IsFriend(ctx context.Context, userID, otherID string) (bool, error) {
	return g.check(ctx, func(tx storage.GraphTx) (bool, error) {
		return tx.AreFriends(ctx, userID, otherID)
	})
}

func (g *authorizationGuard) RequireAdmin(ctx context.Context, userID, groupID string) error {
	ok, err := g.IsAdmin(ctx, userID, groupID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

package user

import "context"

// Repository provides persistence for users and their API keys.
type Repository interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id string) (*User, error)
	SetRole(ctx context.Context, id string, role Role) error
	AddAPIKey(ctx context.Context, keyHash, userID, description string) error
	ResolveAPIKey(ctx context.Context, keyHash string) (string, error)
}

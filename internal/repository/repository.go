// Package repository declares the storage interfaces the service layer
// depends on. Implementations live in sub-packages (sqlite, redis).
package repository

import (
	"context"
	"time"

	"github.com/sakif/daily-diet/internal/model"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	ListUsers(ctx context.Context) ([]model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// MealRepository methods are all owner-scoped: a meal that exists but
// belongs to someone else is reported exactly like a missing one.
type MealRepository interface {
	CreateMeal(ctx context.Context, meal *model.Meal) error
	ListMeals(ctx context.Context, userID string) ([]model.Meal, error)
	GetMeal(ctx context.Context, userID, mealID string) (*model.Meal, error)
	UpdateMeal(ctx context.Context, meal *model.Meal) error
	DeleteMeal(ctx context.Context, userID, mealID string) error
	Summary(ctx context.Context, userID string) (*model.Summary, error)
}

// RevocationStore remembers session token ids that were logged out before
// they expired. Entries may be dropped once until has passed.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

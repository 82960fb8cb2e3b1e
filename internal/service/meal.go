// Package service contains the business logic layer:
//
//	Handler (HTTP)  → parses requests, writes responses
//	Service         → validates, checks ownership, orchestrates
//	Repository      → reads/writes the database
//
// Services take repository interfaces, not *sqlite.DB, so tests swap in
// in-memory fakes (see meal_test.go) and the handlers never see SQL.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/sakif/daily-diet/internal/apperror"
	"github.com/sakif/daily-diet/internal/model"
	"github.com/sakif/daily-diet/internal/repository"
)

// MealService handles business logic for meals. Every method takes the
// owner's user id, resolved from the session by the HTTP layer.
type MealService struct {
	repo   repository.MealRepository
	logger *slog.Logger
}

func NewMealService(repo repository.MealRepository, logger *slog.Logger) *MealService {
	return &MealService{
		repo:   repo,
		logger: logger,
	}
}

// validateID rejects ids that are not uuids before they reach a query.
func validateID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperror.ValidationFailed(field, fmt.Sprintf("%s must be a valid uuid", field))
	}
	return nil
}

func requireText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperror.ValidationFailed(field, fmt.Sprintf("%s is required", field))
	}
	return nil
}

// List returns every meal the user owns, in the order they were recorded.
func (s *MealService) List(ctx context.Context, userID string) ([]model.Meal, error) {
	if err := validateID("userId", userID); err != nil {
		return nil, err
	}

	meals, err := s.repo.ListMeals(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list meals",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing meals: %w", err)
	}
	return meals, nil
}

// Get returns the meal, or (nil, nil) when the user owns no meal with that
// id. A missing meal is an empty result, not an error.
func (s *MealService) Get(ctx context.Context, userID, mealID string) (*model.Meal, error) {
	if err := validateID("userId", userID); err != nil {
		return nil, err
	}
	if err := validateID("id", mealID); err != nil {
		return nil, err
	}

	meal, err := s.repo.GetMeal(ctx, userID, mealID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting meal: %w", err)
	}
	return meal, nil
}

// Create records a new meal for userID. name and eatenAt must be non-blank;
// eatenAt is stored as given and never parsed.
func (s *MealService) Create(ctx context.Context, userID, name, description, eatenAt string, diet bool) (*model.Meal, error) {
	if err := validateID("userId", userID); err != nil {
		return nil, err
	}
	if err := requireText("name", name); err != nil {
		return nil, err
	}
	if err := requireText("eaten_at", eatenAt); err != nil {
		return nil, err
	}

	meal := &model.Meal{
		UserID:      userID,
		Name:        strings.TrimSpace(name),
		Description: description,
		EatenAt:     eatenAt,
		Diet:        diet,
	}

	if err := s.repo.CreateMeal(ctx, meal); err != nil {
		s.logger.Error("failed to create meal",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating meal: %w", err)
	}

	s.logger.Info("meal created",
		slog.String("id", meal.ID),
		slog.String("userID", userID),
		slog.Bool("diet", meal.Diet),
	)
	return meal, nil
}

// Update applies patch to a meal the user owns.
//
// STRATEGY: fetch, check, then write.
//  1. Validate the patch (a present name or eaten_at may not be blank)
//  2. Fetch the meal scoped to the owner; none means Unauthorized, and
//     nothing has been written yet
//  3. An empty patch stops here and succeeds
//  4. Apply the set fields and save
func (s *MealService) Update(ctx context.Context, userID, mealID string, patch model.MealPatch) (*model.Meal, error) {
	if err := validateID("userId", userID); err != nil {
		return nil, err
	}
	if err := validateID("id", mealID); err != nil {
		return nil, err
	}
	if patch.Name != nil {
		if err := requireText("name", *patch.Name); err != nil {
			return nil, err
		}
		trimmed := strings.TrimSpace(*patch.Name)
		patch.Name = &trimmed
	}
	if patch.EatenAt != nil {
		if err := requireText("eaten_at", *patch.EatenAt); err != nil {
			return nil, err
		}
	}

	meal, err := s.repo.GetMeal(ctx, userID, mealID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, notOwned(mealID)
		}
		return nil, fmt.Errorf("updating meal: %w", err)
	}

	if patch.IsEmpty() {
		return meal, nil
	}

	patch.Apply(meal)
	if err := s.repo.UpdateMeal(ctx, meal); err != nil {
		// Deleted between the fetch and the write.
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, notOwned(mealID)
		}
		s.logger.Error("failed to update meal",
			slog.String("id", mealID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating meal: %w", err)
	}

	s.logger.Info("meal updated", slog.String("id", mealID), slog.String("userID", userID))
	return meal, nil
}

// Delete removes a meal the user owns. A missing meal and someone else's
// meal both report Unauthorized and delete nothing.
func (s *MealService) Delete(ctx context.Context, userID, mealID string) error {
	if err := validateID("userId", userID); err != nil {
		return err
	}
	if err := validateID("id", mealID); err != nil {
		return err
	}

	if err := s.repo.DeleteMeal(ctx, userID, mealID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return notOwned(mealID)
		}
		return fmt.Errorf("deleting meal: %w", err)
	}

	s.logger.Info("meal deleted", slog.String("id", mealID), slog.String("userID", userID))
	return nil
}

// Summary returns the user's diet report. A user with no meals gets a
// zero-filled summary.
func (s *MealService) Summary(ctx context.Context, userID string) (*model.Summary, error) {
	if err := validateID("userId", userID); err != nil {
		return nil, err
	}

	summary, err := s.repo.Summary(ctx, userID)
	if err != nil {
		s.logger.Error("failed to compute summary",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("computing summary: %w", err)
	}
	return summary, nil
}

func notOwned(mealID string) error {
	return apperror.Unauthorized(fmt.Sprintf("meal %s does not belong to this user", mealID))
}

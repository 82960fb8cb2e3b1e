package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/daily-diet/internal/apperror"
	"github.com/sakif/daily-diet/internal/model"
	"github.com/sakif/daily-diet/internal/streak"
)

// =========================================================================
// IN-MEMORY REPOSITORIES
// =========================================================================
//
// Hand-written fakes of the repository interfaces. They keep data in
// memory, copy values in and out so tests can't alias internal state, and
// expose error fields to simulate a failing database.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUserRepo struct {
	users     []*model.User
	createErr error
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.Conflict("user", "email "+user.Email)
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now().UTC()
	stored := *user
	f.users = append(f.users, &stored)
	return nil
}

func (f *fakeUserRepo) ListUsers(_ context.Context) ([]model.User, error) {
	out := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			found := *u
			return &found, nil
		}
	}
	return nil, apperror.NotFound("user", id)
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			found := *u
			return &found, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

// fakeMealRepo keeps meals in a slice; slice order is insertion order.
type fakeMealRepo struct {
	meals   []*model.Meal
	writes  int
	listErr error
}

func (f *fakeMealRepo) CreateMeal(_ context.Context, meal *model.Meal) error {
	meal.ID = uuid.NewString()
	meal.CreatedAt = time.Now().UTC()
	meal.UpdatedAt = meal.CreatedAt
	stored := *meal
	f.meals = append(f.meals, &stored)
	f.writes++
	return nil
}

func (f *fakeMealRepo) ListMeals(_ context.Context, userID string) ([]model.Meal, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []model.Meal{}
	for _, m := range f.meals {
		if m.UserID == userID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMealRepo) find(userID, mealID string) int {
	for i, m := range f.meals {
		if m.ID == mealID && m.UserID == userID {
			return i
		}
	}
	return -1
}

func (f *fakeMealRepo) GetMeal(_ context.Context, userID, mealID string) (*model.Meal, error) {
	i := f.find(userID, mealID)
	if i < 0 {
		return nil, apperror.NotFound("meal", mealID)
	}
	found := *f.meals[i]
	return &found, nil
}

func (f *fakeMealRepo) UpdateMeal(_ context.Context, meal *model.Meal) error {
	i := f.find(meal.UserID, meal.ID)
	if i < 0 {
		return apperror.NotFound("meal", meal.ID)
	}
	stored := *meal
	f.meals[i] = &stored
	f.writes++
	return nil
}

func (f *fakeMealRepo) DeleteMeal(_ context.Context, userID, mealID string) error {
	i := f.find(userID, mealID)
	if i < 0 {
		return apperror.NotFound("meal", mealID)
	}
	f.meals = append(f.meals[:i], f.meals[i+1:]...)
	f.writes++
	return nil
}

func (f *fakeMealRepo) Summary(_ context.Context, userID string) (*model.Summary, error) {
	var diet []bool
	for _, m := range f.meals {
		if m.UserID == userID {
			diet = append(diet, m.Diet)
		}
	}
	st := streak.Compute(diet)
	return &model.Summary{
		UserID:       userID,
		BestSequence: st.BestSequence,
		TotalMeals:   st.Total,
		InDiet:       st.InDiet,
		OutDiet:      st.OutDiet,
	}, nil
}

type fakeRevocations struct {
	until map[string]time.Time
	err   error
}

func newFakeRevocations() *fakeRevocations {
	return &fakeRevocations{until: make(map[string]time.Time)}
}

func (f *fakeRevocations) Revoke(_ context.Context, tokenID string, until time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.until[tokenID] = until
	return nil
}

func (f *fakeRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	_, ok := f.until[tokenID]
	return ok, nil
}

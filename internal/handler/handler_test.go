package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/daily-diet/internal/apperror"
	"github.com/sakif/daily-diet/internal/auth"
	"github.com/sakif/daily-diet/internal/handler"
	"github.com/sakif/daily-diet/internal/model"
	"github.com/sakif/daily-diet/internal/service"
)

const (
	ownerID = "6f1c2d4e-8a9b-4c3d-9e1f-0a2b3c4d5e6f"
	mealID  = "0b7f8a8e-6a4f-4d0f-9f1e-2b9c3f5a1d77"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeMeals records the last call and returns canned results.
type fakeMeals struct {
	gotUserID string
	gotMealID string
	gotPatch  model.MealPatch
	gotCreate []any

	meal    *model.Meal
	meals   []model.Meal
	summary *model.Summary
	err     error
}

func (f *fakeMeals) List(_ context.Context, userID string) ([]model.Meal, error) {
	f.gotUserID = userID
	return f.meals, f.err
}

func (f *fakeMeals) Get(_ context.Context, userID, mealID string) (*model.Meal, error) {
	f.gotUserID, f.gotMealID = userID, mealID
	return f.meal, f.err
}

func (f *fakeMeals) Create(_ context.Context, userID, name, description, eatenAt string, diet bool) (*model.Meal, error) {
	f.gotUserID = userID
	f.gotCreate = []any{name, description, eatenAt, diet}
	return &model.Meal{ID: mealID}, f.err
}

func (f *fakeMeals) Update(_ context.Context, userID, mealID string, patch model.MealPatch) (*model.Meal, error) {
	f.gotUserID, f.gotMealID, f.gotPatch = userID, mealID, patch
	return f.meal, f.err
}

func (f *fakeMeals) Delete(_ context.Context, userID, mealID string) error {
	f.gotUserID, f.gotMealID = userID, mealID
	return f.err
}

func (f *fakeMeals) Summary(_ context.Context, userID string) (*model.Summary, error) {
	f.gotUserID = userID
	return f.summary, f.err
}

// fakeUsers returns canned results for the user routes.
type fakeUsers struct {
	users      []model.User
	user       *model.User
	login      *service.LoginResult
	err        error
	gotCurrent *auth.Session
	loggedOut  *auth.Session
	gotGitHub  *auth.GitHubUser
}

func (f *fakeUsers) List(context.Context) ([]model.User, error) { return f.users, f.err }

func (f *fakeUsers) Register(_ context.Context, name, email, _ string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.User{ID: ownerID, Name: name, Email: email}, nil
}

func (f *fakeUsers) Login(_ context.Context, _, _ string, current *auth.Session) (*service.LoginResult, error) {
	f.gotCurrent = current
	return f.login, f.err
}

func (f *fakeUsers) LoginGitHub(_ context.Context, gh *auth.GitHubUser) (*service.LoginResult, error) {
	f.gotGitHub = gh
	return f.login, f.err
}

func (f *fakeUsers) Logout(_ context.Context, session *auth.Session) error {
	f.loggedOut = session
	return f.err
}

func (f *fakeUsers) GetByID(context.Context, string) (*model.User, error) { return f.user, f.err }

func session() *auth.Session {
	return &auth.Session{UserID: ownerID, TokenID: "tok-1", ExpiresAt: time.Now().Add(time.Hour)}
}

// serve routes one request through a chi router so URL params resolve.
// When signedIn is true the request carries a session as if RequireAuth
// had run.
func serve(register func(chi.Router), method, target, body string, signedIn bool) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	register(r)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if signedIn {
		req = req.WithContext(auth.WithSession(req.Context(), session()))
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func mealRoutes(meals handler.MealService) func(chi.Router) {
	h := handler.NewMealHandler(meals, testLogger)
	return func(r chi.Router) {
		r.Get("/meals", h.HandleList)
		r.Get("/meals/summary", h.HandleSummary)
		r.Get("/meals/{id}", h.HandleGet)
		r.Post("/meals", h.HandleCreate)
		r.Put("/meals/{id}", h.HandleUpdate)
		r.Delete("/meals/{id}", h.HandleDelete)
	}
}

var errNotOwned = apperror.Unauthorized("meal does not belong to this user")

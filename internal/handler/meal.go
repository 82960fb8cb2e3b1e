package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/daily-diet/internal/apperror"
	"github.com/sakif/daily-diet/internal/auth"
	"github.com/sakif/daily-diet/internal/model"
)

// MealService is the part of service.MealService the handlers call.
type MealService interface {
	List(ctx context.Context, userID string) ([]model.Meal, error)
	Get(ctx context.Context, userID, mealID string) (*model.Meal, error)
	Create(ctx context.Context, userID, name, description, eatenAt string, diet bool) (*model.Meal, error)
	Update(ctx context.Context, userID, mealID string, patch model.MealPatch) (*model.Meal, error)
	Delete(ctx context.Context, userID, mealID string) error
	Summary(ctx context.Context, userID string) (*model.Summary, error)
}

// MealHandler serves /meals. Every route sits behind auth.RequireAuth, so
// the owner always comes from the session and never from the request body.
//
// REQUEST FLOW:
// validate input shape → resolve owner from session → service checks
// ownership and runs the store operation → map the result to a status.
type MealHandler struct {
	meals  MealService
	logger *slog.Logger
}

func NewMealHandler(meals MealService, logger *slog.Logger) *MealHandler {
	return &MealHandler{meals: meals, logger: logger}
}

type mealsResponse struct {
	Meals []model.Meal `json:"meals"`
}

type mealResponse struct {
	Meal *model.Meal `json:"meal"`
}

type summaryResponse struct {
	Meals []model.Summary `json:"meals"`
}

// createMealRequest uses pointers so an absent field can be told apart from
// a zero value: `"diet": false` is valid, a missing diet is not.
type createMealRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	EatenAt     *string `json:"eaten_at"`
	Diet        *bool   `json:"diet"`
}

// HandleList returns the caller's meals in insertion order.
//
// HTTP: GET /meals
func (h *MealHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	meals, err := h.meals.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mealsResponse{Meals: meals})
}

// HandleSummary returns the caller's diet report as a one-element list.
//
// HTTP: GET /meals/summary
func (h *MealHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	summary, err := h.meals.Summary(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{Meals: []model.Summary{*summary}})
}

// HandleGet returns one meal, or {"meal": null} when the caller owns no
// meal with that id.
//
// HTTP: GET /meals/{id}
func (h *MealHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	meal, err := h.meals.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mealResponse{Meal: meal})
}

// HandleCreate records a meal for the caller.
//
// HTTP: POST /meals
// REQUEST BODY: {"name": "...", "description": "...", "eaten_at": "...", "diet": true}
func (h *MealHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req createMealRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Debug("invalid meal JSON", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	if err := requireFields(
		field{"name", req.Name != nil},
		field{"description", req.Description != nil},
		field{"eaten_at", req.EatenAt != nil},
		field{"diet", req.Diet != nil},
	); err != nil {
		writeError(w, err)
		return
	}

	_, err := h.meals.Create(r.Context(), userID, *req.Name, *req.Description, *req.EatenAt, *req.Diet)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// HandleUpdate applies a partial update. Absent and null fields are left
// unchanged; any other value, including false and "", is written.
//
// HTTP: PUT /meals/{id}
func (h *MealHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var patch model.MealPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		h.logger.Debug("invalid meal patch JSON", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	if _, err := h.meals.Update(r.Context(), userID, chi.URLParam(r, "id"), patch); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Updated"})
}

// HandleDelete removes one of the caller's meals.
//
// HTTP: DELETE /meals/{id}
func (h *MealHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.meals.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Deleted"})
}

// requireUser reads the owner RequireAuth stored and answers 401 itself
// when there is none.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid session required"))
		return "", false
	}
	return userID, true
}

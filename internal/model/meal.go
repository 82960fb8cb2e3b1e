package model

import "time"

// Meal is one eaten meal, owned by exactly one user.
//
// EatenAt is stored exactly as the client sent it; the API never parses it.
// Ordering for the diet streak uses insertion order, not EatenAt.
type Meal struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	EatenAt     string    `json:"eaten_at"`
	Diet        bool      `json:"diet"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MealPatch is a partial update. A nil field means "leave unchanged"; any
// non-nil field is applied, including false and "".
type MealPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	EatenAt     *string `json:"eaten_at"`
	Diet        *bool   `json:"diet"`
}

// IsEmpty reports whether the patch would change nothing.
func (p MealPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.EatenAt == nil && p.Diet == nil
}

// Apply copies every set field onto m.
func (p MealPatch) Apply(m *Meal) {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Description != nil {
		m.Description = *p.Description
	}
	if p.EatenAt != nil {
		m.EatenAt = *p.EatenAt
	}
	if p.Diet != nil {
		m.Diet = *p.Diet
	}
}

// Summary is the per-user diet report.
//
// Invariant: InDiet + OutDiet == TotalMeals. BestSequence is the length of
// the longest run of consecutive on-diet meals in insertion order, 0 when
// the user has no on-diet meals.
type Summary struct {
	UserID       string `json:"user_id"`
	BestSequence int    `json:"best_sequence"`
	TotalMeals   int    `json:"total_meals"`
	InDiet       int    `json:"in_diet"`
	OutDiet      int    `json:"out_diet"`
}

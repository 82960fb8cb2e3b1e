package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sakif/daily-diet/internal/apperror"
	"github.com/sakif/daily-diet/internal/model"
	"github.com/sakif/daily-diet/internal/repository"
)

var _ repository.MealRepository = (*DB)(nil)

const mealColumns = `id, user_id, name, description, eaten_at, diet, created_at, updated_at`

// CreateMeal inserts a meal and fills in ID and timestamps. The meal's
// insertion position (rowid) is what the diet streak is ordered by.
func (db *DB) CreateMeal(ctx context.Context, meal *model.Meal) error {
	meal.ID = uuid.NewString()
	now := time.Now().UTC()
	meal.CreatedAt = now
	meal.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO meals (`+mealColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		meal.ID,
		meal.UserID,
		meal.Name,
		meal.Description,
		meal.EatenAt,
		boolToInt(meal.Diet),
		meal.CreatedAt,
		meal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating meal: %w", err)
	}

	return nil
}

// ListMeals returns the user's meals in insertion order.
func (db *DB) ListMeals(ctx context.Context, userID string) ([]model.Meal, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+mealColumns+`
		 FROM meals
		 WHERE user_id = ?
		 ORDER BY rowid`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing meals: %w", err)
	}
	defer rows.Close()

	meals := []model.Meal{}
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, err
		}
		meals = append(meals, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating meals: %w", err)
	}

	return meals, nil
}

// GetMeal returns apperror.ErrNotFound when the meal is absent or owned by
// another user. The two cases are deliberately indistinguishable.
func (db *DB) GetMeal(ctx context.Context, userID, mealID string) (*model.Meal, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+mealColumns+`
		 FROM meals
		 WHERE id = ? AND user_id = ?`,
		mealID, userID,
	)
	m, err := scanMeal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("meal", mealID)
	}
	return m, err
}

// UpdateMeal writes every mutable column of meal. The WHERE clause repeats
// the owner check so a meal can never be rewritten under another user.
func (db *DB) UpdateMeal(ctx context.Context, meal *model.Meal) error {
	meal.UpdatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE meals
		 SET name = ?, description = ?, eaten_at = ?, diet = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		meal.Name,
		meal.Description,
		meal.EatenAt,
		boolToInt(meal.Diet),
		meal.UpdatedAt,
		meal.ID,
		meal.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating meal %s: %w", meal.ID, err)
	}

	return checkAffected(result, "meal", meal.ID)
}

// DeleteMeal removes the meal if, and only if, userID owns it.
func (db *DB) DeleteMeal(ctx context.Context, userID, mealID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM meals WHERE id = ? AND user_id = ?`,
		mealID, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting meal %s: %w", mealID, err)
	}

	return checkAffected(result, "meal", mealID)
}

// summaryQuery computes the diet report for one user in a single statement.
//
// HOW THE STREAK IS FOUND (gaps and islands):
// Number every meal in insertion order (rn_all) and, separately, number the
// meals within each diet value (rn_diet). Inside a run of consecutive
// on-diet meals both numbers grow by one per row, so rn_all - rn_diet is
// constant; any off-diet meal in between bumps rn_all only, so the next run
// gets a larger key. Grouping on-diet rows by that key yields one group per
// run, and the largest group is the best sequence.
//
// The outer SELECT aggregates over "ordered" without GROUP BY, so it always
// returns exactly one row, zero-filled when the user has no meals.
const summaryQuery = `
WITH ordered AS (
	SELECT diet,
	       ROW_NUMBER() OVER (ORDER BY rowid)
	     - ROW_NUMBER() OVER (PARTITION BY diet ORDER BY rowid) AS run_key
	FROM meals
	WHERE user_id = ?
),
runs AS (
	SELECT COUNT(*) AS run_length
	FROM ordered
	WHERE diet = 1
	GROUP BY run_key
)
SELECT
	COALESCE((SELECT MAX(run_length) FROM runs), 0),
	COUNT(*),
	COALESCE(SUM(diet = 1), 0),
	COALESCE(SUM(diet = 0), 0)
FROM ordered`

// Summary returns the diet report for userID. It never returns NotFound.
func (db *DB) Summary(ctx context.Context, userID string) (*model.Summary, error) {
	s := model.Summary{UserID: userID}
	err := db.conn.QueryRowContext(ctx, summaryQuery, userID).Scan(
		&s.BestSequence,
		&s.TotalMeals,
		&s.InDiet,
		&s.OutDiet,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: computing summary for %s: %w", userID, err)
	}
	return &s, nil
}

func scanMeal(s scanner) (*model.Meal, error) {
	var m model.Meal
	if err := s.Scan(
		&m.ID,
		&m.UserID,
		&m.Name,
		&m.Description,
		&m.EatenAt,
		&m.Diet,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("sqlite: scanning meal: %w", err)
	}
	return &m, nil
}

// checkAffected turns "0 rows affected" into apperror.ErrNotFound.
func checkAffected(result sql.Result, resource, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package plans

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Exercise is one catalog exercise.
type Exercise struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Description          string `json:"description,omitempty"`
	PrimaryMuscleGroup   string `json:"primary_muscle_group"`
	SecondaryMuscleGroup string `json:"secondary_muscle_group,omitempty"`
	EquipmentNeeded      string `json:"equipment_needed,omitempty"`
	DifficultyLevel      string `json:"difficulty_level,omitempty"`
	Instructions         string `json:"instructions,omitempty"`
}

// ExerciseFilter narrows the catalog listing. Zero values match all.
type ExerciseFilter struct {
	MuscleGroup string
	Equipment   string
	Difficulty  string
}

// WorkoutPlan is a user's weekly training plan header.
type WorkoutPlan struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Objective string `json:"objective,omitempty"`
}

// WorkoutEntry places an exercise on a day, by exercise name.
type WorkoutEntry struct {
	DayOfWeek    string `json:"day_of_week"`
	ExerciseName string `json:"exercise_name"`
	Sets         int    `json:"sets"`
	Reps         string `json:"reps"`
	RestSeconds  int    `json:"rest_seconds"`
	Order        int    `json:"order"`
}

// PlannedWorkout is a resolved plan entry, exercise included.
type PlannedWorkout struct {
	DayOfWeek    string `json:"day_of_week"`
	ExerciseName string `json:"exercise_name"`
	MuscleGroup  string `json:"muscle_group,omitempty"`
	Sets         int    `json:"sets"`
	Reps         string `json:"reps"`
	RestSeconds  int    `json:"rest_seconds"`
	Order        int    `json:"order"`
}

// Session is one recorded workout.
type Session struct {
	ID              string          `json:"id"`
	WorkoutDate     string          `json:"workout_date"`
	WorkoutName     string          `json:"workout_name"`
	Exercises       json.RawMessage `json:"exercises_performed,omitempty"`
	DurationMinutes int             `json:"duration_minutes,omitempty"`
	IntensityRating int             `json:"intensity_rating,omitempty"`
}

// Exercises returns the catalog, optionally filtered.
func (s *Store) Exercises(ctx context.Context, filter ExerciseFilter) ([]Exercise, error) {
	query := `
		SELECT id, name, description, primary_muscle_group, secondary_muscle_group,
		       equipment_needed, difficulty_level, instructions
		FROM exercises WHERE 1=1`
	var args []any
	if filter.MuscleGroup != "" {
		query += ` AND primary_muscle_group = ? COLLATE NOCASE`
		args = append(args, filter.MuscleGroup)
	}
	if filter.Equipment != "" {
		query += ` AND equipment_needed = ? COLLATE NOCASE`
		args = append(args, filter.Equipment)
	}
	if filter.Difficulty != "" {
		query += ` AND difficulty_level = ? COLLATE NOCASE`
		args = append(args, filter.Difficulty)
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	defer rows.Close()

	var exercises []Exercise
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, err
		}
		exercises = append(exercises, *e)
	}
	return exercises, rows.Err()
}

func scanExercise(row interface{ Scan(...any) error }) (*Exercise, error) {
	var e Exercise
	var desc, secondary, equipment, difficulty, instructions sql.NullString
	if err := row.Scan(&e.ID, &e.Name, &desc, &e.PrimaryMuscleGroup, &secondary,
		&equipment, &difficulty, &instructions); err != nil {
		return nil, fmt.Errorf("scan exercise: %w", err)
	}
	e.Description = desc.String
	e.SecondaryMuscleGroup = secondary.String
	e.EquipmentNeeded = equipment.String
	e.DifficultyLevel = difficulty.String
	e.Instructions = instructions.String
	return &e, nil
}

// ExerciseByName finds an exercise case-insensitively, falling back to
// a substring match.
func (s *Store) ExerciseByName(ctx context.Context, name string) (*Exercise, error) {
	const cols = `id, name, description, primary_muscle_group, secondary_muscle_group,
		equipment_needed, difficulty_level, instructions`
	row := s.db.QueryRowContext(ctx,
		`SELECT `+cols+` FROM exercises WHERE name = ? COLLATE NOCASE`, name)
	e, err := scanExercise(row)
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	row = s.db.QueryRowContext(ctx,
		`SELECT `+cols+` FROM exercises WHERE name LIKE ? COLLATE NOCASE LIMIT 1`,
		"%"+name+"%")
	return scanExercise(row)
}

// AlternativeExercises returns up to limit exercises for a muscle
// group, excluding one by name.
func (s *Store) AlternativeExercises(ctx context.Context, muscleGroup, exclude string, limit int) ([]Exercise, error) {
	all, err := s.Exercises(ctx, ExerciseFilter{MuscleGroup: muscleGroup})
	if err != nil {
		return nil, err
	}
	var out []Exercise
	for _, e := range all {
		if exclude != "" && strings.EqualFold(e.Name, exclude) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// ActiveWorkoutPlan returns a user's active training plan, sql.ErrNoRows
// when there is none.
func (s *Store) ActiveWorkoutPlan(ctx context.Context, userID string) (*WorkoutPlan, error) {
	var p WorkoutPlan
	var objective sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, objective
		FROM workout_plans WHERE user_id = ? AND active = 1
		ORDER BY created_at DESC LIMIT 1
	`, userID).Scan(&p.ID, &p.UserID, &p.Name, &objective)
	if err != nil {
		return nil, err
	}
	p.Objective = objective.String
	return &p, nil
}

// CreateWorkoutPlan deactivates any previous plan and stores a new one.
// Unknown exercise names are skipped and reported back.
func (s *Store) CreateWorkoutPlan(ctx context.Context, userID, name, objective string, entries []WorkoutEntry) (string, []string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE workout_plans SET active = 0 WHERE user_id = ?`, userID); err != nil {
		return "", nil, fmt.Errorf("deactivate old plans: %w", err)
	}

	planID, _ := uuid.NewV7()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO workout_plans (id, user_id, name, objective, active, created_at)
		VALUES (?, ?, ?, ?, 1, ?)
	`, planID.String(), userID, name, objective,
		time.Now().UTC().Format(time.RFC3339)); err != nil {
		return "", nil, fmt.Errorf("insert plan: %w", err)
	}

	var notFound []string
	for _, e := range entries {
		var exerciseID string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM exercises WHERE name = ? COLLATE NOCASE`, e.ExerciseName).Scan(&exerciseID)
		if err == sql.ErrNoRows {
			notFound = append(notFound, e.ExerciseName)
			continue
		}
		if err != nil {
			return "", nil, fmt.Errorf("resolve exercise %s: %w", e.ExerciseName, err)
		}

		sets := e.Sets
		if sets == 0 {
			sets = 3
		}
		reps := e.Reps
		if reps == "" {
			reps = "10-12"
		}
		rest := e.RestSeconds
		if rest == 0 {
			rest = 60
		}
		order := e.Order
		if order == 0 {
			order = 1
		}
		entryID, _ := uuid.NewV7()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO workout_plan_entries
				(id, plan_id, day_of_week, exercise_id, sets, reps, rest_seconds, display_order)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, entryID.String(), planID.String(), e.DayOfWeek, exerciseID, sets, reps, rest, order); err != nil {
			return "", nil, fmt.Errorf("insert plan entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", nil, fmt.Errorf("commit: %w", err)
	}
	return planID.String(), notFound, nil
}

// WorkoutsForDay returns a plan's exercises on one day, in display order.
func (s *Store) WorkoutsForDay(ctx context.Context, planID, day string) ([]PlannedWorkout, error) {
	return s.queryWorkouts(ctx, `
		SELECT e.day_of_week, x.name, x.primary_muscle_group, e.sets, e.reps, e.rest_seconds, e.display_order
		FROM workout_plan_entries e
		JOIN exercises x ON x.id = e.exercise_id
		WHERE e.plan_id = ? AND e.day_of_week = ?
		ORDER BY e.display_order
	`, planID, day)
}

// PlanWorkouts returns every exercise in a plan.
func (s *Store) PlanWorkouts(ctx context.Context, planID string) ([]PlannedWorkout, error) {
	return s.queryWorkouts(ctx, `
		SELECT e.day_of_week, x.name, x.primary_muscle_group, e.sets, e.reps, e.rest_seconds, e.display_order
		FROM workout_plan_entries e
		JOIN exercises x ON x.id = e.exercise_id
		WHERE e.plan_id = ?
		ORDER BY e.day_of_week, e.display_order
	`, planID)
}

func (s *Store) queryWorkouts(ctx context.Context, query string, args ...any) ([]PlannedWorkout, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list workouts: %w", err)
	}
	defer rows.Close()

	var workouts []PlannedWorkout
	for rows.Next() {
		var w PlannedWorkout
		if err := rows.Scan(&w.DayOfWeek, &w.ExerciseName, &w.MuscleGroup,
			&w.Sets, &w.Reps, &w.RestSeconds, &w.Order); err != nil {
			return nil, fmt.Errorf("scan workout: %w", err)
		}
		workouts = append(workouts, w)
	}
	return workouts, rows.Err()
}

// UpdateWorkoutEntry swaps an exercise on a day. When oldExerciseName
// is empty the first entry of the day is replaced. Returns the name of
// the exercise it replaced.
func (s *Store) UpdateWorkoutEntry(ctx context.Context, planID, day, oldExerciseName, newExerciseID string) (string, error) {
	query := `
		SELECT e.id, x.name
		FROM workout_plan_entries e
		JOIN exercises x ON x.id = e.exercise_id
		WHERE e.plan_id = ? AND e.day_of_week = ?`
	args := []any{planID, day}
	if oldExerciseName != "" {
		query += ` AND x.name = ? COLLATE NOCASE`
		args = append(args, oldExerciseName)
	}
	query += ` ORDER BY e.display_order LIMIT 1`

	var entryID, oldName string
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&entryID, &oldName); err != nil {
		return "", err
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE workout_plan_entries SET exercise_id = ? WHERE id = ?`,
		newExerciseID, entryID); err != nil {
		return "", fmt.Errorf("update workout entry: %w", err)
	}
	return oldName, nil
}

// RecordSession stores one performed workout.
func (s *Store) RecordSession(ctx context.Context, userID, date, name string, exercises json.RawMessage, durationMinutes, intensityRating int) (string, error) {
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	id, _ := uuid.NewV7()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workout_sessions
			(id, user_id, workout_date, workout_name, exercises_performed,
			 duration_minutes, intensity_rating, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id.String(), userID, date, name, string(exercises), durationMinutes,
		intensityRating, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("record session: %w", err)
	}
	return id.String(), nil
}

// Sessions returns a user's recorded workouts over the trailing period,
// most recent first.
func (s *Store) Sessions(ctx context.Context, userID string, periodDays int) ([]Session, error) {
	since := time.Now().AddDate(0, 0, -periodDays).Format("2006-01-02")
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workout_date, workout_name, exercises_performed,
		       duration_minutes, intensity_rating
		FROM workout_sessions
		WHERE user_id = ? AND workout_date >= ?
		ORDER BY workout_date DESC
	`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var exercises sql.NullString
		var duration, intensity sql.NullInt64
		if err := rows.Scan(&sess.ID, &sess.WorkoutDate, &sess.WorkoutName,
			&exercises, &duration, &intensity); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if exercises.String != "" {
			sess.Exercises = json.RawMessage(exercises.String)
		}
		sess.DurationMinutes = int(duration.Int64)
		sess.IntensityRating = int(intensity.Int64)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Package users provides the user account store and the per-message
// account context lookup that drives routing. Accounts are created by
// the onboarding tools over WhatsApp and completed later on the web
// platform.
package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// User is one account row.
type User struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Email               string    `json:"email"`
	Phone               string    `json:"phone"`
	OnboardingCompleted bool      `json:"onboarding_completed"`
	CreatedAt           time.Time `json:"created_at"`
}

// Question is one onboarding question, in the shape the onboarding
// agent presents over WhatsApp.
type Question struct {
	ID          string   `json:"id"`
	Step        int      `json:"step"`
	Question    string   `json:"question"`
	Subtitle    string   `json:"subtitle,omitempty"`
	Type        string   `json:"type"`
	FieldName   string   `json:"field_name"`
	Required    bool     `json:"required"`
	Options     []string `json:"options"`
	Emoji       string   `json:"emoji,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
}

// Response is one stored onboarding answer.
type Response struct {
	QuestionID string `json:"question_id"`
	FieldName  string `json:"field_name"`
	Question   string `json:"question"`
	Value      string `json:"response_value"`
}

// Store manages account persistence.
type Store struct {
	db *sql.DB
}

// NewStore creates a user store using the given database path.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// NewStoreWithDB creates a user store using an existing database connection.
func NewStoreWithDB(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			phone TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			onboarding_completed INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_phone ON users(phone);

		CREATE TABLE IF NOT EXISTS onboarding_questions (
			id TEXT PRIMARY KEY,
			step_number INTEGER NOT NULL,
			title TEXT NOT NULL,
			subtitle TEXT,
			question_type TEXT NOT NULL DEFAULT 'text',
			field_name TEXT NOT NULL,
			required INTEGER NOT NULL DEFAULT 1,
			options TEXT,
			emoji TEXT,
			placeholder TEXT,
			active INTEGER NOT NULL DEFAULT 1
		);

		CREATE TABLE IF NOT EXISTS onboarding_responses (
			user_id TEXT NOT NULL,
			question_id TEXT NOT NULL,
			response_value TEXT NOT NULL,
			PRIMARY KEY (user_id, question_id)
		);
	`)
	if err != nil {
		return err
	}
	return s.seedQuestions()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// NormalizePhone strips every non-digit rune so stored and queried
// numbers compare regardless of formatting.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ByPhone looks up an account by phone number. A missing account
// returns sql.ErrNoRows.
func (s *Store) ByPhone(ctx context.Context, phone string) (*User, error) {
	var u User
	var completed int
	var created string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, onboarding_completed, created_at
		FROM users WHERE phone = ?
	`, NormalizePhone(phone)).Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &completed, &created)
	if err != nil {
		return nil, err
	}
	u.OnboardingCompleted = completed != 0
	u.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &u, nil
}

// Create registers a new account with a generated temporary password
// and stores the basic onboarding answers (name, age, email). The
// plaintext password is returned exactly once; only its bcrypt hash is
// stored.
func (s *Store) Create(ctx context.Context, name, age, email, phone string) (*User, string, error) {
	phone = NormalizePhone(phone)
	if _, err := s.ByPhone(ctx, phone); err == nil {
		return nil, "", fmt.Errorf("account for %s already exists", phone)
	}

	tempPassword, err := generatePassword()
	if err != nil {
		return nil, "", fmt.Errorf("generate password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	id, _ := uuid.NewV7()
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, phone, password_hash, onboarding_completed, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
	`, id.String(), name, email, phone, string(hash), now.Format(time.RFC3339))
	if err != nil {
		return nil, "", fmt.Errorf("insert user: %w", err)
	}

	// Answers collected over chat double as the first onboarding
	// responses.
	if err := s.storeBasicResponses(ctx, id.String(), map[string]string{
		"name": name, "age": age, "email": email,
	}); err != nil {
		return nil, "", fmt.Errorf("store basic responses: %w", err)
	}

	return &User{
		ID:        id.String(),
		Name:      name,
		Email:     email,
		Phone:     phone,
		CreatedAt: now,
	}, tempPassword, nil
}

// storeBasicResponses records the chat-collected answers against their
// onboarding questions. The question cursor is fully read and closed
// before any insert runs; SQLite serializes writes on the connection,
// and an insert under an open cursor silently locks out.
func (s *Store) storeBasicResponses(ctx context.Context, userID string, basics map[string]string) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, field_name FROM onboarding_questions
		WHERE active = 1 AND field_name IN ('name', 'age', 'email')
	`)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}

	type question struct{ id, field string }
	var questions []question
	for rows.Next() {
		var q question
		if err := rows.Scan(&q.id, &q.field); err != nil {
			rows.Close()
			return fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("read questions: %w", err)
	}
	rows.Close()

	for _, q := range questions {
		value := basics[q.field]
		if value == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, `
			INSERT OR REPLACE INTO onboarding_responses (user_id, question_id, response_value)
			VALUES (?, ?, ?)
		`, userID, q.id, value); err != nil {
			return fmt.Errorf("insert response %s: %w", q.field, err)
		}
	}
	return nil
}

// VerifyPassword checks a plaintext password against an account's hash.
func (s *Store) VerifyPassword(ctx context.Context, phone, password string) error {
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT password_hash FROM users WHERE phone = ?`,
		NormalizePhone(phone)).Scan(&hash)
	if err != nil {
		return err
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// CompleteOnboarding marks an account's onboarding as finished.
func (s *Store) CompleteOnboarding(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET onboarding_completed = 1 WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("complete onboarding: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Questions returns the active onboarding questions in step order.
func (s *Store) Questions(ctx context.Context) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, step_number, title, subtitle, question_type, field_name,
		       required, options, emoji, placeholder
		FROM onboarding_questions
		WHERE active = 1 ORDER BY step_number
	`)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var questions []Question
	for rows.Next() {
		var q Question
		var subtitle, options, emoji, placeholder sql.NullString
		var required int
		if err := rows.Scan(&q.ID, &q.Step, &q.Question, &subtitle, &q.Type,
			&q.FieldName, &required, &options, &emoji, &placeholder); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.Subtitle = subtitle.String
		q.Required = required != 0
		q.Emoji = emoji.String
		q.Placeholder = placeholder.String
		if options.String != "" {
			json.Unmarshal([]byte(options.String), &q.Options)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// SaveResponse records one onboarding answer, replacing any earlier
// answer to the same question.
func (s *Store) SaveResponse(ctx context.Context, userID, questionID, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO onboarding_responses (user_id, question_id, response_value)
		VALUES (?, ?, ?)
	`, userID, questionID, value)
	if err != nil {
		return fmt.Errorf("save response: %w", err)
	}
	return nil
}

// Responses returns an account's onboarding answers joined with their
// questions, in step order.
func (s *Store) Responses(ctx context.Context, userID string) ([]Response, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.question_id, q.field_name, q.title, r.response_value
		FROM onboarding_responses r
		JOIN onboarding_questions q ON q.id = r.question_id
		WHERE r.user_id = ?
		ORDER BY q.step_number
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	var responses []Response
	for rows.Next() {
		var r Response
		if err := rows.Scan(&r.QuestionID, &r.FieldName, &r.Question, &r.Value); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		responses = append(responses, r)
	}
	return responses, rows.Err()
}

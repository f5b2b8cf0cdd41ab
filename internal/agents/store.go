// Package agents provides persona definitions for the conversational
// agents and a registry that resolves routing keys to them. Definitions
// live in SQLite so operators can edit prompts without a redeploy; a
// built-in set shipped with the binary covers first run and store
// outages.
package agents

import (
	"database/sql"
	"fmt"
	"time"
)

// Definition is one agent persona as stored.
type Definition struct {
	Identifier  string    `json:"identifier"`
	Name        string    `json:"name"`
	Prompt      string    `json:"prompt"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store manages persona persistence.
type Store struct {
	db *sql.DB
}

// NewStore creates an agent store using the given database path.
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

// NewStoreWithDB creates an agent store using an existing database connection.
func NewStoreWithDB(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS agents (
			identifier TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			prompt TEXT NOT NULL,
			description TEXT,
			active INTEGER NOT NULL DEFAULT 1,
			updated_at TEXT NOT NULL
		);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert creates or replaces a persona by identifier.
func (s *Store) Upsert(d Definition) error {
	now := time.Now().UTC()
	active := 0
	if d.Active {
		active = 1
	}
	_, err := s.db.Exec(`
		INSERT INTO agents (identifier, name, prompt, description, active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(identifier) DO UPDATE SET
			name = excluded.name,
			prompt = excluded.prompt,
			description = excluded.description,
			active = excluded.active,
			updated_at = excluded.updated_at
	`, d.Identifier, d.Name, d.Prompt, d.Description, active, now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert agent %s: %w", d.Identifier, err)
	}
	return nil
}

// List returns every stored persona, active or not.
func (s *Store) List() ([]Definition, error) {
	rows, err := s.db.Query(`
		SELECT identifier, name, prompt, description, active, updated_at
		FROM agents ORDER BY identifier
	`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var defs []Definition
	for rows.Next() {
		var d Definition
		var desc sql.NullString
		var active int
		var updated string
		if err := rows.Scan(&d.Identifier, &d.Name, &d.Prompt, &desc, &active, &updated); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		d.Description = desc.String
		d.Active = active != 0
		d.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

// Count reports the number of stored personas.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM agents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count agents: %w", err)
	}
	return n, nil
}

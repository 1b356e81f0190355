// Package db persists sessions and their story history in sqlite.
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/maraval/faeweave/internal/character"
	"github.com/maraval/faeweave/internal/story"
)

// DB wraps database operations.
type DB struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// NewDB opens the database and runs migrations.
func NewDB(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		return nil, err
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		player_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS history_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		scene_id TEXT NOT NULL,
		narrative TEXT NOT NULL,
		choices_json TEXT NOT NULL,
		choice_taken TEXT NOT NULL,
		raw_output TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(session_id, seq),
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS session_ownership (
		session_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_history_entries_session_id ON history_entries(session_id);
	CREATE INDEX IF NOT EXISTS idx_session_ownership_user_id ON session_ownership(user_id);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// SaveOwnership records which user owns a session.
func (db *DB) SaveOwnership(sessionID, userID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		INSERT OR REPLACE INTO session_ownership (session_id, user_id)
		VALUES (?, ?)
	`, sessionID, userID)
	return err
}

// IsOwner checks whether the user owns the session.
func (db *DB) IsOwner(sessionID, userID string) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var owner string
	err := db.conn.QueryRow(`
		SELECT user_id FROM session_ownership WHERE session_id = ?
	`, sessionID).Scan(&owner)
	if err != nil {
		return false, err
	}
	return owner == userID, nil
}

// UserSessions returns all session IDs owned by a user, newest first.
func (db *DB) UserSessions(userID string) ([]string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT session_id FROM session_ownership WHERE user_id = ? ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// SaveSession persists the character snapshot and full history for a session.
// The history rows are rewritten as a unit so the stored ledger can never mix
// two in-memory states.
func (db *DB) SaveSession(sessionID string, player *character.State, history []story.Entry) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	playerJSON, err := json.Marshal(player)
	if err != nil {
		return fmt.Errorf("marshal player: %w", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO sessions (id, player_json, created_at, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET player_json = excluded.player_json, updated_at = CURRENT_TIMESTAMP
	`, sessionID, playerJSON)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM history_entries WHERE session_id = ?`, sessionID); err != nil {
		return err
	}

	for seq, e := range history {
		choicesJSON, err := json.Marshal(e.Choices)
		if err != nil {
			return fmt.Errorf("marshal choices: %w", err)
		}
		_, err = tx.Exec(`
			INSERT INTO history_entries (session_id, seq, scene_id, narrative, choices_json, choice_taken, raw_output)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, sessionID, seq, e.SceneID, e.Narrative, choicesJSON, e.ChoiceTaken, e.RawOutput)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadSession loads the character snapshot and ordered history for a session.
func (db *DB) LoadSession(sessionID string) (*character.State, []story.Entry, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var playerJSON string
	err := db.conn.QueryRow(`
		SELECT player_json FROM sessions WHERE id = ?
	`, sessionID).Scan(&playerJSON)
	if err != nil {
		return nil, nil, err
	}

	player := &character.State{}
	if err := json.Unmarshal([]byte(playerJSON), player); err != nil {
		return nil, nil, fmt.Errorf("unmarshal player: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT scene_id, narrative, choices_json, choice_taken, raw_output
		FROM history_entries
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var history []story.Entry
	for rows.Next() {
		var e story.Entry
		var choicesJSON string
		if err := rows.Scan(&e.SceneID, &e.Narrative, &choicesJSON, &e.ChoiceTaken, &e.RawOutput); err != nil {
			return nil, nil, err
		}
		if err := json.Unmarshal([]byte(choicesJSON), &e.Choices); err != nil {
			return nil, nil, fmt.Errorf("unmarshal choices: %w", err)
		}
		history = append(history, e)
	}

	return player, history, rows.Err()
}

// DeleteSession deletes a session and all its data.
func (db *DB) DeleteSession(sessionID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`DELETE FROM sessions WHERE id = ?`, sessionID)
	return err
}

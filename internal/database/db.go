package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// InMemory is the dataDir value that opens a throwaway in-memory
// database, used by tests.
const InMemory = ":memory:"

// DB represents the database connection with pooling
type DB struct {
	*sql.DB
	pool     *ConnectionPool
	prepared map[string]*sql.Stmt
	mutex    sync.RWMutex
}

// ConnectionPool manages database connection pooling
type ConnectionPool struct {
	db           *sql.DB
	maxOpenConns int
	maxIdleConns int
	maxLifetime  time.Duration
}

// NewConnectionPool creates a new database connection pool
func NewConnectionPool(db *sql.DB, maxOpen, maxIdle int, maxLifetime time.Duration) *ConnectionPool {
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)

	return &ConnectionPool{
		db:           db,
		maxOpenConns: maxOpen,
		maxIdleConns: maxIdle,
		maxLifetime:  maxLifetime,
	}
}

// GetStats returns connection pool statistics
func (cp *ConnectionPool) GetStats() map[string]interface{} {
	stats := cp.db.Stats()

	return map[string]interface{}{
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"max_open_connections": cp.maxOpenConns,
		"max_idle_connections": cp.maxIdleConns,
		"max_lifetime_seconds": cp.maxLifetime.Seconds(),
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
	}
}

// NewDB creates a new database connection with optimized pooling
func NewDB(dataDir string) (*DB, error) {
	var connStr string
	maxOpen, maxIdle := 25, 5

	if dataDir == InMemory {
		// A pooled in-memory database needs a shared cache, otherwise
		// each connection sees its own empty schema.
		connStr = "file::memory:?cache=shared&_pragma=foreign_keys(ON)"
		maxOpen, maxIdle = 1, 1
	} else {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		dbPath := filepath.Join(dataDir, "vitalis_pulse.db")
		connStr = fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", dbPath)
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pool := NewConnectionPool(db, maxOpen, maxIdle, 5*time.Minute)

	database := &DB{
		DB:       db,
		pool:     pool,
		prepared: make(map[string]*sql.Stmt),
	}

	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := database.initPreparedStatements(); err != nil {
		return nil, fmt.Errorf("failed to initialize prepared statements: %w", err)
	}

	slog.Info("Database initialized with connection pooling",
		"max_open_conns", pool.maxOpenConns,
		"max_idle_conns", pool.maxIdleConns,
		"max_lifetime", pool.maxLifetime)

	return database, nil
}

// migrate creates the necessary tables
func (db *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS teams (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT,
			display_name TEXT,
			team_id TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (team_id) REFERENCES teams(id)
		)`,

		`CREATE TABLE IF NOT EXISTS checkins (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			team_id TEXT,
			sleep_hours REAL NOT NULL,
			sleep_quality INTEGER NOT NULL,
			fatigue_level INTEGER NOT NULL,
			stress_level INTEGER NOT NULL,
			focus_level INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id),
			FOREIGN KEY (team_id) REFERENCES teams(id)
		)`,

		// Indexes for the hot read paths: full snapshot fetch, latest
		// check-in per user, per-team aggregation.
		`CREATE INDEX IF NOT EXISTS idx_checkins_user_created ON checkins(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_checkins_team ON checkins(team_id)`,
		`CREATE INDEX IF NOT EXISTS idx_checkins_created_at ON checkins(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_users_team ON users(team_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	return nil
}

// initPreparedStatements initializes frequently used prepared statements
func (db *DB) initPreparedStatements() error {
	statements := map[string]string{
		"insert_team": `INSERT INTO teams (id, name, created_at) VALUES (?, ?, ?)`,

		"insert_user": `INSERT INTO users (id, email, display_name, team_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			display_name = excluded.display_name,
			team_id = excluded.team_id,
			updated_at = excluded.updated_at`,

		"insert_checkin": `INSERT INTO checkins (
			id, user_id, team_id, sleep_hours, sleep_quality, fatigue_level,
			stress_level, focus_level, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,

		"get_all_checkins": `SELECT id, user_id, team_id, sleep_hours, sleep_quality,
			fatigue_level, stress_level, focus_level, created_at
			FROM checkins ORDER BY created_at ASC`,

		"get_latest_checkin_for_user": `SELECT id, user_id, team_id, sleep_hours, sleep_quality,
			fatigue_level, stress_level, focus_level, created_at
			FROM checkins WHERE user_id = ? ORDER BY created_at DESC LIMIT 1`,

		"get_checkins_for_team": `SELECT id, user_id, team_id, sleep_hours, sleep_quality,
			fatigue_level, stress_level, focus_level, created_at
			FROM checkins WHERE team_id = ? ORDER BY created_at ASC`,

		"get_teams": `SELECT id, name, created_at FROM teams ORDER BY name ASC`,

		"get_user": `SELECT id, email, display_name, team_id, created_at, updated_at
			FROM users WHERE id = ?`,

		"delete_old_checkins": `DELETE FROM checkins WHERE created_at < ?`,
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, query := range statements {
		stmt, err := db.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement %s: %w", name, err)
		}
		db.prepared[name] = stmt

		slog.Debug("Prepared statement initialized", "name", name)
	}

	return nil
}

// GetPreparedStatement retrieves a prepared statement
func (db *DB) GetPreparedStatement(name string) (*sql.Stmt, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	stmt, exists := db.prepared[name]
	if !exists {
		return nil, fmt.Errorf("prepared statement %s not found", name)
	}

	return stmt, nil
}

// GetPoolStats returns database connection pool statistics
func (db *DB) GetPoolStats() map[string]interface{} {
	return db.pool.GetStats()
}

// Close closes the database connection and prepared statements
func (db *DB) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, stmt := range db.prepared {
		if err := stmt.Close(); err != nil {
			slog.Warn("Failed to close prepared statement", "name", name, "error", err)
		}
	}

	db.prepared = make(map[string]*sql.Stmt)

	return db.DB.Close()
}

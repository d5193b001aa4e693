package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vitalis-labs/vitalis-pulse/internal/lab"
)

// Repository handles database operations. It is the platform's check-in
// source: the lab reads through it and never writes.
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Repository satisfies the lab's read-only boundary.
var (
	_ lab.CheckInSource = (*Repository)(nil)
	_ lab.TeamDirectory = (*Repository)(nil)
)

// FetchAll returns every check-in, oldest first.
func (r *Repository) FetchAll(ctx context.Context) ([]lab.CheckInRecord, error) {
	stmt, err := r.db.GetPreparedStatement("get_all_checkins")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch check-ins: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// FetchLatestForUser returns the user's most recent check-in, or nil
// when the user has none.
func (r *Repository) FetchLatestForUser(ctx context.Context, userID string) (*lab.CheckInRecord, error) {
	stmt, err := r.db.GetPreparedStatement("get_latest_checkin_for_user")
	if err != nil {
		return nil, err
	}

	var c CheckIn
	err = stmt.QueryRowContext(ctx, userID).Scan(
		&c.ID, &c.UserID, &c.TeamID, &c.SleepHours, &c.SleepQuality,
		&c.FatigueLevel, &c.StressLevel, &c.FocusLevel, &c.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest check-in: %w", err)
	}

	record := toRecord(c)
	return &record, nil
}

// FetchForTeam returns every check-in belonging to one team.
func (r *Repository) FetchForTeam(ctx context.Context, teamID string) ([]lab.CheckInRecord, error) {
	stmt, err := r.db.GetPreparedStatement("get_checkins_for_team")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch team check-ins: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListTeams returns all teams, sorted by name.
func (r *Repository) ListTeams(ctx context.Context) ([]lab.Team, error) {
	stmt, err := r.db.GetPreparedStatement("get_teams")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []lab.Team
	for rows.Next() {
		var t Team
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, lab.Team{ID: t.ID, Name: t.Name})
	}

	return teams, rows.Err()
}

// CreateTeam persists a new team.
func (r *Repository) CreateTeam(ctx context.Context, team *Team) error {
	stmt, err := r.db.GetPreparedStatement("insert_team")
	if err != nil {
		return err
	}

	if _, err := stmt.ExecContext(ctx, team.ID, team.Name, team.CreatedAt); err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}

	return nil
}

// UpsertUser creates or updates a user record.
func (r *Repository) UpsertUser(ctx context.Context, user *User) error {
	stmt, err := r.db.GetPreparedStatement("insert_user")
	if err != nil {
		return err
	}

	_, err = stmt.ExecContext(ctx, user.ID, user.Email, user.DisplayName,
		user.TeamID, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}

// GetUser returns one user, or nil when unknown.
func (r *Repository) GetUser(ctx context.Context, userID string) (*User, error) {
	stmt, err := r.db.GetPreparedStatement("get_user")
	if err != nil {
		return nil, err
	}

	var u User
	err = stmt.QueryRowContext(ctx, userID).Scan(
		&u.ID, &u.Email, &u.DisplayName, &u.TeamID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &u, nil
}

// SaveCheckIn persists one self-report.
func (r *Repository) SaveCheckIn(ctx context.Context, c *CheckIn) error {
	stmt, err := r.db.GetPreparedStatement("insert_checkin")
	if err != nil {
		return err
	}

	_, err = stmt.ExecContext(ctx, c.ID, c.UserID, c.TeamID, c.SleepHours,
		c.SleepQuality, c.FatigueLevel, c.StressLevel, c.FocusLevel, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save check-in: %w", err)
	}

	return nil
}

// DeleteCheckInsBefore removes check-ins older than the cutoff and
// returns how many were deleted.
func (r *Repository) DeleteCheckInsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	stmt, err := r.db.GetPreparedStatement("delete_old_checkins")
	if err != nil {
		return 0, err
	}

	result, err := stmt.ExecContext(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old check-ins: %w", err)
	}

	return result.RowsAffected()
}

func scanRecords(rows *sql.Rows) ([]lab.CheckInRecord, error) {
	var records []lab.CheckInRecord
	for rows.Next() {
		var c CheckIn
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.TeamID, &c.SleepHours, &c.SleepQuality,
			&c.FatigueLevel, &c.StressLevel, &c.FocusLevel, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan check-in: %w", err)
		}
		records = append(records, toRecord(c))
	}

	return records, rows.Err()
}

func toRecord(c CheckIn) lab.CheckInRecord {
	return lab.CheckInRecord{
		UserID:       c.UserID,
		Timestamp:    c.CreatedAt,
		SleepHours:   c.SleepHours,
		SleepQuality: c.SleepQuality,
		FatigueLevel: c.FatigueLevel,
		StressLevel:  c.StressLevel,
		FocusLevel:   c.FocusLevel,
	}
}

package database

import (
	"time"

	"github.com/google/uuid"
)

// Team represents an organizational team
type Team struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// User represents a platform member
type User struct {
	ID          string    `json:"id" db:"id"`
	Email       string    `json:"email,omitempty" db:"email"`
	DisplayName string    `json:"display_name,omitempty" db:"display_name"`
	TeamID      string    `json:"team_id,omitempty" db:"team_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// CheckIn is one biometric self-report
type CheckIn struct {
	ID           string    `json:"id" db:"id"`
	UserID       string    `json:"user_id" db:"user_id"`
	TeamID       string    `json:"team_id,omitempty" db:"team_id"`
	SleepHours   float64   `json:"sleep_hours" db:"sleep_hours"`
	SleepQuality int       `json:"sleep_quality" db:"sleep_quality"`
	FatigueLevel int       `json:"fatigue_level" db:"fatigue_level"`
	StressLevel  int       `json:"stress_level" db:"stress_level"`
	FocusLevel   int       `json:"focus_level" db:"focus_level"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// NewTeam creates a new team with generated ID
func NewTeam(name string) *Team {
	return &Team{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now(),
	}
}

// NewUser creates a new user with generated ID
func NewUser(email, displayName, teamID string) *User {
	now := time.Now()
	return &User{
		ID:          uuid.New().String(),
		Email:       email,
		DisplayName: displayName,
		TeamID:      teamID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewCheckIn creates a new check-in with generated ID
func NewCheckIn(userID, teamID string, sleepHours float64, sleepQuality, fatigue, stress, focus int) *CheckIn {
	return &CheckIn{
		ID:           uuid.New().String(),
		UserID:       userID,
		TeamID:       teamID,
		SleepHours:   sleepHours,
		SleepQuality: sleepQuality,
		FatigueLevel: fatigue,
		StressLevel:  stress,
		FocusLevel:   focus,
		CreatedAt:    time.Now(),
	}
}

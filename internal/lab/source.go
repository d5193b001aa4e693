package lab

import "context"

// CheckInSource provides read-only access to biometric telemetry. The lab
// only ever reads through this boundary; persistence belongs to the
// surrounding platform.
type CheckInSource interface {
	// FetchAll returns every check-in on record, in no particular order.
	FetchAll(ctx context.Context) ([]CheckInRecord, error)

	// FetchLatestForUser returns the most recent check-in for a user, or
	// nil when the user has no telemetry.
	FetchLatestForUser(ctx context.Context, userID string) (*CheckInRecord, error)

	// FetchForTeam returns all check-ins belonging to members of a team.
	FetchForTeam(ctx context.Context, teamID string) ([]CheckInRecord, error)
}

// Team identifies one team for aggregation fan-out.
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TeamDirectory enumerates the teams the aggregation engine fans out over.
type TeamDirectory interface {
	ListTeams(ctx context.Context) ([]Team, error)
}

package privacy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/vitalis-labs/vitalis-pulse/internal/database"
)

// Biometric self-reports are personal health data and are kept no
// longer than one year by default.
const DefaultRetentionDays = 365

// PrivacyService handles check-in retention and member data deletion.
type PrivacyService struct {
	repo          *database.Repository
	retentionDays int
}

// NewService creates a new privacy service
func NewService(repo *database.Repository, retentionDays int) *PrivacyService {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &PrivacyService{repo: repo, retentionDays: retentionDays}
}

// AnonymizeID creates a stable anonymized token for a member identifier,
// used when exporting aggregates outside the platform.
func (ps *PrivacyService) AnonymizeID(id string) string {
	hash := sha256.Sum256([]byte(id))
	return hex.EncodeToString(hash[:])
}

// CleanupExpired deletes check-ins older than the retention window.
func (ps *PrivacyService) CleanupExpired(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -ps.retentionDays)

	deleted, err := ps.repo.DeleteCheckInsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("retention cleanup failed: %w", err)
	}

	slog.Info("Retention cleanup completed",
		"cutoff_date", cutoff.Format(time.RFC3339),
		"checkins_deleted", deleted)

	return deleted, nil
}

// Run performs the cleanup on a fixed schedule until ctx is cancelled.
func (ps *PrivacyService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := ps.CleanupExpired(ctx); err != nil {
				slog.Error("Scheduled retention cleanup failed", "error", err)
			}
		}
	}
}

// GetDataRetentionInfo provides information about data retention policies
func (ps *PrivacyService) GetDataRetentionInfo() map[string]interface{} {
	return map[string]interface{}{
		"checkin_retention_days":      ps.retentionDays,
		"anonymization_method":        "SHA-256",
		"data_deletion_response_time": "24 hours",
	}
}

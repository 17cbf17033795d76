package database

import (
	"context"
	"errors"

	"go-threatguard/internal/config"
	"go-threatguard/internal/models"
)

var ErrNotFound = errors.New("not found")

// Store is the persistent key-value view of a community: its config, trust
// list, lockdown record and threat log. Reads observe every write made before
// them on the same key.
type Store interface {
	// GetConfig returns ErrNotFound when the community was never configured.
	GetConfig(ctx context.Context, communityID string) (*config.CommunityConfig, error)
	UpsertConfig(ctx context.Context, cfg *config.CommunityConfig) error

	ListTrust(ctx context.Context, communityID string) ([]TrustEntry, error)
	AddTrust(ctx context.Context, entry TrustEntry) error
	RemoveTrust(ctx context.Context, communityID, targetID string) (bool, error)

	// GetLockdown returns an inactive empty record when none is stored.
	GetLockdown(ctx context.Context, communityID string) (*models.LockdownRecord, error)
	// SaveLockdown replaces the record and its mapping atomically.
	SaveLockdown(ctx context.Context, rec *models.LockdownRecord) error
	// ListLockdowns returns every record that still needs restoring.
	ListLockdowns(ctx context.Context) ([]*models.LockdownRecord, error)

	AppendThreatLog(ctx context.Context, entry *models.ThreatLogEntry) error
	RecentThreatLogs(ctx context.Context, communityID string, limit int) ([]*models.ThreatLogEntry, error)

	Close() error
}

func emptyLockdown(communityID string) *models.LockdownRecord {
	return &models.LockdownRecord{Community: communityID, Mapping: map[string]models.Overlay{}}
}

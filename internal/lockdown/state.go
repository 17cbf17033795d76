package lockdown

import (
	"context"
	"errors"

	"go-threatguard/internal/models"
)

var ErrStoreUnavailable = errors.New("lockdown store unavailable")

// State of a community's lockdown. Locking and Unlocking only exist while a
// transition is in progress and are never persisted.
type State uint8

const (
	StateUnlocked State = iota
	StateLocking
	StateLocked
	StateUnlocking
)

func (s State) String() string {
	switch s {
	case StateUnlocked:
		return "UNLOCKED"
	case StateLocking:
		return "LOCKING"
	case StateLocked:
		return "LOCKED"
	case StateUnlocking:
		return "UNLOCKING"
	default:
		return "UNKNOWN"
	}
}

// Store is the part of database.Store holding lockdown records.
type Store interface {
	GetLockdown(ctx context.Context, communityID string) (*models.LockdownRecord, error)
	SaveLockdown(ctx context.Context, rec *models.LockdownRecord) error
	ListLockdowns(ctx context.Context) ([]*models.LockdownRecord, error)
}

// Status is a point-in-time view for the status command.
type Status struct {
	State  State
	Record *models.LockdownRecord
}

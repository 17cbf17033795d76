package models

import "time"

// Overlay is a permission overwrite for one principal on one channel.
// Existed is false when the channel had no overwrite for that principal.
type Overlay struct {
	Allow   int64 `json:"allow"`
	Deny    int64 `json:"deny"`
	Existed bool  `json:"existed"`
}

// LockdownRecord is the persisted lockdown state of a community. Mapping holds
// the pre-lockdown everyone overlay of every channel the lockdown touched.
type LockdownRecord struct {
	Community    string             `json:"guild_id"`
	Active       bool               `json:"active"`
	Reason       string             `json:"reason,omitempty"`
	LockedAt     time.Time          `json:"locked_at,omitempty"`
	AutoUnlockAt time.Time          `json:"auto_unlock_at,omitempty"`
	Mapping      map[string]Overlay `json:"mapping,omitempty"`
}

// Residual reports whether the record carries anything that needs restoring,
// including the inconsistent halves (active without mapping and the reverse).
func (r *LockdownRecord) Residual() bool {
	return r != nil && (r.Active || len(r.Mapping) > 0)
}

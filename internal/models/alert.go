package models

import "time"

const (
	ActionTypeThreatScore = "THREAT_SCORE_UPDATE"
	ActionTypeNuke        = "NUKE_LIMIT"
	ActionTypeSpam        = "SPAM"
	ActionTypeRaid        = "RAID"
	ActionTypeNewAccount  = "NEW_ACCOUNT"
	ActionTypeManual      = "MANUAL"
)

// ThreatLogEntry is one immutable line of the audit trail. Every executor
// call writes exactly one.
type ThreatLogEntry struct {
	ID         string    `json:"id"`
	Community  string    `json:"guild_id"`
	Actor      string    `json:"user_id"`
	ActionType string    `json:"action_type"`
	Score      int       `json:"score"`
	Punishment string    `json:"punishment"`
	Applied    string    `json:"applied"`
	Reason     string    `json:"reason,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

package forensics

import (
	"context"

	"github.com/google/uuid"

	"go-threatguard/internal/logging"
	"go-threatguard/internal/models"
	"go-threatguard/internal/notifier"
)

// Appender is the part of database.Store holding the threat log.
type Appender interface {
	AppendThreatLog(ctx context.Context, entry *models.ThreatLogEntry) error
}

// ThreatLog owns the append-only audit trail. Each entry goes to the store,
// to the forensic file when one is configured, and to the notice sink.
type ThreatLog struct {
	store Appender
	file  *ForensicLogger
	sink  notifier.Sink
}

func NewThreatLog(store Appender, file *ForensicLogger, sink notifier.Sink) *ThreatLog {
	if sink == nil {
		sink = notifier.Nop()
	}
	return &ThreatLog{store: store, file: file, sink: sink}
}

// Record appends entry. Failures are logged; the entry is never retried.
// logChannel is where the community wants its notices, if anywhere.
func (t *ThreatLog) Record(ctx context.Context, entry models.ThreatLogEntry, logChannel string) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.ActionType == "" {
		entry.ActionType = models.ActionTypeThreatScore
	}

	if err := t.store.AppendThreatLog(ctx, &entry); err != nil {
		logging.Error("Failed to store threat log %s for guild %s: %v", entry.ID, entry.Community, err)
	}
	if t.file != nil {
		if err := t.file.Log(&entry); err != nil {
			logging.Error("Failed to write forensic log %s: %v", entry.ID, err)
		}
	}

	punishment := models.ParsePunishment(entry.Punishment)
	if punishment == models.PunishmentNone || punishment == models.PunishmentExempt {
		return
	}
	t.sink.Notify(notifier.Notice{
		Community:    entry.Community,
		LogChannelID: logChannel,
		Actor:        entry.Actor,
		Score:        entry.Score,
		Punishment:   punishment,
		Applied:      entry.Applied,
		Reason:       entry.Reason,
		Timestamp:    entry.Timestamp,
	})
}

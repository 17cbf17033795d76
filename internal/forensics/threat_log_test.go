package forensics

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-threatguard/internal/database"
	"go-threatguard/internal/models"
	"go-threatguard/internal/notifier"
)

type capture struct{ got []notifier.Notice }

func (c *capture) Notify(n notifier.Notice) { c.got = append(c.got, n) }

func TestThreatLogRecord(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemStore()
	path := filepath.Join(t.TempDir(), "threats.jsonl")
	file, err := NewForensicLogger(path)
	require.NoError(t, err)
	sink := &capture{}

	log := NewThreatLog(store, file, sink)
	log.Record(ctx, models.ThreatLogEntry{
		Community:  "g1",
		Actor:      "u1",
		Score:      22,
		Punishment: models.PunishmentBan.String(),
		Applied:    "applied",
		Timestamp:  time.Now(),
	}, "c-log")
	log.Record(ctx, models.ThreatLogEntry{
		Community:  "g1",
		Actor:      "u2",
		Score:      1,
		Punishment: models.PunishmentNone.String(),
		Applied:    "none",
		Timestamp:  time.Now(),
	}, "c-log")
	require.NoError(t, file.Close())

	entries, err := store.RecentThreatLogs(ctx, "g1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.NotEmpty(t, entries[0].ID)
	assert.Equal(t, models.ActionTypeThreatScore, entries[0].ActionType)

	require.Len(t, sink.got, 1, "NONE is stored but not announced")
	assert.Equal(t, "c-log", sink.got[0].LogChannelID)
	assert.Equal(t, models.PunishmentBan, sink.got[0].Punishment)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var doc map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &doc))
		lines++
	}
	assert.Equal(t, 2, lines)
}

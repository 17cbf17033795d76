package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-threatguard/internal/config"
	"go-threatguard/internal/models"

	_ "modernc.org/sqlite"
)

// Database is the SQLite backed Store.
type Database struct {
	db *sql.DB
}

// Open creates and initializes the SQLite database
func Open(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(10 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	d := New(db)
	if err := d.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return d, nil
}

// New wraps an already opened connection without touching the schema.
func New(db *sql.DB) *Database {
	return &Database{db: db}
}

// Close closes the database connection
func (d *Database) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// createTables creates all necessary database tables
func (d *Database) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS guild_config (
		guild_id TEXT PRIMARY KEY,
		anti_nuke INTEGER DEFAULT 1,
		anti_raid INTEGER DEFAULT 1,
		log_channel_id TEXT DEFAULT '',
		warn_threshold INTEGER NOT NULL,
		role_strip_threshold INTEGER NOT NULL,
		kick_threshold INTEGER NOT NULL,
		ban_threshold INTEGER NOT NULL,
		lockdown_threshold INTEGER NOT NULL,
		tuning TEXT DEFAULT '{}',
		created_at INTEGER DEFAULT 0,
		updated_at INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS whitelist (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		guild_id TEXT NOT NULL,
		target_id TEXT NOT NULL,
		target_type TEXT NOT NULL,
		added_by TEXT DEFAULT '',
		created_at INTEGER NOT NULL,
		UNIQUE(guild_id, target_id)
	);

	CREATE INDEX IF NOT EXISTS idx_whitelist_guild ON whitelist(guild_id);

	CREATE TABLE IF NOT EXISTS lockdown_state (
		guild_id TEXT PRIMARY KEY,
		active INTEGER NOT NULL DEFAULT 0,
		reason TEXT DEFAULT '',
		locked_at INTEGER DEFAULT 0,
		auto_unlock_at INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS lockdown_channels (
		guild_id TEXT NOT NULL,
		channel_id TEXT NOT NULL,
		allow_bits INTEGER NOT NULL,
		deny_bits INTEGER NOT NULL,
		existed INTEGER NOT NULL,
		PRIMARY KEY (guild_id, channel_id)
	);

	CREATE TABLE IF NOT EXISTS threat_logs (
		id TEXT PRIMARY KEY,
		guild_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		action_type TEXT NOT NULL,
		score INTEGER NOT NULL,
		punishment TEXT NOT NULL,
		applied TEXT NOT NULL,
		reason TEXT DEFAULT '',
		timestamp INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_threat_logs_guild ON threat_logs(guild_id, timestamp);
	`

	_, err := d.db.Exec(schema)
	return err
}

// GetConfig retrieves guild configuration
func (d *Database) GetConfig(ctx context.Context, guildID string) (*config.CommunityConfig, error) {
	cfg := &config.CommunityConfig{CommunityID: guildID}
	var raw string
	err := d.db.QueryRowContext(ctx,
		`SELECT anti_nuke, anti_raid, log_channel_id, warn_threshold, role_strip_threshold,
		        kick_threshold, ban_threshold, lockdown_threshold, tuning
		 FROM guild_config WHERE guild_id = ?`,
		guildID,
	).Scan(&cfg.AntiNuke, &cfg.AntiRaid, &cfg.LogChannelID, &cfg.Ladder.Warn, &cfg.Ladder.RoleStrip,
		&cfg.Ladder.Kick, &cfg.Ladder.Ban, &cfg.Ladder.Lockdown, &raw)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var t tuning
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, fmt.Errorf("corrupt tuning for guild %s: %w", guildID, err)
		}
	}
	t.apply(cfg)

	return cfg, nil
}

// UpsertConfig creates or updates guild configuration
func (d *Database) UpsertConfig(ctx context.Context, cfg *config.CommunityConfig) error {
	raw, err := json.Marshal(tuningOf(cfg))
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	_, err = d.db.ExecContext(ctx,
		`INSERT INTO guild_config (guild_id, anti_nuke, anti_raid, log_channel_id, warn_threshold,
		     role_strip_threshold, kick_threshold, ban_threshold, lockdown_threshold, tuning, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(guild_id) DO UPDATE SET
		     anti_nuke = excluded.anti_nuke,
		     anti_raid = excluded.anti_raid,
		     log_channel_id = excluded.log_channel_id,
		     warn_threshold = excluded.warn_threshold,
		     role_strip_threshold = excluded.role_strip_threshold,
		     kick_threshold = excluded.kick_threshold,
		     ban_threshold = excluded.ban_threshold,
		     lockdown_threshold = excluded.lockdown_threshold,
		     tuning = excluded.tuning,
		     updated_at = excluded.updated_at`,
		cfg.CommunityID, cfg.AntiNuke, cfg.AntiRaid, cfg.LogChannelID, cfg.Ladder.Warn,
		cfg.Ladder.RoleStrip, cfg.Ladder.Kick, cfg.Ladder.Ban, cfg.Ladder.Lockdown, string(raw), now, now,
	)
	return err
}

// ListTrust returns every whitelisted user and role of a guild
func (d *Database) ListTrust(ctx context.Context, guildID string) ([]TrustEntry, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT guild_id, target_id, target_type, added_by, created_at
		 FROM whitelist WHERE guild_id = ? ORDER BY created_at`,
		guildID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []TrustEntry
	for rows.Next() {
		var e TrustEntry
		var created int64
		if err := rows.Scan(&e.CommunityID, &e.TargetID, &e.Kind, &e.AddedBy, &created); err != nil {
			return nil, err
		}
		e.CreatedAt = time.Unix(created, 0)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// AddTrust whitelists a user or role
func (d *Database) AddTrust(ctx context.Context, e TrustEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := d.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO whitelist (guild_id, target_id, target_type, added_by, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.CommunityID, e.TargetID, string(e.Kind), e.AddedBy, e.CreatedAt.Unix(),
	)
	return err
}

// RemoveTrust removes a whitelist entry, reporting whether one existed
func (d *Database) RemoveTrust(ctx context.Context, guildID, targetID string) (bool, error) {
	res, err := d.db.ExecContext(ctx,
		`DELETE FROM whitelist WHERE guild_id = ? AND target_id = ?`,
		guildID, targetID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// GetLockdown loads the lockdown record and its channel snapshots
func (d *Database) GetLockdown(ctx context.Context, guildID string) (*models.LockdownRecord, error) {
	rec := emptyLockdown(guildID)

	var lockedAt, autoUnlockAt int64
	err := d.db.QueryRowContext(ctx,
		`SELECT active, reason, locked_at, auto_unlock_at FROM lockdown_state WHERE guild_id = ?`,
		guildID,
	).Scan(&rec.Active, &rec.Reason, &lockedAt, &autoUnlockAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	rec.LockedAt = unixOrZero(lockedAt)
	rec.AutoUnlockAt = unixOrZero(autoUnlockAt)

	rows, err := d.db.QueryContext(ctx,
		`SELECT channel_id, allow_bits, deny_bits, existed FROM lockdown_channels WHERE guild_id = ?`,
		guildID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var channelID string
		var ov models.Overlay
		if err := rows.Scan(&channelID, &ov.Allow, &ov.Deny, &ov.Existed); err != nil {
			return nil, err
		}
		rec.Mapping[channelID] = ov
	}

	return rec, rows.Err()
}

// SaveLockdown replaces the lockdown record in a single transaction
func (d *Database) SaveLockdown(ctx context.Context, rec *models.LockdownRecord) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO lockdown_state (guild_id, active, reason, locked_at, auto_unlock_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.Community, rec.Active, rec.Reason, zeroOrUnix(rec.LockedAt), zeroOrUnix(rec.AutoUnlockAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save lockdown state: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM lockdown_channels WHERE guild_id = ?`, rec.Community); err != nil {
		return fmt.Errorf("failed to clear lockdown snapshots: %w", err)
	}

	for channelID, ov := range rec.Mapping {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO lockdown_channels (guild_id, channel_id, allow_bits, deny_bits, existed)
			 VALUES (?, ?, ?, ?, ?)`,
			rec.Community, channelID, ov.Allow, ov.Deny, ov.Existed,
		)
		if err != nil {
			return fmt.Errorf("failed to save snapshot for channel %s: %w", channelID, err)
		}
	}

	return tx.Commit()
}

// ListLockdowns returns the records of guilds that are locked or hold snapshots
func (d *Database) ListLockdowns(ctx context.Context) ([]*models.LockdownRecord, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT guild_id FROM lockdown_state WHERE active = 1
		 UNION SELECT DISTINCT guild_id FROM lockdown_channels`,
	)
	if err != nil {
		return nil, err
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	records := make([]*models.LockdownRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := d.GetLockdown(ctx, id)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// AppendThreatLog stores one audit trail entry
func (d *Database) AppendThreatLog(ctx context.Context, e *models.ThreatLogEntry) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO threat_logs (id, guild_id, user_id, action_type, score, punishment, applied, reason, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Community, e.Actor, e.ActionType, e.Score, e.Punishment, e.Applied, e.Reason, e.Timestamp.UnixMilli(),
	)
	return err
}

// RecentThreatLogs retrieves the newest threat log entries for a guild
func (d *Database) RecentThreatLogs(ctx context.Context, guildID string, limit int) ([]*models.ThreatLogEntry, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, guild_id, user_id, action_type, score, punishment, applied, reason, timestamp
		 FROM threat_logs WHERE guild_id = ? ORDER BY timestamp DESC LIMIT ?`,
		guildID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.ThreatLogEntry
	for rows.Next() {
		var e models.ThreatLogEntry
		var ts int64
		if err := rows.Scan(&e.ID, &e.Community, &e.Actor, &e.ActionType, &e.Score, &e.Punishment, &e.Applied, &e.Reason, &ts); err != nil {
			return nil, err
		}
		e.Timestamp = time.UnixMilli(ts)
		logs = append(logs, &e)
	}

	return logs, rows.Err()
}

func unixOrZero(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

func zeroOrUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"

	"go-threatguard/internal/config"
	"go-threatguard/internal/models"
	"go-threatguard/internal/watchdog"
)

const recentThreats = 5

func (h *Handler) handleStatus(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if ok, err := h.authorize(ctx, s, i, accessAdmin, adminDenied); !ok {
		return err
	}

	if err := deferResponse(s, i); err != nil {
		return err
	}

	cfg, err := h.configs.CommunityConfig(ctx, i.GuildID)
	if err != nil {
		return fmt.Errorf("failed to fetch guild configuration: %w", err)
	}
	st, err := h.lockdowns.Status(ctx, i.GuildID)
	if err != nil {
		return fmt.Errorf("failed to read lockdown state: %w", err)
	}
	threats, err := h.configs.RecentThreatLogs(ctx, i.GuildID, recentThreats)
	if err != nil {
		return fmt.Errorf("failed to read threat log: %w", err)
	}

	var health map[string]bool
	if h.watchdog != nil {
		health = h.watchdog.GetStatus()
	}

	embed := statusEmbed(cfg, lockdownSummary(st), threats, health, watchdog.Snapshot(ctx))
	return editEmbed(s, i, embed)
}

func statusEmbed(cfg *config.CommunityConfig, lockState string, threats []*models.ThreatLogEntry,
	health map[string]bool, snap watchdog.SystemSnapshot) *discordgo.MessageEmbed {
	logChannel := "Not configured"
	if cfg.LogChannelID != "" {
		logChannel = fmt.Sprintf("<#%s>", cfg.LogChannelID)
	}

	l := cfg.Ladder
	ladder := fmt.Sprintf("Warn `%d` · Role strip `%d` · Kick `%d` · Ban `%d` · Lockdown `%d`",
		l.Warn, l.RoleStrip, l.Kick, l.Ban, l.Lockdown)

	return &discordgo.MessageEmbed{
		Title:       "System Status Overview",
		Description: "Real-time security configuration and operational status.",
		Color:       0x2B2D31,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Lockdown", Value: lockState},
			{Name: "Protection", Value: fmt.Sprintf("Anti-nuke %s · Anti-raid %s", onOff(cfg.AntiNuke), onOff(cfg.AntiRaid))},
			{Name: "Thresholds", Value: ladder},
			{Name: "Audit Logging", Value: logChannel},
			{Name: "Recent Threats", Value: threatLines(threats)},
			{Name: "Engine", Value: healthLines(health), Inline: true},
			{Name: "Host", Value: hostLines(snap), Inline: true},
		},
	}
}

func onOff(b bool) string {
	if b {
		return "**on**"
	}
	return "off"
}

func threatLines(threats []*models.ThreatLogEntry) string {
	if len(threats) == 0 {
		return "None"
	}
	lines := make([]string, 0, len(threats))
	for _, t := range threats {
		who := "server"
		if t.Actor != "" {
			who = fmt.Sprintf("<@%s>", t.Actor)
		}
		lines = append(lines, fmt.Sprintf("<t:%d:R> %s · score `%d` · %s (%s)",
			t.Timestamp.Unix(), who, t.Score, t.Punishment, t.Applied))
	}
	return strings.Join(lines, "\n")
}

func healthLines(health map[string]bool) string {
	if len(health) == 0 {
		return "n/a"
	}
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		mark := "✅"
		if !health[name] {
			mark = "⚠️"
		}
		lines = append(lines, mark+" "+name)
	}
	return strings.Join(lines, "\n")
}

func hostLines(snap watchdog.SystemSnapshot) string {
	return fmt.Sprintf("CPU `%.1f%%`\nMemory `%.1f%%` (%d MiB)\nGoroutines `%d`\nHeap `%d MiB`",
		snap.CPUPercent, snap.MemoryPercent, snap.MemoryUsed>>20, snap.GoRoutines, snap.HeapAlloc>>20)
}

package notifier

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"go-threatguard/internal/logging"
)

// DiscordSink posts notices as embeds into the community's log channel.
type DiscordSink struct {
	session *discordgo.Session
}

func NewDiscordSink(session *discordgo.Session) *DiscordSink {
	return &DiscordSink{session: session}
}

func (d *DiscordSink) Notify(n Notice) {
	if d.session == nil || n.LogChannelID == "" {
		return
	}

	embed := BuildEmbed(n)
	go func() {
		if _, err := d.session.ChannelMessageSendEmbed(n.LogChannelID, embed); err != nil {
			logging.Debug("Log channel %s unreachable for guild %s: %v", n.LogChannelID, n.Community, err)
		}
	}()
}

// BuildEmbed renders a notice as a security alert embed.
func BuildEmbed(n Notice) *discordgo.MessageEmbed {
	ts := n.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	user := "n/a"
	if n.Actor != "" {
		user = fmt.Sprintf("<@%s> (`%s`)", n.Actor, n.Actor)
	}

	embed := &discordgo.MessageEmbed{
		Title: "🛡 Security Alert",
		Color: n.Punishment.Color(),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: user, Inline: true},
			{Name: "Score", Value: fmt.Sprintf("%d", n.Score), Inline: true},
			{Name: "Action", Value: n.Applied, Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Threat Guard",
		},
		Timestamp: ts.Format(time.RFC3339),
	}
	if n.Reason != "" {
		embed.Description = n.Reason
	}
	return embed
}

package bot

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-threatguard/internal/platform"
)

func TestWrapRESTError(t *testing.T) {
	err := wrap("ban", &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusForbidden},
		Message:  &discordgo.APIErrorMessage{Code: 50013, Message: "Missing Permissions"},
	})

	var se *platform.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "ban", se.Op)
	assert.Equal(t, 403, se.Code)
	assert.Equal(t, "Missing Permissions", se.Message)
	assert.False(t, platform.IsTransient(err))
}

func TestWrapRateLimit(t *testing.T) {
	err := wrap("kick", &discordgo.RateLimitError{RateLimit: &discordgo.RateLimit{
		TooManyRequests: &discordgo.TooManyRequests{Message: "You are being rate limited.", RetryAfter: 2 * time.Second},
		URL:             "https://discord.com/api/v10/guilds/g1/members/u1",
	}})

	var se *platform.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 429, se.Code)
	assert.Equal(t, 2*time.Second, se.RetryAfter)
	assert.True(t, platform.IsTransient(err))
}

func TestWrapOtherErrors(t *testing.T) {
	assert.NoError(t, wrap("ban", nil))

	cause := errors.New("connection reset")
	err := wrap("ban", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, fmt.Sprintf("ban: %v", cause), err.Error())
}

func TestChannelKind(t *testing.T) {
	assert.Equal(t, platform.ChannelText, channelKind(discordgo.ChannelTypeGuildText))
	assert.Equal(t, platform.ChannelCategory, channelKind(discordgo.ChannelTypeGuildCategory))
	assert.Equal(t, platform.ChannelForum, channelKind(discordgo.ChannelTypeGuildForum))
	assert.Equal(t, platform.ChannelOther, channelKind(discordgo.ChannelTypeDM))
	assert.False(t, channelKind(discordgo.ChannelTypeGuildCategory).Restrictable())
}

func TestConvertMember(t *testing.T) {
	joined := time.Unix(1_700_000_000, 0)
	m := convertMember(&discordgo.Member{
		User:     &discordgo.User{ID: "175928847299117063", Bot: true},
		Roles:    []string{"r1"},
		JoinedAt: joined,
	})

	assert.Equal(t, "175928847299117063", m.ID)
	assert.True(t, m.Bot)
	assert.Equal(t, []string{"r1"}, m.Roles)
	assert.Equal(t, 2016, m.CreatedAt.Year())
}

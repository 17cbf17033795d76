package commands

import "github.com/bwmarrin/discordgo"

var adminOnly int64 = discordgo.PermissionAdministrator

func targetOptions(verb string) []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{
			Name:        "user",
			Description: "User to " + verb,
			Type:        discordgo.ApplicationCommandOptionUser,
		},
		{
			Name:        "role",
			Description: "Role to " + verb,
			Type:        discordgo.ApplicationCommandOptionRole,
		},
	}
}

// GetAllCommands returns all application commands
func GetAllCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:                     "lockdown",
			Description:              "Lock every channel for @everyone",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "reason",
					Description: "Why the server is locked",
					Type:        discordgo.ApplicationCommandOptionString,
				},
			},
		},
		{
			Name:                     "unlock",
			Description:              "Restore channel permissions saved by the last lockdown",
			DefaultMemberPermissions: &adminOnly,
		},
		{
			Name:                     "status",
			Description:              "Show protection status, thresholds and recent threats",
			DefaultMemberPermissions: &adminOnly,
		},
		{
			Name:                     "trust",
			Description:              "Exempt a user or role from enforcement",
			DefaultMemberPermissions: &adminOnly,
			Options:                  targetOptions("trust"),
		},
		{
			Name:                     "untrust",
			Description:              "Remove a user or role from the trusted list",
			DefaultMemberPermissions: &adminOnly,
			Options:                  targetOptions("untrust"),
		},
		{
			Name:                     "logs",
			Description:              "Set the security log channel",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:         "channel",
					Description:  "Channel receiving security alerts",
					Type:         discordgo.ApplicationCommandOptionChannel,
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
					Required:     true,
				},
			},
		},
		{
			Name:                     "protection",
			Description:              "Turn anti-nuke or anti-raid protection on or off",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "anti_nuke",
					Description: "Score and punish destructive admin actions",
					Type:        discordgo.ApplicationCommandOptionBoolean,
				},
				{
					Name:        "anti_raid",
					Description: "Spam timeouts, new account kicks and mass join lockdowns",
					Type:        discordgo.ApplicationCommandOptionBoolean,
				},
			},
		},
	}
}

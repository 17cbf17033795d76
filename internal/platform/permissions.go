package platform

import "github.com/bwmarrin/discordgo"

// Permission bits, taken from the gateway library.
const (
	PermKickMembers           int64 = discordgo.PermissionKickMembers
	PermBanMembers            int64 = discordgo.PermissionBanMembers
	PermAdministrator         int64 = discordgo.PermissionAdministrator
	PermManageChannels        int64 = discordgo.PermissionManageChannels
	PermManageGuild           int64 = discordgo.PermissionManageServer
	PermSendMessages          int64 = discordgo.PermissionSendMessages
	PermMentionEveryone       int64 = discordgo.PermissionMentionEveryone
	PermConnect               int64 = discordgo.PermissionVoiceConnect
	PermManageRoles           int64 = discordgo.PermissionManageRoles
	PermManageWebhooks        int64 = discordgo.PermissionManageWebhooks
	PermCreatePublicThreads   int64 = discordgo.PermissionCreatePublicThreads
	PermCreatePrivateThreads  int64 = discordgo.PermissionCreatePrivateThreads
	PermSendMessagesInThreads int64 = discordgo.PermissionSendMessagesInThreads
)

// ElevatedMask covers the capabilities ROLE_STRIP takes away.
const ElevatedMask = PermAdministrator | PermManageGuild | PermManageRoles | PermManageChannels |
	PermBanMembers | PermKickMembers | PermManageWebhooks | PermMentionEveryone

// LockdownMask is denied to the everyone principal during a lockdown.
const LockdownMask = PermSendMessages | PermConnect | PermCreatePublicThreads |
	PermCreatePrivateThreads | PermSendMessagesInThreads

func IsElevated(perms int64) bool {
	return perms&ElevatedMask != 0
}

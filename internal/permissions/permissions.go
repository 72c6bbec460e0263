// Package permissions holds the access-control guard used by privileged
// commands and the PermissionsError family it produces.
package permissions

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"github.com/bwmarrin/discordgo"
)

type Kind int

const (
	// Restricted means the caller may not invoke the action at all.
	Restricted Kind = iota + 1
	// UserMissingPermissions means the caller lacks specific guild rights.
	UserMissingPermissions
	// BotMissingPermissions means the bot itself lacks rights to complete the action.
	BotMissingPermissions
)

func (k Kind) String() string {
	switch k {
	case Restricted:
		return "restricted"
	case UserMissingPermissions:
		return "user_missing_permissions"
	case BotMissingPermissions:
		return "bot_missing_permissions"
	default:
		return "unknown"
	}
}

// Error is a permission failure. Its Error() text is safe to show to users.
type Error struct {
	Kind     Kind
	Expected int64 // permission bits that were required but missing
}

var (
	ErrRestricted             = &Error{Kind: Restricted}
	ErrUserMissingPermissions = &Error{Kind: UserMissingPermissions}
	ErrBotMissingPermissions  = &Error{Kind: BotMissingPermissions}
)

func (e *Error) Error() string {
	switch e.Kind {
	case Restricted:
		return "You are not allowed perform this action."
	case UserMissingPermissions:
		return fmt.Sprintf("You are missing the following permissions: %s.", Describe(e.Expected))
	case BotMissingPermissions:
		return fmt.Sprintf("I am missing the following permissions: %s.", Describe(e.Expected))
	default:
		return "Permission check failed."
	}
}

// Is matches by kind so errors.Is(err, ErrUserMissingPermissions) holds for
// any set of expected bits.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// AsError extracts a permissions error from an error chain.
func AsError(err error) (*Error, bool) {
	var perr *Error
	if errors.As(err, &perr) {
		return perr, true
	}
	return nil, false
}

// ────────────────────────────────────────────────────────────────
// GUARD
// ────────────────────────────────────────────────────────────────

// Guard compares the invoking user against an injected authorized identity
// and checks computed permission bits.
type Guard struct {
	AuthorizedUser string
}

func NewGuard(authorizedUser string) *Guard {
	return &Guard{AuthorizedUser: authorizedUser}
}

// Authorize allows only the configured user. An empty user id is never allowed.
func (g *Guard) Authorize(userID string) error {
	if userID == "" || g.AuthorizedUser == "" || userID != g.AuthorizedUser {
		return ErrRestricted
	}
	return nil
}

// RequireUser checks that the invoking member holds every bit in required.
// Administrators always pass. Interactions outside a guild carry no member
// permissions and fail.
func (g *Guard) RequireUser(i *discordgo.Interaction, required int64) error {
	if required == 0 {
		return nil
	}
	var have int64
	if i != nil && i.Member != nil {
		have = i.Member.Permissions
	}
	if missing := missingBits(have, required); missing != 0 {
		return &Error{Kind: UserMissingPermissions, Expected: missing}
	}
	return nil
}

// RequireBot checks the application's permissions in the interaction channel.
func (g *Guard) RequireBot(i *discordgo.Interaction, required int64) error {
	if required == 0 {
		return nil
	}
	var have int64
	if i != nil {
		have = i.AppPermissions
	}
	if missing := missingBits(have, required); missing != 0 {
		return &Error{Kind: BotMissingPermissions, Expected: missing}
	}
	return nil
}

func missingBits(have, required int64) int64 {
	if have&discordgo.PermissionAdministrator != 0 {
		return 0
	}
	return required &^ have
}

// ────────────────────────────────────────────────────────────────
// PERMISSION NAMES
// ────────────────────────────────────────────────────────────────

var Names = map[int64]string{
	discordgo.PermissionCreateInstantInvite:    "Create Instant Invite",
	discordgo.PermissionKickMembers:            "Kick Members",
	discordgo.PermissionBanMembers:             "Ban Members",
	discordgo.PermissionAdministrator:          "Administrator",
	discordgo.PermissionManageChannels:         "Manage Channels",
	discordgo.PermissionManageGuild:            "Manage Server",
	discordgo.PermissionAddReactions:           "Add Reactions",
	discordgo.PermissionViewAuditLogs:          "View Audit Logs",
	discordgo.PermissionViewChannel:            "View Channel",
	discordgo.PermissionSendMessages:           "Send Messages",
	discordgo.PermissionSendTTSMessages:        "Send TTS Messages",
	discordgo.PermissionManageMessages:         "Manage Messages",
	discordgo.PermissionEmbedLinks:             "Embed Links",
	discordgo.PermissionAttachFiles:            "Attach Files",
	discordgo.PermissionReadMessageHistory:     "Read Message History",
	discordgo.PermissionMentionEveryone:        "Mention Everyone",
	discordgo.PermissionUseExternalEmojis:      "Use External Emojis",
	discordgo.PermissionUseApplicationCommands: "Use Application Commands",
	discordgo.PermissionManageThreads:          "Manage Threads",
	discordgo.PermissionChangeNickname:         "Change Nickname",
	discordgo.PermissionManageNicknames:        "Manage Nicknames",
	discordgo.PermissionManageRoles:            "Manage Roles",
	discordgo.PermissionManageWebhooks:         "Manage Webhooks",
	discordgo.PermissionViewGuildInsights:      "View Guild Insights",
	discordgo.PermissionModerateMembers:        "Moderate Members",
}

// Describe renders a permission bit set as a comma separated list, lowest bit first.
func Describe(set int64) string {
	if set == 0 {
		return "none"
	}
	var names []string
	for u := uint64(set); u != 0; u &= u - 1 {
		bit := int64(1) << bits.TrailingZeros64(u)
		name := Names[bit]
		if name == "" {
			name = fmt.Sprintf("0x%x", bit)
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

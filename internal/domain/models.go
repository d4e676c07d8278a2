// Package domain defines the persistence models for the relay: the durable
// recipient mapping rows, per-bot reachability records, and the participant
// directory. These types are mapped with GORM and shared by the repository
// and service layers.
package domain

import "time"

// RecipientMapping records that RecipientID holds the copy of logical message
// LogicalID identified on the wire by WireID. Column names follow the legacy
// schema so databases written by older deployments stay readable.
//
// Fields:
//   - LogicalID: registry-assigned logical message id (no FK; registry entries
//     expire independently of these rows).
//   - RecipientID / WireID: storage key; a transport wire id is unique per recipient.
//   - CreatedAt: insertion time; the newest row wins when a recipient holds
//     several copies of one logical message.
//   - BotID: owning bot identity; NULL rows match every identity.
type RecipientMapping struct {
	LogicalID   int64     `json:"logical_id"   gorm:"column:msid;not null;index:idx_mm_msid"`
	RecipientID int64     `json:"recipient_id" gorm:"column:uid;primaryKey;autoIncrement:false;index:idx_mm_bot_uid,priority:2"`
	WireID      int64     `json:"wire_id"      gorm:"column:message_id;primaryKey;autoIncrement:false"`
	CreatedAt   time.Time `json:"created_at"   gorm:"column:created_at;not null"`
	BotID       *int64    `json:"bot_id,omitempty" gorm:"column:bot_id;index:idx_mm_bot_uid,priority:1"`
}

// TableName returns the database table name for RecipientMapping.
func (RecipientMapping) TableName() string { return "message_mapping" }

// BotUser is the reachability record of one recipient for one bot identity.
// LastSeen is the last inbound interaction; CanSend turns false after a
// permanent delivery failure and back to true on the next interaction.
type BotUser struct {
	BotID       int64      `json:"bot_id"       gorm:"column:bot_id;primaryKey;autoIncrement:false"`
	RecipientID int64      `json:"recipient_id" gorm:"column:uid;primaryKey;autoIncrement:false"`
	LastSeen    *time.Time `json:"last_seen,omitempty" gorm:"column:last_seen"`
	CanSend     bool       `json:"can_send"     gorm:"column:can_send;not null"`
}

// TableName returns the database table name for BotUser.
func (BotUser) TableName() string { return "bot_users" }

// Participant ranks.
const (
	RankBanned = -10
	RankUser   = 0
	RankMod    = 10
	RankAdmin  = 100
)

// User is a participant of the shared channel.
//
// A user is joined while Left is nil. Blacklisted users carry a negative rank
// and are never part of a broadcast set.
type User struct {
	ID              int64      `json:"id"        gorm:"primaryKey;autoIncrement:false"`
	Username        *string    `json:"username,omitempty" gorm:"type:varchar(64);index"`
	Realname        string     `json:"realname"  gorm:"type:varchar(255);not null;default:''"`
	Rank            int        `json:"rank"      gorm:"not null;default:0"`
	Joined          time.Time  `json:"joined"    gorm:"not null"`
	Left            *time.Time `json:"left,omitempty" gorm:"column:left_at"`
	LastActive      time.Time  `json:"last_active" gorm:"not null"`
	BlacklistReason *string    `json:"blacklist_reason,omitempty"`
	Warnings        int        `json:"warnings"  gorm:"not null;default:0"`
	Karma           int        `json:"karma"     gorm:"not null;default:0"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// IsJoined reports whether the user currently takes part in the channel.
func (u User) IsJoined() bool { return u.Left == nil }

// IsBlacklisted reports whether the user has been banned.
func (u User) IsBlacklisted() bool { return u.Rank < 0 }

// CanModerate reports whether the user holds at least moderator rank.
func (u User) CanModerate() bool { return u.Rank >= RankMod }

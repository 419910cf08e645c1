// Package domain defines the persistence models for users, interactions,
// conversations, and messages. These types are mapped with GORM and form
// the core data layer of the dating backend.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Interaction actions. "match" is a derived terminal state written by the
// interaction engine when both sides consent; it is never a direct request.
const (
	ActionNone   = ""
	ActionLike   = "like"
	ActionReject = "reject"
	ActionMatch  = "match"
)

// Persona kinds. A bot persona's replies come from the external reply
// generator; it is deemed to reciprocate any like unconditionally.
const (
	PersonaHuman = "human"
	PersonaBot   = "bot"
)

// Per-participant conversation statuses.
const (
	ChatActive  = "active"
	ChatBlocked = "blocked"
	ChatDeleted = "deleted"
)

// Message statuses and sender kinds.
const (
	MessageActive  = "active"
	MessageDeleted = "deleted"

	SenderHuman = "human"
	SenderBot   = "bot"
)

// DeletedBody replaces the body of a soft-deleted message.
const DeletedBody = "This message was deleted"

// User represents an account visible to the interaction engine. The three
// counters are owned exclusively by the engine: they mirror the user's
// current edge set and never drop below zero.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Handle: unique public handle used in logs (masked) and listings.
//   - DisplayName: free-form profile name shown on inbox annotations.
//   - Kind: "human" or "bot" (enforced by DB constraint).
//   - Active: inactive users cannot be interacted with.
//   - TotalLikes / TotalMatches / TotalRejects: engine-owned aggregates.
type User struct {
	ID           string         `json:"id"           gorm:"type:char(36);primaryKey"`
	Handle       string         `json:"handle"       gorm:"type:varchar(64);not null;uniqueIndex"`
	DisplayName  string         `json:"display_name" gorm:"type:varchar(255);not null"`
	Kind         string         `json:"kind"         gorm:"type:varchar(16);not null;default:'human';check:kind IN ('human','bot')"`
	Active       bool           `json:"active"       gorm:"not null;default:true"`
	TotalLikes   int            `json:"total_likes"   gorm:"not null;default:0"`
	TotalMatches int            `json:"total_matches" gorm:"not null;default:0"`
	TotalRejects int            `json:"total_rejects" gorm:"not null;default:0"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"            gorm:"index"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// IsBot reports whether the user is an automated persona.
func (u *User) IsBot() bool { return u.Kind == PersonaBot }

// Interaction is one user's current opinion of another: a directional edge
// keyed uniquely on (actor_id, target_id). The row is overwritten on each
// new decision; it is a snapshot, not a history log. Mutual is true only
// when both edges of the pair record "match".
type Interaction struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	ActorID   string    `json:"actor_id"  gorm:"type:char(36);not null;uniqueIndex:ux_actor_target,priority:1;index:idx_target_action"`
	TargetID  string    `json:"target_id" gorm:"type:char(36);not null;uniqueIndex:ux_actor_target,priority:2;index:idx_target_action,priority:1"`
	Action    string    `json:"action"    gorm:"type:varchar(16);not null;check:action IN ('like','reject','match');index:idx_target_action,priority:2"`
	Mutual    bool      `json:"mutual"    gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Interaction.
func (Interaction) TableName() string { return "interactions" }

// Conversation is the single chat thread for an unordered user pair. The
// pair is stored canonically (UserAID < UserBID) under a unique index so
// concurrent provisioning converges on one row. Every per-participant
// field is duplicated per slot so one side's pin/block/delete never
// mutates the other side's view.
type Conversation struct {
	ID      string `json:"id"        gorm:"type:char(36);primaryKey"`
	UserAID string `json:"user_a_id" gorm:"type:char(36);not null;uniqueIndex:ux_conv_pair,priority:1"`
	UserBID string `json:"user_b_id" gorm:"type:char(36);not null;uniqueIndex:ux_conv_pair,priority:2"`

	LastMessageID string     `json:"last_message_id" gorm:"type:char(36)"`
	LastMessageAt *time.Time `json:"last_message_at"`

	UnreadA int `json:"unread_a" gorm:"not null;default:0"`
	UnreadB int `json:"unread_b" gorm:"not null;default:0"`

	PinnedA   bool `json:"pinned_a"   gorm:"not null;default:false"`
	PinnedB   bool `json:"pinned_b"   gorm:"not null;default:false"`
	ArchivedA bool `json:"archived_a" gorm:"not null;default:false"`
	ArchivedB bool `json:"archived_b" gorm:"not null;default:false"`

	StatusA string `json:"status_a" gorm:"type:varchar(16);not null;default:'active';check:status_a IN ('active','blocked','deleted')"`
	StatusB string `json:"status_b" gorm:"type:varchar(16);not null;default:'active';check:status_b IN ('active','blocked','deleted')"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// Message is a single utterance within a conversation. It is immutable
// once created except for the soft-delete transition, which sets Status to
// "deleted" and blanks Body to DeletedBody. Ordering is (CreatedAt, ID)
// ascending; ID is the tie-break and the cursor token.
type Message struct {
	ID             string  `json:"id"              gorm:"type:char(36);primaryKey;index:idx_conv_msgs,priority:3"`
	ConversationID string  `json:"chat_id"         gorm:"type:char(36);not null;index:idx_conv_msgs,priority:1"`
	SenderID       string  `json:"sender_id"       gorm:"type:char(36);not null"`
	ReceiverID     string  `json:"receiver_id"     gorm:"type:char(36);not null"`
	Body           string  `json:"body"            gorm:"type:text;not null"`
	ReplyToID      *string `json:"reply_to,omitempty" gorm:"type:char(36)"`
	SenderKind     string  `json:"sender_kind"     gorm:"type:varchar(16);not null;default:'human';check:sender_kind IN ('human','bot')"`
	Status         string  `json:"status"          gorm:"type:varchar(16);not null;default:'active';check:status IN ('active','deleted')"`
	IsRead         bool    `json:"is_read"         gorm:"not null;default:false"`

	CreatedAt time.Time `json:"created_at" gorm:"index:idx_conv_msgs,priority:2"`
	UpdatedAt time.Time `json:"updated_at"`

	// Conversation is the parent thread. Messages are cascade-deleted if
	// their conversation row is ever removed.
	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// IsDeleted reports whether the message has been soft-deleted.
func (m *Message) IsDeleted() bool { return m.Status == MessageDeleted }

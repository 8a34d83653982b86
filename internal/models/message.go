// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

package models

import "time"

// Message is a directed message between two users, tagged with a derived
// conversation key. Immutable once created except IsRead, which only
// transitions false -> true.
type Message struct {
	ID              string    `json:"id"`
	ConversationKey string    `json:"conversationKey"`
	ProjectID       string    `json:"projectId,omitempty"`
	SenderID        string    `json:"senderId"`
	ReceiverID      string    `json:"receiverId"`
	Text            string    `json:"text"`
	CreatedAt       time.Time `json:"createdAt"`
	IsRead          bool      `json:"isRead"`

	// SystemEntityID links a system-generated message (proposal card) to
	// the entity it renders. Empty for user-authored messages. Retraction
	// of stale cards matches on this field.
	SystemEntityID string `json:"systemEntityId,omitempty"`
}

// IsSynthetic reports whether the message was generated by the system
// rather than authored by a user.
func (m *Message) IsSynthetic() bool {
	return m.SystemEntityID != ""
}

// ConversationSummary is the derived per-user view of one conversation.
// Computed from the message log, never stored.
type ConversationSummary struct {
	ConversationKey string    `json:"conversationKey"`
	PartnerID       string    `json:"partnerId"`
	LastMessageText string    `json:"lastMessageText"`
	LastMessageAt   time.Time `json:"lastMessageAt"`
	UnreadCount     int       `json:"unreadCount"`
}

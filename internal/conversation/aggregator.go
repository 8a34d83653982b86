// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

package conversation

import (
	"context"
	"fmt"
	"sort"

	"github.com/lanserve/lanserve/internal/models"
)

// MessageLister is the slice of the message log the aggregator consumes.
type MessageLister interface {
	ListByUser(ctx context.Context, userID string) ([]*models.Message, error)
}

// Aggregator computes conversation summaries on demand from the message log.
// It holds no state of its own; the log is always the source of truth.
type Aggregator struct {
	messages MessageLister
}

// NewAggregator returns an Aggregator reading from the given message log.
func NewAggregator(messages MessageLister) *Aggregator {
	return &Aggregator{messages: messages}
}

// ConversationsForUser returns one summary per conversation the user
// participates in, sorted by last-message time descending. Unread counts
// cover messages addressed to the user that are still unread. When two
// messages in a conversation share a timestamp, the larger id wins the
// last-message slot so concurrent appends cannot flap the result.
func (a *Aggregator) ConversationsForUser(ctx context.Context, userID string) ([]*models.ConversationSummary, error) {
	msgs, err := a.messages.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages for user %s: %w", userID, err)
	}

	groups := make(map[string]*models.ConversationSummary)
	last := make(map[string]*models.Message)

	for _, m := range msgs {
		s, ok := groups[m.ConversationKey]
		if !ok {
			s = &models.ConversationSummary{
				ConversationKey: m.ConversationKey,
				PartnerID:       PartnerID(m.ConversationKey, userID),
			}
			groups[m.ConversationKey] = s
		}
		if m.ReceiverID == userID && !m.IsRead {
			s.UnreadCount++
		}
		if prev := last[m.ConversationKey]; prev == nil || newerThan(m, prev) {
			last[m.ConversationKey] = m
			s.LastMessageText = m.Text
			s.LastMessageAt = m.CreatedAt
		}
	}

	summaries := make([]*models.ConversationSummary, 0, len(groups))
	for _, s := range groups {
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].LastMessageAt.Equal(summaries[j].LastMessageAt) {
			return summaries[i].LastMessageAt.After(summaries[j].LastMessageAt)
		}
		return summaries[i].ConversationKey < summaries[j].ConversationKey
	})
	return summaries, nil
}

// newerThan reports whether a should replace b as the last message. IDs are
// UUIDv7, so the id comparison is a chronological tie-break.
func newerThan(a, b *models.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/lanserve/lanserve/internal/models"
)

// Key layout for the message log. Index values hold the message id; the
// primary key holds the document. Index keys end in the UUIDv7 id, so prefix
// iteration is chronological.
const (
	messageKeyPrefix     = "message:"
	messageConvKeyPrefix = "message_conv:"
	messageUserKeyPrefix = "message_user:"
	messageProjKeyPrefix = "message_proj:"
)

// MessageStore is the append-only message log.
type MessageStore struct {
	store *Store
}

// NewMessageStore returns a MessageStore backed by the shared database.
func NewMessageStore(s *Store) *MessageStore {
	return &MessageStore{store: s}
}

func messageKey(id string) []byte {
	return []byte(messageKeyPrefix + id)
}

func messageIndexKeys(m *models.Message) [][]byte {
	keys := [][]byte{
		[]byte(messageConvKeyPrefix + m.ConversationKey + ":" + m.ID),
		[]byte(messageUserKeyPrefix + m.SenderID + ":" + m.ID),
	}
	if m.ReceiverID != m.SenderID {
		keys = append(keys, []byte(messageUserKeyPrefix+m.ReceiverID+":"+m.ID))
	}
	if m.ProjectID != "" {
		keys = append(keys, []byte(messageProjKeyPrefix+m.ProjectID+":"+m.ID))
	}
	return keys
}

// Append assigns id and timestamp, marks the message unread, and persists it
// durably. There is no idempotency key: a retried call appends a second
// visible message.
func (s *MessageStore) Append(ctx context.Context, m *models.Message) (*models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.ID = NewID()
	m.CreatedAt = time.Now().UTC()
	m.IsRead = false

	err := s.store.db.Update(func(txn *badger.Txn) error {
		if err := setJSON(txn, messageKey(m.ID), m); err != nil {
			return err
		}
		for _, key := range messageIndexKeys(m) {
			if err := txn.Set(key, []byte(m.ID)); err != nil {
				return fmt.Errorf("set index %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}
	return m, nil
}

// Get returns one message by id.
func (s *MessageStore) Get(ctx context.Context, id string) (*models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var m models.Message
	err := s.store.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, messageKey(id), &m)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// MarkRead flips IsRead on one message. Returns whether a change occurred;
// repeated calls are no-ops.
func (s *MessageStore) MarkRead(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	changed := false
	err := s.store.db.Update(func(txn *badger.Txn) error {
		var m models.Message
		if err := getJSON(txn, messageKey(id), &m); err != nil {
			return err
		}
		if m.IsRead {
			return nil
		}
		m.IsRead = true
		changed = true
		return setJSON(txn, messageKey(id), &m)
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// MarkAllReadInConversation flips IsRead on every unread message in the
// conversation addressed to userID. Each document update is individually
// atomic; a partial failure is recovered by retrying, since read state is
// monotonic. Returns the number of messages changed.
func (s *MessageStore) MarkAllReadInConversation(ctx context.Context, conversationKey, userID string) (int, error) {
	msgs, err := s.ListByConversation(ctx, conversationKey)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, m := range msgs {
		if m.ReceiverID != userID || m.IsRead {
			continue
		}
		changed, err := s.MarkRead(ctx, m.ID)
		if err != nil {
			return count, fmt.Errorf("failed to mark message %s read: %w", m.ID, err)
		}
		if changed {
			count++
		}
	}
	return count, nil
}

// ListByConversation returns every message in a conversation, ascending by
// creation time.
func (s *MessageStore) ListByConversation(ctx context.Context, conversationKey string) ([]*models.Message, error) {
	return s.listByIndex(ctx, messageConvKeyPrefix+conversationKey+":")
}

// ListByUser returns every message the user sent or received, ascending by
// creation time.
func (s *MessageStore) ListByUser(ctx context.Context, userID string) ([]*models.Message, error) {
	return s.listByIndex(ctx, messageUserKeyPrefix+userID+":")
}

// ListByProject returns every message tagged with the project, ascending by
// creation time.
func (s *MessageStore) ListByProject(ctx context.Context, projectID string) ([]*models.Message, error) {
	return s.listByIndex(ctx, messageProjKeyPrefix+projectID+":")
}

func (s *MessageStore) listByIndex(ctx context.Context, prefix string) ([]*models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var msgs []*models.Message
	err := s.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			var id string
			err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			})
			if err != nil {
				return err
			}
			var m models.Message
			if err := getJSON(txn, messageKey(id), &m); err != nil {
				if errors.Is(err, ErrNotFound) {
					continue // index entry for a deleted message
				}
				return err
			}
			msgs = append(msgs, &m)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}

// proposalCardMarker is the legacy embedded marker on proposal-card bodies.
// Cards written by this service carry SystemEntityID instead; the marker
// match remains for documents created before that field existed.
func proposalCardMarker(proposalID string) string {
	return fmt.Sprintf("data-proposal-id='%s'", proposalID)
}

// DeleteByProposal removes every synthetic proposal-card message for the
// given proposal, matching SystemEntityID first and the legacy body marker
// second. Returns the number of messages removed.
func (s *MessageStore) DeleteByProposal(ctx context.Context, proposalID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	marker := proposalCardMarker(proposalID)
	var doomed []*models.Message

	err := s.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(messageKeyPrefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			var m models.Message
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			})
			if err != nil {
				return err
			}
			if m.SystemEntityID == proposalID ||
				(m.SystemEntityID == "" && strings.Contains(m.Text, marker)) {
				doomed = append(doomed, &m)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to scan proposal cards: %w", err)
	}

	count := 0
	for _, m := range doomed {
		err := s.store.db.Update(func(txn *badger.Txn) error {
			if err := txn.Delete(messageKey(m.ID)); err != nil {
				return err
			}
			for _, key := range messageIndexKeys(m) {
				if err := txn.Delete(key); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return count, fmt.Errorf("failed to delete message %s: %w", m.ID, err)
		}
		count++
	}
	return count, nil
}

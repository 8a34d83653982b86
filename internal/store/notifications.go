// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/lanserve/lanserve/internal/models"
)

const (
	notificationKeyPrefix     = "notification:"
	notificationUserKeyPrefix = "notification_user:"
)

// NotificationStore persists per-user notification records. Records are
// immutable facts except the monotonic IsRead flip.
type NotificationStore struct {
	store *Store
}

// NewNotificationStore returns a NotificationStore backed by the shared
// database.
func NewNotificationStore(s *Store) *NotificationStore {
	return &NotificationStore{store: s}
}

func notificationKey(id string) []byte {
	return []byte(notificationKeyPrefix + id)
}

func notificationUserKey(userID, id string) []byte {
	return []byte(notificationUserKeyPrefix + userID + ":" + id)
}

// Insert assigns id and timestamp, marks the notification unread, and
// persists it.
func (s *NotificationStore) Insert(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n.ID = NewID()
	n.CreatedAt = time.Now().UTC()
	n.IsRead = false

	err := s.store.db.Update(func(txn *badger.Txn) error {
		if err := setJSON(txn, notificationKey(n.ID), n); err != nil {
			return err
		}
		return txn.Set(notificationUserKey(n.UserID, n.ID), []byte(n.ID))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert notification: %w", err)
	}
	return n, nil
}

// Get returns one notification by id.
func (s *NotificationStore) Get(ctx context.Context, id string) (*models.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var n models.Notification
	err := s.store.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, notificationKey(id), &n)
	})
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ListByUser returns the user's notifications newest-first.
func (s *NotificationStore) ListByUser(ctx context.Context, userID string) ([]*models.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*models.Notification
	err := s.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(notificationUserKeyPrefix + userID + ":")
		// Reverse iteration seeks to the last key under the prefix.
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			var id string
			err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			})
			if err != nil {
				return err
			}
			var n models.Notification
			if err := getJSON(txn, notificationKey(id), &n); err != nil {
				if errors.Is(err, ErrNotFound) {
					continue
				}
				return err
			}
			out = append(out, &n)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return out, nil
}

// MarkRead flips IsRead on one notification. Returns whether a change
// occurred; repeated calls are no-ops.
func (s *NotificationStore) MarkRead(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	changed := false
	err := s.store.db.Update(func(txn *badger.Txn) error {
		var n models.Notification
		if err := getJSON(txn, notificationKey(id), &n); err != nil {
			return err
		}
		if n.IsRead {
			return nil
		}
		n.IsRead = true
		changed = true
		return setJSON(txn, notificationKey(id), &n)
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// Delete removes a notification (administrative). Returns whether the
// notification existed.
func (s *NotificationStore) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	existed := false
	err := s.store.db.Update(func(txn *badger.Txn) error {
		var n models.Notification
		if err := getJSON(txn, notificationKey(id), &n); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		}
		existed = true
		if err := txn.Delete(notificationKey(id)); err != nil {
			return err
		}
		return txn.Delete(notificationUserKey(n.UserID, id))
	})
	if err != nil {
		return false, err
	}
	return existed, nil
}

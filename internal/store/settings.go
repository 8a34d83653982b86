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

const settingsKeyPrefix = "settings:"

// SettingsStore persists the single per-user settings document, keyed by
// user id.
type SettingsStore struct {
	store *Store
}

// NewSettingsStore returns a SettingsStore backed by the shared database.
func NewSettingsStore(s *Store) *SettingsStore {
	return &SettingsStore{store: s}
}

func settingsKey(userID string) []byte {
	return []byte(settingsKeyPrefix + userID)
}

// Ensure returns the user's settings, creating the default document on first
// access.
func (s *SettingsStore) Ensure(ctx context.Context, userID string) (*models.UserSettings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var settings models.UserSettings
	err := s.store.db.Update(func(txn *badger.Txn) error {
		err := getJSON(txn, settingsKey(userID), &settings)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		def := models.DefaultUserSettings(userID)
		def.ID = NewID()
		now := time.Now().UTC()
		def.CreatedAt = now
		def.UpdatedAt = now
		settings = *def
		return setJSON(txn, settingsKey(userID), def)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure settings for user %s: %w", userID, err)
	}
	return &settings, nil
}

// UpdateNotificationSettings replaces the notification section.
func (s *SettingsStore) UpdateNotificationSettings(ctx context.Context, userID string, ns models.NotificationSettings) (*models.UserSettings, error) {
	return s.update(ctx, userID, func(settings *models.UserSettings) {
		settings.NotificationSettings = ns
	})
}

// UpdatePrivacySettings replaces the privacy section.
func (s *SettingsStore) UpdatePrivacySettings(ctx context.Context, userID string, ps models.PrivacySettings) (*models.UserSettings, error) {
	return s.update(ctx, userID, func(settings *models.UserSettings) {
		settings.PrivacySettings = ps
	})
}

func (s *SettingsStore) update(ctx context.Context, userID string, mutate func(*models.UserSettings)) (*models.UserSettings, error) {
	settings, err := s.Ensure(ctx, userID)
	if err != nil {
		return nil, err
	}
	mutate(settings)
	settings.UpdatedAt = time.Now().UTC()

	err = s.store.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, settingsKey(userID), settings)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update settings for user %s: %w", userID, err)
	}
	return settings, nil
}

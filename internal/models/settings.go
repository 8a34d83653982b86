// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

package models

import "time"

// NotificationSettings gates notification creation per recipient. Gates apply
// to notifications only, never to the underlying domain write.
type NotificationSettings struct {
	EmailNotifications      bool `json:"emailNotifications"`
	MessageNotifications    bool `json:"messageNotifications"`
	NewProjectNotifications bool `json:"newProjectNotifications"`
}

// PrivacySettings controls profile visibility.
type PrivacySettings struct {
	PublicProfile    bool `json:"publicProfile"`
	ShowOnlineStatus bool `json:"showOnlineStatus"`
}

// UserSettings is the single per-user settings document.
type UserSettings struct {
	ID                   string               `json:"id"`
	UserID               string               `json:"userId"`
	NotificationSettings NotificationSettings `json:"notificationSettings"`
	PrivacySettings      PrivacySettings      `json:"privacySettings"`
	CreatedAt            time.Time            `json:"createdAt"`
	UpdatedAt            time.Time            `json:"updatedAt"`
}

// DefaultUserSettings returns the settings document created on first access.
// All notification channels default to enabled.
func DefaultUserSettings(userID string) *UserSettings {
	return &UserSettings{
		UserID: userID,
		NotificationSettings: NotificationSettings{
			EmailNotifications:      true,
			MessageNotifications:    true,
			NewProjectNotifications: true,
		},
		PrivacySettings: PrivacySettings{
			PublicProfile:    true,
			ShowOnlineStatus: true,
		},
	}
}

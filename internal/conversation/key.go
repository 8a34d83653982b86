// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

// Package conversation derives conversation keys and computes per-user
// conversation summaries from the message log.
package conversation

import "strings"

// NullProjectToken stands in for the project segment when a conversation has
// no associated project.
const NullProjectToken = "null"

// DeriveKey returns the stable key grouping all messages between two users,
// optionally scoped to a project: "{projectID|null}:{lo}:{hi}" where lo/hi
// order the user ids by ordinal (byte-wise) comparison. The result is
// identical regardless of argument order, so every producer derives the same
// key for the same pair.
func DeriveKey(projectID, userA, userB string) string {
	pid := projectID
	if pid == "" {
		pid = NullProjectToken
	}
	lo, hi := userA, userB
	if lo > hi {
		lo, hi = hi, lo
	}
	return pid + ":" + lo + ":" + hi
}

// PartnerID returns the participant in key that is not userID. The trailing
// two colon-delimited segments of a key are always the two participant ids in
// sorted order; keys with zero or one project segment are tolerated. Returns
// "" when the key is malformed or userID is not a participant.
func PartnerID(key, userID string) string {
	segments := strings.Split(key, ":")
	if len(segments) < 2 {
		return ""
	}
	a := segments[len(segments)-2]
	b := segments[len(segments)-1]
	switch userID {
	case a:
		return b
	case b:
		return a
	}
	return ""
}

// ProjectSegment returns the project portion of a key, or "" when the key
// carries the null token or is malformed.
func ProjectSegment(key string) string {
	segments := strings.Split(key, ":")
	if len(segments) < 3 {
		return ""
	}
	pid := strings.Join(segments[:len(segments)-2], ":")
	if pid == NullProjectToken {
		return ""
	}
	return pid
}

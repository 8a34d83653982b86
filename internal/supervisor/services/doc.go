// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

// Package services contains suture.Service adapters for components whose
// native lifecycle does not match suture's Serve(ctx) contract.
package services

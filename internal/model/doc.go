// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared across bunri:
// conversation descriptors, the message variants of a chat log, and the
// pure helpers that derive titles and image context from them.
//
// Messages form an append-only chronological log. At most one message, the
// tail, may be a partially filled streaming placeholder; everything before
// the tail is immutable.
package model

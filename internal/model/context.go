// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// ResolveContext computes which prior image classification applies to a new
// text question.
//
// An explicit context (an image analyzed in the same submission) always wins.
// Otherwise the history is scanned newest-first for the first image-analysis
// message that did not fail, and its main class is returned. Returns "" when
// no context applies.
func ResolveContext(explicit string, history []Message) string {
	if explicit != "" {
		return explicit
	}
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].AnalysisOK() {
			return history[i].Result.MainClass
		}
	}
	return ""
}

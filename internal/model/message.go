// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE AND KIND TYPES
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "나"
	case RoleAssistant:
		return "도우미"
	default:
		return string(r)
	}
}

// Kind discriminates the message variants.
type Kind string

const (
	// KindText is a plain text message from either role.
	KindText Kind = "text"
	// KindImagePreview shows the image the user attached.
	KindImagePreview Kind = "image_preview"
	// KindImageAnalysis carries a classification result or failure.
	KindImageAnalysis Kind = "image_analysis"
)

// =============================================================================
// CLASSIFICATION RESULT
// =============================================================================

// Classification is a successful result from the image classifier.
type Classification struct {
	MainClass     string  `json:"main_class"`
	Confidence    float64 `json:"confidence"`
	RecyclingInfo string  `json:"recycling_info,omitempty"`
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation's log.
//
// The Kind field selects the variant:
//   - KindText uses Role and Content.
//   - KindImagePreview uses PreviewPath (a handle to the staged image copy).
//   - KindImageAnalysis uses exactly one of Result or ResultError.
type Message struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// KindText
	Content string `json:"content,omitempty"`

	// KindImagePreview
	PreviewPath string `json:"preview_path,omitempty"`

	// KindImageAnalysis
	Result      *Classification `json:"result,omitempty"`
	ResultError string          `json:"result_error,omitempty"`
}

// NewUserMessage creates a user text message.
func NewUserMessage(content string) Message {
	return Message{
		ID:        generateID(),
		Kind:      KindText,
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewAssistantMessage creates an assistant text message.
func NewAssistantMessage(content string) Message {
	return Message{
		ID:        generateID(),
		Kind:      KindText,
		Role:      RoleAssistant,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewAssistantPlaceholder creates the empty assistant message that receives
// streamed chunks. Only the last message of a log may be in this state.
func NewAssistantPlaceholder() Message {
	return Message{
		ID:        generateID(),
		Kind:      KindText,
		Role:      RoleAssistant,
		Timestamp: time.Now(),
	}
}

// NewImagePreview creates the user-side preview message for an attached image.
func NewImagePreview(previewPath string) Message {
	return Message{
		ID:          generateID(),
		Kind:        KindImagePreview,
		Role:        RoleUser,
		PreviewPath: previewPath,
		Timestamp:   time.Now(),
	}
}

// NewAnalysisResult creates an image-analysis message carrying a result.
func NewAnalysisResult(result Classification) Message {
	return Message{
		ID:        generateID(),
		Kind:      KindImageAnalysis,
		Role:      RoleAssistant,
		Result:    &result,
		Timestamp: time.Now(),
	}
}

// NewAnalysisError creates an image-analysis message carrying a failure.
func NewAnalysisError(errText string) Message {
	return Message{
		ID:          generateID(),
		Kind:        KindImageAnalysis,
		Role:        RoleAssistant,
		ResultError: errText,
		Timestamp:   time.Now(),
	}
}

// AnalysisOK reports whether the message is a successful image analysis.
func (m *Message) AnalysisOK() bool {
	return m.Kind == KindImageAnalysis && m.Result != nil && m.ResultError == ""
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Korean text correctly.
func (m *Message) Preview(maxLen int) string {
	content := m.Content
	switch m.Kind {
	case KindImagePreview:
		content = "(이미지)"
	case KindImageAnalysis:
		if m.Result != nil {
			content = m.Result.MainClass
		} else {
			content = m.ResultError
		}
	}
	content = strings.ReplaceAll(content, "\n", " ")
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	return string(runes[:maxLen-1]) + "…"
}

// IsEmpty returns true if a text message has no content yet.
// For the tail assistant message this means streaming has not delivered
// its first chunk.
func (m *Message) IsEmpty() bool {
	return m.Kind == KindText && m.Content == ""
}

// =============================================================================
// CONVERSATION DESCRIPTOR
// =============================================================================

// Conversation describes one named chat session in the index. The message
// log itself is stored separately under StorageKey; the index is the source
// of truth for which logs exist, each log for its own content.
type Conversation struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"created_at"`
	StorageKey string    `json:"storage_key"`
}

// DefaultTitle is the title of a conversation before the first user message.
const DefaultTitle = "새 대화"

// NewConversation creates a descriptor with a generated ID and a storage key
// derived from it.
func NewConversation() Conversation {
	id := uuid.NewString()
	return Conversation{
		ID:         id,
		Title:      DefaultTitle,
		CreatedAt:  time.Now(),
		StorageKey: "chat_" + id,
	}
}

// generateID creates a unique message ID.
func generateID() string {
	return "msg_" + uuid.NewString()
}

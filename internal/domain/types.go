/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the core data model for the Pixel Studio workbench.
// Everything here is a plain value type that serializes to JSON; the canvas
// engine, the session multiplexer and the persistence layer all share these
// shapes. Items carry no back-references: selection and layer panels look
// items up by id in the one authoritative item list.

import (
	"strings"
	"time"
)

// ItemType discriminates the payload of a CanvasItem.
type ItemType string

const (
	ItemImage ItemType = "image"
	ItemVideo ItemType = "video"
	ItemText  ItemType = "text"
)

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	switch t {
	case ItemImage, ItemVideo, ItemText:
		return true
	}
	return false
}

// CanvasItem is one element on the workbench surface. X/Y are the world-space
// top-left corner; Width/Height are world-space and must stay positive.
// Opacity is clamped to [0,1]; Visible=false soft-hides the item without
// removing it from the scene.
type CanvasItem struct {
	ID      string   `json:"id"`
	Type    ItemType `json:"type"`
	Src     string   `json:"src,omitempty"`  // image/video reference (path or URL)
	Text    string   `json:"text,omitempty"` // text payload
	Visible bool     `json:"visible"`
	Opacity float64  `json:"opacity"`
	X       float64  `json:"x"`
	Y       float64  `json:"y"`
	Width   float64  `json:"width"`
	Height  float64  `json:"height"`
}

// Viewport holds the pan offset and zoom factor mapping world coordinates to
// screen coordinates: screen = world*zoom + pan.
type Viewport struct {
	PanX float64 `json:"panX"`
	PanY float64 `json:"panY"`
	Zoom float64 `json:"zoom"`
}

// ChatRole identifies the author of a transcript message.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// Message status values. Loading marks a pending assistant reply; Cancelled
// marks a reply whose task was aborted by the user.
const (
	StatusOK        = "ok"
	StatusLoading   = "loading"
	StatusCancelled = "cancelled"
	StatusError     = "error"
)

// ChatMessage is one transcript entry of a session.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProductForm carries per-session product metadata that is folded into the
// AI classification prompt.
type ProductForm struct {
	Name          string `json:"name,omitempty"`
	Category      string `json:"category,omitempty"`
	SellingPoints string `json:"sellingPoints,omitempty"`
	Audience      string `json:"audience,omitempty"`
}

// Empty reports whether the form carries no user input.
func (f ProductForm) Empty() bool {
	return strings.TrimSpace(f.Name) == "" && strings.TrimSpace(f.Category) == "" &&
		strings.TrimSpace(f.SellingPoints) == "" && strings.TrimSpace(f.Audience) == ""
}

// CanvasDoc is the serialized form of one session's canvas: the viewport and
// the ordered item list (array position is z-order, last drawn on top).
type CanvasDoc struct {
	Viewport Viewport     `json:"viewport"`
	Items    []CanvasItem `json:"items"`
}

// Clone returns a deep copy with no shared substructure.
func (d CanvasDoc) Clone() CanvasDoc {
	out := CanvasDoc{Viewport: d.Viewport}
	if d.Items != nil {
		out.Items = make([]CanvasItem, len(d.Items))
		copy(out.Items, d.Items)
	}
	return out
}

// Session is one independent chat+canvas context, the unit of multiplexing.
// Exactly one session is bound to the live scene/history at a time; the rest
// keep their last flushed canvas in Canvas.
type Session struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	CreatedAt time.Time     `json:"createdAt"`
	Messages  []ChatMessage `json:"messages"`
	Form      ProductForm   `json:"form"`
	Canvas    CanvasDoc     `json:"canvas"`
}

// Blank reports whether the session was never populated: no user-authored
// message and no canvas items. Blank sessions are deleted on close; all
// others are merely hidden.
func (s *Session) Blank() bool {
	if len(s.Canvas.Items) > 0 {
		return false
	}
	for _, m := range s.Messages {
		if m.Role == RoleUser {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	out := *s
	out.Canvas = s.Canvas.Clone()
	if s.Messages != nil {
		out.Messages = make([]ChatMessage, len(s.Messages))
		copy(out.Messages, s.Messages)
	}
	return &out
}

// Workspace is the top-level persisted document: every session plus which
// ones have open windows and which one is foregrounded.
type Workspace struct {
	Sessions        []*Session `json:"sessions"`
	ActiveSessionID string     `json:"activeSessionId,omitempty"`
	OpenSessionIDs  []string   `json:"openSessionIds,omitempty"`
	Layout          Layout     `json:"layout"`
}

// Layout stores panel geometry preferences. Purely cosmetic; any value is
// tolerated and missing fields fall back to defaults.
type Layout struct {
	LayerPanelWidth float64 `json:"layerPanelWidth,omitempty"`
	ChatPanelWidth  float64 `json:"chatPanelWidth,omitempty"`
	ShowLayerPanel  bool    `json:"showLayerPanel"`
	ShowChatPanel   bool    `json:"showChatPanel"`
}

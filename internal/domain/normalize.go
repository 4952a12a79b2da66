/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// Persisted state comes from a permissively-parsed local store and must never
// prevent the editor from starting. The normalizers below substitute safe
// defaults for missing or malformed fields instead of failing; items that are
// beyond repair (no id, unknown type) are dropped.

import (
	"encoding/json"
	"math"

	"github.com/google/uuid"
)

// Default geometry for items whose persisted size is missing or invalid.
const (
	DefaultItemWidth  = 400.0
	DefaultItemHeight = 300.0
)

// rawItem mirrors CanvasItem with optional fields so absence is
// distinguishable from a zero value during decode.
type rawItem struct {
	ID      string   `json:"id"`
	Type    string   `json:"type"`
	Src     string   `json:"src"`
	Text    string   `json:"text"`
	Visible *bool    `json:"visible"`
	Opacity *float64 `json:"opacity"`
	X       *float64 `json:"x"`
	Y       *float64 `json:"y"`
	Width   *float64 `json:"width"`
	Height  *float64 `json:"height"`
}

// UnmarshalJSON decodes a persisted item through the tagged-variant shape and
// normalizes it. Unknown discriminants decode to an item with an invalid
// Type; callers filter those out via NormalizeCanvas.
func (it *CanvasItem) UnmarshalJSON(data []byte) error {
	var r rawItem
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	it.ID = r.ID
	it.Type = ItemType(r.Type)
	it.Src = r.Src
	it.Text = r.Text
	it.Visible = true
	if r.Visible != nil {
		it.Visible = *r.Visible
	}
	it.Opacity = 1
	if r.Opacity != nil {
		it.Opacity = *r.Opacity
	}
	it.X = finiteOr(r.X, 0)
	it.Y = finiteOr(r.Y, 0)
	it.Width = finiteOr(r.Width, DefaultItemWidth)
	it.Height = finiteOr(r.Height, DefaultItemHeight)
	it.normalize()
	return nil
}

// normalize clamps opacity and repairs non-positive sizes in place.
func (it *CanvasItem) normalize() {
	if math.IsNaN(it.Opacity) || it.Opacity < 0 {
		it.Opacity = 0
	} else if it.Opacity > 1 {
		it.Opacity = 1
	}
	if !(it.Width > 0) {
		it.Width = DefaultItemWidth
	}
	if !(it.Height > 0) {
		it.Height = DefaultItemHeight
	}
	if math.IsNaN(it.X) || math.IsInf(it.X, 0) {
		it.X = 0
	}
	if math.IsNaN(it.Y) || math.IsInf(it.Y, 0) {
		it.Y = 0
	}
}

func finiteOr(p *float64, def float64) float64 {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return def
	}
	return *p
}

// NormalizeViewport repairs a persisted viewport. Zoom must stay within
// (0, +inf); the caller clamps to its configured range on first use.
func NormalizeViewport(v Viewport) Viewport {
	if math.IsNaN(v.PanX) || math.IsInf(v.PanX, 0) {
		v.PanX = 0
	}
	if math.IsNaN(v.PanY) || math.IsInf(v.PanY, 0) {
		v.PanY = 0
	}
	if !(v.Zoom > 0) || math.IsNaN(v.Zoom) || math.IsInf(v.Zoom, 0) {
		v.Zoom = 1
	}
	return v
}

// NormalizeCanvas repairs a persisted canvas document, dropping items that
// cannot be salvaged (missing id or unknown type).
func NormalizeCanvas(d CanvasDoc) CanvasDoc {
	d.Viewport = NormalizeViewport(d.Viewport)
	out := d.Items[:0]
	for _, it := range d.Items {
		if it.ID == "" || !it.Type.Valid() {
			continue
		}
		it.normalize()
		out = append(out, it)
	}
	d.Items = out
	return d
}

// NormalizeSession repairs a persisted session, assigning an id when missing.
func NormalizeSession(s *Session) *Session {
	if s == nil {
		return nil
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Title == "" {
		s.Title = "Untitled"
	}
	s.Canvas = NormalizeCanvas(s.Canvas)
	msgs := s.Messages[:0]
	for _, m := range s.Messages {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			continue
		}
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if m.Status == "" || m.Status == StatusLoading {
			// a reload can never resume an in-flight task
			if m.Status == StatusLoading {
				m.Status = StatusCancelled
			} else {
				m.Status = StatusOK
			}
		}
		msgs = append(msgs, m)
	}
	s.Messages = msgs
	return s
}

// NormalizeWorkspace repairs the whole persisted document: every session is
// normalized, dangling open/active ids are pruned, and the active session is
// re-pointed at an open session when possible.
func NormalizeWorkspace(w Workspace) Workspace {
	sessions := w.Sessions[:0]
	ids := make(map[string]bool, len(w.Sessions))
	for _, s := range w.Sessions {
		s = NormalizeSession(s)
		if s == nil || ids[s.ID] {
			continue
		}
		ids[s.ID] = true
		sessions = append(sessions, s)
	}
	w.Sessions = sessions

	open := w.OpenSessionIDs[:0]
	for _, id := range w.OpenSessionIDs {
		if ids[id] {
			open = append(open, id)
		}
	}
	w.OpenSessionIDs = open

	if !ids[w.ActiveSessionID] {
		w.ActiveSessionID = ""
		if len(w.OpenSessionIDs) > 0 {
			w.ActiveSessionID = w.OpenSessionIDs[0]
		}
	}
	return w
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session multiplexes independent (chat transcript, canvas, product
// form) editing contexts. Exactly one session is bound to the live
// scene/history at a time; switching flushes the outgoing canvas, loads the
// incoming one and resets history and selection; undo deliberately does not
// span a session switch.
package session

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	applog "pixelstudio/internal/log"

	"pixelstudio/internal/canvas"
	"pixelstudio/internal/domain"
)

// Greeting is the assistant message every fresh session starts with. A
// session whose transcript is only the greeting and whose canvas is empty
// counts as blank and is deleted when its window closes.
const Greeting = "Hi! Tell me what kind of product shot you need and I'll set it up on the canvas."

// Saver is the persistence boundary. SaveWorkspace writes synchronously
// (structural canvas commits); SaveWorkspaceSoon coalesces bursts of small
// edits through the debounced writer.
type Saver interface {
	SaveWorkspace(domain.Workspace) error
	SaveWorkspaceSoon(domain.Workspace)
}

// Manager owns the session list and the binding between the active session
// and the live canvas history.
type Manager struct {
	log   *slog.Logger
	ctrl  *canvas.Controller
	saver Saver

	sessions []*domain.Session
	activeID string
	open     []string
	layout   domain.Layout
}

// NewManager wires a manager over the given controller. The history's
// persistence hook is installed here: every structural commit flushes the
// active session's canvas and writes the workspace synchronously.
func NewManager(ctrl *canvas.Controller, saver Saver) *Manager {
	m := &Manager{
		log:    applog.WithComponent("session"),
		ctrl:   ctrl,
		saver:  saver,
		layout: domain.Layout{ShowLayerPanel: true, ShowChatPanel: true},
	}
	ctrl.Hist.OnCommit = func(snap canvas.Snapshot) {
		if s := m.Active(); s != nil {
			s.Canvas = snap.Doc()
		}
		if m.saver != nil {
			if err := m.saver.SaveWorkspace(m.Workspace()); err != nil {
				m.log.Error("workspace save failed", slog.Any("err", err))
			}
		}
	}
	return m
}

// Load installs a persisted workspace. Malformed documents are tolerated:
// everything goes through the normalizers and an empty workspace yields one
// fresh session.
func (m *Manager) Load(w domain.Workspace) {
	w = domain.NormalizeWorkspace(w)
	m.sessions = w.Sessions
	m.open = w.OpenSessionIDs
	m.activeID = w.ActiveSessionID
	m.layout = w.Layout

	if m.activeID == "" {
		if len(m.sessions) > 0 {
			// reopen the most recent session rather than dropping the user
			// on a blank canvas
			last := m.sessions[len(m.sessions)-1]
			m.activeID = last.ID
			m.open = append(m.open, last.ID)
		} else {
			m.Create("")
			return
		}
	}
	if s := m.Active(); s != nil {
		m.ctrl.Hist.ResetTo(canvas.SnapshotFromDoc(s.Canvas))
		m.ctrl.Sel.Clear()
	}
	m.log.Info("workspace loaded", slog.Int("sessions", len(m.sessions)), slog.String("active", m.activeID))
}

// Sessions returns the session list in creation order.
func (m *Manager) Sessions() []*domain.Session { return m.sessions }

// OpenIDs returns the ids of sessions with open windows.
func (m *Manager) OpenIDs() []string { return m.open }

// Layout returns the persisted panel layout preferences.
func (m *Manager) Layout() domain.Layout { return m.layout }

// SetLayout stores panel geometry and schedules a debounced write.
func (m *Manager) SetLayout(l domain.Layout) {
	m.layout = l
	m.SaveSoon()
}

// Active returns the foregrounded session, or nil.
func (m *Manager) Active() *domain.Session {
	return m.byID(m.activeID)
}

// ActiveID returns the id of the foregrounded session ("" when none).
func (m *Manager) ActiveID() string { return m.activeID }

// Find returns the session with the given id, or nil.
func (m *Manager) Find(id string) *domain.Session { return m.byID(id) }

func (m *Manager) byID(id string) *domain.Session {
	for _, s := range m.sessions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Create starts a new session with the initial greeting, opens its window
// and switches to it.
func (m *Manager) Create(title string) *domain.Session {
	if title == "" {
		title = "Untitled"
	}
	s := &domain.Session{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: time.Now(),
		Messages: []domain.ChatMessage{{
			ID:        uuid.NewString(),
			Role:      domain.RoleAssistant,
			Content:   Greeting,
			Status:    domain.StatusOK,
			CreatedAt: time.Now(),
		}},
		Canvas: domain.CanvasDoc{Viewport: domain.Viewport{Zoom: 1}},
	}
	m.sessions = append(m.sessions, s)
	m.open = append(m.open, s.ID)
	m.Switch(s.ID)
	return s
}

// Switch foregrounds the session with the given id: the live present is
// flushed into the outgoing session, the incoming session's canvas becomes
// the new present, and history and selection are reset.
func (m *Manager) Switch(id string) bool {
	next := m.byID(id)
	if next == nil {
		return false
	}
	if cur := m.Active(); cur != nil && cur.ID != id {
		cur.Canvas = m.ctrl.Hist.Present().Doc()
	}
	m.activeID = id
	if !m.isOpen(id) {
		m.open = append(m.open, id)
	}
	m.ctrl.Hist.ResetTo(canvas.SnapshotFromDoc(next.Canvas))
	m.ctrl.Sel.Clear()
	m.SaveSoon()
	return true
}

func (m *Manager) isOpen(id string) bool {
	for _, o := range m.open {
		if o == id {
			return true
		}
	}
	return false
}

// Close hides the session's window. A blank session (no user message, no
// items) is deleted outright; any populated session keeps its state and
// remains in the history list.
func (m *Manager) Close(id string) {
	s := m.byID(id)
	if s == nil {
		return
	}
	if s.ID == m.activeID {
		// flush so Blank sees the real item count
		s.Canvas = m.ctrl.Hist.Present().Doc()
	}
	m.open = removeID(m.open, id)
	if s.Blank() {
		for i, c := range m.sessions {
			if c.ID == id {
				m.sessions = append(m.sessions[:i], m.sessions[i+1:]...)
				break
			}
		}
		m.log.Debug("blank session deleted", slog.String("id", id))
	}
	if m.activeID == id {
		m.activeID = ""
		if len(m.open) > 0 {
			m.Switch(m.open[len(m.open)-1])
			return
		}
		m.ctrl.Hist.ResetTo(canvas.Snapshot{Viewport: domain.Viewport{Zoom: 1}})
		m.ctrl.Sel.Clear()
	}
	m.SaveSoon()
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// TitleFrom sets the session title from its first user message, once.
func (m *Manager) TitleFrom(s *domain.Session, text string) {
	if s == nil || (s.Title != "" && s.Title != "Untitled") {
		return
	}
	const max = 32
	r := []rune(text)
	if len(r) > max {
		r = r[:max]
	}
	if len(r) == 0 {
		return
	}
	s.Title = string(r)
}

// Workspace builds the persistable document from the current state. The
// active session's canvas reflects the live present.
func (m *Manager) Workspace() domain.Workspace {
	if s := m.Active(); s != nil {
		s.Canvas = m.ctrl.Hist.Present().Doc()
	}
	return domain.Workspace{
		Sessions:        m.sessions,
		ActiveSessionID: m.activeID,
		OpenSessionIDs:  append([]string(nil), m.open...),
		Layout:          m.layout,
	}
}

// SaveSoon schedules a debounced workspace write.
func (m *Manager) SaveSoon() {
	if m.saver != nil {
		m.saver.SaveWorkspaceSoon(m.Workspace())
	}
}

// SaveNow flushes the workspace synchronously, e.g. on shutdown.
func (m *Manager) SaveNow() error {
	if m.saver == nil {
		return nil
	}
	return m.saver.SaveWorkspace(m.Workspace())
}

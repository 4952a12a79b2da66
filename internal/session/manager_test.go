/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"testing"
	"time"

	"pixelstudio/internal/canvas"
	"pixelstudio/internal/domain"
)

type memSaver struct {
	syncs int
	soons int
	last  domain.Workspace
}

func (m *memSaver) SaveWorkspace(w domain.Workspace) error {
	m.syncs++
	m.last = w
	return nil
}

func (m *memSaver) SaveWorkspaceSoon(w domain.Workspace) {
	m.soons++
	m.last = w
}

func newTestManager() (*Manager, *canvas.Controller, *memSaver) {
	h := canvas.NewHistory()
	ctrl := canvas.NewController(h, canvas.DefaultParams())
	sv := &memSaver{}
	m := NewManager(ctrl, sv)
	return m, ctrl, sv
}

func TestSwitchPreservesPerSessionCanvas(t *testing.T) {
	m, ctrl, _ := newTestManager()
	a := m.Create("A")
	idX := ctrl.AddImage("x.png", 400, 300)
	b := m.Create("B")

	if n := len(ctrl.Hist.SceneRef().Items); n != 0 {
		t.Fatalf("B should start empty, has %d items", n)
	}
	ctrl.AddImage("y.png", 400, 300)

	if !m.Switch(a.ID) {
		t.Fatalf("switch back to A failed")
	}
	items := ctrl.Hist.SceneRef().Items
	if len(items) != 1 || items[0].ID != idX {
		t.Fatalf("A's item lost or changed: %+v", items)
	}
	if len(m.byID(b.ID).Canvas.Items) != 1 {
		t.Fatalf("B's canvas affected by switching")
	}
}

func TestSwitchResetsHistoryAndSelection(t *testing.T) {
	m, ctrl, _ := newTestManager()
	a := m.Create("A")
	ctrl.AddImage("x.png", 400, 300)
	ctrl.Sel.Replace(ctrl.Hist.SceneRef().Items[0].ID)
	m.Create("B")

	if ctrl.Hist.CanUndo() {
		t.Fatalf("history spans session switch")
	}
	if len(ctrl.Sel) != 0 {
		t.Fatalf("selection survived session switch")
	}
	m.Switch(a.ID)
	if ctrl.Hist.CanUndo() {
		t.Fatalf("history restored across switch")
	}
}

func TestCloseBlankDeletes(t *testing.T) {
	m, _, _ := newTestManager()
	m.Create("A")
	blank := m.Create("")
	before := len(m.Sessions())
	m.Close(blank.ID)
	if len(m.Sessions()) != before-1 {
		t.Fatalf("blank session not deleted")
	}
}

func TestClosePopulatedHides(t *testing.T) {
	m, ctrl, _ := newTestManager()
	m.Create("other")
	s := m.Create("keep")
	ctrl.AddImage("x.png", 400, 300)
	m.Close(s.ID)

	found := false
	for _, ss := range m.Sessions() {
		if ss.ID == s.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("populated session was deleted on close")
	}
	for _, id := range m.OpenIDs() {
		if id == s.ID {
			t.Fatalf("closed session still open")
		}
	}
}

func TestBlankWithOnlyGreeting(t *testing.T) {
	m, _, _ := newTestManager()
	s := m.Create("")
	if !s.Blank() {
		t.Fatalf("fresh session with greeting should be blank")
	}
	s.Messages = append(s.Messages, domain.ChatMessage{
		ID: "m1", Role: domain.RoleUser, Content: "hello", Status: domain.StatusOK, CreatedAt: time.Now(),
	})
	if s.Blank() {
		t.Fatalf("session with a user message is not blank")
	}
}

func TestCommitFlushesSynchronously(t *testing.T) {
	m, ctrl, sv := newTestManager()
	m.Create("A")
	before := sv.syncs
	ctrl.AddImage("x.png", 400, 300)
	if sv.syncs <= before {
		t.Fatalf("canvas commit did not persist synchronously")
	}
	if s := sv.last.Sessions[len(sv.last.Sessions)-1]; len(s.Canvas.Items) != 1 {
		t.Fatalf("persisted workspace missing committed item")
	}
}

func TestLoadEmptyWorkspaceCreatesSession(t *testing.T) {
	m, _, _ := newTestManager()
	m.Load(domain.Workspace{})
	if len(m.Sessions()) != 1 || m.Active() == nil {
		t.Fatalf("empty workspace should yield one active session")
	}
}

func TestLoadRestoresActiveCanvas(t *testing.T) {
	m, ctrl, _ := newTestManager()
	w := domain.Workspace{
		Sessions: []*domain.Session{{
			ID:    "s1",
			Title: "restored",
			Canvas: domain.CanvasDoc{
				Viewport: domain.Viewport{Zoom: 2},
				Items:    []domain.CanvasItem{{ID: "i1", Type: domain.ItemImage, Visible: true, Opacity: 1, Width: 10, Height: 10}},
			},
		}},
		ActiveSessionID: "s1",
		OpenSessionIDs:  []string{"s1"},
	}
	m.Load(w)
	if ctrl.Hist.Viewport().Zoom != 2 {
		t.Fatalf("viewport not restored")
	}
	if len(ctrl.Hist.SceneRef().Items) != 1 {
		t.Fatalf("items not restored")
	}
}

func TestTitleFromFirstMessage(t *testing.T) {
	m, _, _ := newTestManager()
	s := m.Create("")
	m.TitleFrom(s, "studio shot of a ceramic mug on linen, morning light")
	if s.Title == "Untitled" || len([]rune(s.Title)) > 32 {
		t.Fatalf("title not derived: %q", s.Title)
	}
	first := s.Title
	m.TitleFrom(s, "different text")
	if s.Title != first {
		t.Fatalf("title overwritten")
	}
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"testing"

	"pixelstudio/internal/domain"
)

func sceneOf(ids ...string) Scene {
	var s Scene
	for _, id := range ids {
		s.Add(domain.CanvasItem{ID: id, Type: domain.ItemImage, Visible: true, Opacity: 1, Width: 100, Height: 100})
	}
	return s
}

func order(s Scene) string {
	out := ""
	for _, it := range s.Items {
		out += it.ID
	}
	return out
}

func TestMoveLayerPreservesRelativeOrder(t *testing.T) {
	cases := []struct {
		id   string
		to   int
		want string
	}{
		{"a", 3, "bcda"},
		{"d", 0, "dabc"},
		{"b", 2, "acbd"},
		{"c", 2, "abcd"},
		{"a", -5, "abcd"},
		{"d", 99, "abcd"},
	}
	for _, tc := range cases {
		s := sceneOf("a", "b", "c", "d")
		if !s.MoveLayer(tc.id, tc.to) {
			t.Fatalf("MoveLayer(%s,%d) failed", tc.id, tc.to)
		}
		if got := order(s); got != tc.want {
			t.Fatalf("MoveLayer(%s,%d): got %q want %q", tc.id, tc.to, got, tc.want)
		}
	}
}

func TestOpacityClamped(t *testing.T) {
	s := sceneOf("a")
	s.SetOpacity("a", 3.5)
	if s.Items[0].Opacity != 1 {
		t.Fatalf("opacity not clamped high: %v", s.Items[0].Opacity)
	}
	s.SetOpacity("a", -2)
	if s.Items[0].Opacity != 0 {
		t.Fatalf("opacity not clamped low: %v", s.Items[0].Opacity)
	}
}

func TestVisibilityIsSoftHide(t *testing.T) {
	s := sceneOf("a", "b")
	s.SetVisible("a", false)
	if len(s.Items) != 2 {
		t.Fatalf("hide removed item from scene")
	}
	if s.Items[0].Visible {
		t.Fatalf("item still visible")
	}
}

func TestHitTestTopmostAndSkipsHidden(t *testing.T) {
	var s Scene
	s.Add(domain.CanvasItem{ID: "bottom", Type: domain.ItemImage, Visible: true, X: 0, Y: 0, Width: 100, Height: 100})
	s.Add(domain.CanvasItem{ID: "top", Type: domain.ItemImage, Visible: true, X: 50, Y: 50, Width: 100, Height: 100})
	if got := s.HitTest(75, 75); got != "top" {
		t.Fatalf("hit test: got %q want top", got)
	}
	s.SetVisible("top", false)
	if got := s.HitTest(75, 75); got != "bottom" {
		t.Fatalf("hidden item hit: got %q want bottom", got)
	}
	if got := s.HitTest(-10, -10); got != "" {
		t.Fatalf("miss returned %q", got)
	}
}

func TestSelectionSubsetInvariant(t *testing.T) {
	s := sceneOf("a", "b", "c")
	sel := NewSelection()
	sel.Toggle("a")
	sel.Toggle("b")
	s.Remove("a")
	sel.Prune(s)
	if sel.Has("a") {
		t.Fatalf("deleted id still selected")
	}
	for id := range sel {
		if s.IndexOf(id) < 0 {
			t.Fatalf("selection id %q not in scene", id)
		}
	}
}

func TestSelectionToggleReplace(t *testing.T) {
	sel := NewSelection()
	sel.Replace("a")
	sel.Toggle("b")
	if !sel.Has("a") || !sel.Has("b") {
		t.Fatalf("toggle should add: %v", sel)
	}
	sel.Toggle("b")
	if sel.Has("b") {
		t.Fatalf("toggle should remove")
	}
	sel.Replace("c")
	if sel.Has("a") || !sel.Has("c") || len(sel) != 1 {
		t.Fatalf("replace should leave single member: %v", sel)
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := sceneOf("a")
	c := s.Clone()
	c.Items[0].X = 999
	if s.Items[0].X == 999 {
		t.Fatalf("clone shares backing array")
	}
}

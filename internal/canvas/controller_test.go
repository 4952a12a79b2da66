/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"math"
	"testing"

	"pixelstudio/internal/domain"
)

func newTestController() *Controller {
	h := NewHistory()
	c := NewController(h, DefaultParams())
	return c
}

// seed puts an item at a known spot without going through placement.
func seed(c *Controller, id string, x, y, w, hgt float64) {
	c.Hist.Commit(func(s *Snapshot) {
		s.Scene.Add(domain.CanvasItem{ID: id, Type: domain.ItemImage, Visible: true, Opacity: 1, X: x, Y: y, Width: w, Height: hgt})
	})
}

func TestDragPushesHistoryOnce(t *testing.T) {
	c := newTestController()
	seed(c, "a", 0, 0, 100, 100)

	c.PointerDown(50, 50, false)
	if c.State() != StateDragging {
		t.Fatalf("expected dragging, state=%v", c.State())
	}
	for i := 0; i < 30; i++ {
		c.PointerMove(50+float64(i), 50)
	}
	c.PointerUp()

	// seed commit + exactly one drag entry
	if !c.Undo() {
		t.Fatalf("undo drag failed")
	}
	it, _ := c.Hist.SceneRef().Get("a")
	if it.X != 0 || it.Y != 0 {
		t.Fatalf("single undo should revert whole drag, item at (%v,%v)", it.X, it.Y)
	}
	if !c.Undo() {
		t.Fatalf("undo seed failed")
	}
	if c.Undo() {
		t.Fatalf("drag flooded the undo stack")
	}
}

func TestDragDeltaUsesStartZoom(t *testing.T) {
	c := newTestController()
	seed(c, "a", 0, 0, 100, 100)
	c.Hist.Amend(func(s *Snapshot) { s.Viewport.Zoom = 2 })

	c.PointerDown(100, 100, false)
	c.PointerMove(140, 100)
	// a zoom change mid-drag must not corrupt the world-space delta
	c.Wheel(1, 0, 0)
	c.PointerMove(180, 100)
	c.PointerUp()

	it, _ := c.Hist.SceneRef().Get("a")
	if math.Abs(it.X-40) > 1e-9 { // 80 screen px / zoom 2 at drag start
		t.Fatalf("drag delta corrupted by mid-drag zoom: x=%v want 40", it.X)
	}
}

func TestClickSelectionSemantics(t *testing.T) {
	c := newTestController()
	seed(c, "a", 0, 0, 100, 100)
	seed(c, "b", 200, 0, 100, 100)

	// plain click on unselected item replaces the selection
	c.PointerDown(50, 50, false)
	c.PointerUp()
	if !c.Sel.Has("a") || len(c.Sel) != 1 {
		t.Fatalf("plain click: %v", c.Sel)
	}

	// shift+click adds
	c.PointerDown(250, 50, true)
	c.PointerUp()
	if !c.Sel.Has("a") || !c.Sel.Has("b") {
		t.Fatalf("shift click should add: %v", c.Sel)
	}

	// plain click on an already-selected item preserves the group
	c.PointerDown(50, 50, false)
	c.PointerUp()
	if len(c.Sel) != 2 {
		t.Fatalf("group collapsed on member click: %v", c.Sel)
	}

	// shift+click removes
	c.PointerDown(250, 50, true)
	c.PointerUp()
	if c.Sel.Has("b") {
		t.Fatalf("shift click should toggle off: %v", c.Sel)
	}
}

func TestGroupDragMovesAllSelected(t *testing.T) {
	c := newTestController()
	seed(c, "a", 0, 0, 100, 100)
	seed(c, "b", 200, 0, 100, 100)
	c.PointerDown(50, 50, false)
	c.PointerUp()
	c.PointerDown(250, 50, true)
	c.PointerUp()

	c.PointerDown(50, 50, false)
	c.PointerMove(60, 70)
	c.PointerUp()

	a, _ := c.Hist.SceneRef().Get("a")
	b, _ := c.Hist.SceneRef().Get("b")
	if a.X != 10 || a.Y != 20 || b.X != 210 || b.Y != 20 {
		t.Fatalf("group drag: a=(%v,%v) b=(%v,%v)", a.X, a.Y, b.X, b.Y)
	}
}

func TestPanToolPansBackground(t *testing.T) {
	c := newTestController()
	c.SetTool(ToolPan)
	c.PointerDown(10, 10, false)
	if c.State() != StatePanning {
		t.Fatalf("expected panning, got %v", c.State())
	}
	c.PointerMove(40, 25)
	c.PointerUp()
	vp := c.Hist.Viewport()
	if vp.PanX != 30 || vp.PanY != 15 {
		t.Fatalf("pan offset: (%v,%v)", vp.PanX, vp.PanY)
	}
	if c.Hist.CanUndo() {
		t.Fatalf("pan must not create a history entry")
	}
}

func TestBackgroundClickClearsSelection(t *testing.T) {
	c := newTestController()
	seed(c, "a", 0, 0, 100, 100)
	c.PointerDown(50, 50, false)
	c.PointerUp()
	c.PointerDown(5000, 5000, false)
	c.PointerUp()
	if len(c.Sel) != 0 {
		t.Fatalf("background click left selection: %v", c.Sel)
	}
}

func TestHoldPanReentrancyAndRestore(t *testing.T) {
	c := newTestController()
	c.SetTool(ToolSelect)
	if !c.HoldPanStart(true, false) {
		t.Fatalf("hold pan refused")
	}
	// key auto-repeat must not re-trigger
	if c.HoldPanStart(true, false) {
		t.Fatalf("re-entrancy guard failed")
	}
	if c.Tool() != ToolPan {
		t.Fatalf("tool not overridden")
	}
	c.HoldPanEnd()
	if c.Tool() != ToolSelect {
		t.Fatalf("prior tool not restored")
	}
}

func TestHoldPanRespectsFocusAndHover(t *testing.T) {
	c := newTestController()
	if c.HoldPanStart(false, false) {
		t.Fatalf("activated while canvas not hovered")
	}
	if c.HoldPanStart(true, true) {
		t.Fatalf("activated while text input focused")
	}
}

func TestLayerReorderSingleUndoStep(t *testing.T) {
	c := newTestController()
	seed(c, "a", 0, 0, 10, 10)
	seed(c, "b", 20, 0, 10, 10)
	seed(c, "c", 40, 0, 10, 10)

	c.BeginLayerDrag("a")
	c.LayerDragTo(1)
	c.LayerDragTo(2)
	c.EndLayerDrag()
	if got := order(*c.Hist.SceneRef()); got != "bca" {
		t.Fatalf("reorder result: %q", got)
	}
	c.Undo()
	if got := order(*c.Hist.SceneRef()); got != "abc" {
		t.Fatalf("one undo should revert whole reorder: %q", got)
	}
}

func TestDeleteSelectedPrunesSelection(t *testing.T) {
	c := newTestController()
	seed(c, "a", 0, 0, 100, 100)
	c.PointerDown(50, 50, false)
	c.PointerUp()
	c.DeleteSelected()
	if len(c.Hist.SceneRef().Items) != 0 {
		t.Fatalf("item not deleted")
	}
	if len(c.Sel) != 0 {
		t.Fatalf("selection not pruned after delete")
	}
	c.Undo()
	if len(c.Hist.SceneRef().Items) != 1 {
		t.Fatalf("delete not undoable")
	}
}

func TestAddImageUsesPlacement(t *testing.T) {
	c := newTestController()
	id1 := c.AddImage("one.png", 400, 300)
	id2 := c.AddImage("two.png", 400, 300)
	a, _ := c.Hist.SceneRef().Get(id1)
	b, _ := c.Hist.SceneRef().Get(id2)
	if a.X == b.X && a.Y == b.Y {
		t.Fatalf("imports overlap at (%v,%v)", a.X, a.Y)
	}
	if a.X != 0 || a.Y != 0 {
		t.Fatalf("first import not at origin: (%v,%v)", a.X, a.Y)
	}
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"github.com/google/uuid"

	"pixelstudio/internal/domain"
)

// Tool is the active direct-manipulation tool.
type Tool int

const (
	ToolSelect Tool = iota
	ToolPan
)

// State is the pointer state machine's current state.
type State int

const (
	StateIdle State = iota
	StatePanning
	StateDragging
	StateReordering
)

// Controller is the pointer-driven state machine for panning, item dragging
// (single and multi) and layer-reorder dragging. All scene mutation runs on
// one thread: the input event handlers call in directly and asynchronous
// work marshals its commits onto the same event loop, so the controller
// itself holds no locks.
type Controller struct {
	Hist *History
	Sel  Selection
	P    Params

	tool  Tool
	state State

	// gesture capture
	startSX, startSY float64
	startPan         domain.Viewport
	startZoom        float64 // zoom at drag start; a mid-drag zoom change must not corrupt the delta
	dragIDs          []string
	dragStart        map[string][2]float64
	reorderID        string

	// transient hold-to-pan
	holdActive bool
	prevTool   Tool
}

// NewController wires a controller over the given history.
func NewController(h *History, p Params) *Controller {
	return &Controller{Hist: h, Sel: NewSelection(), P: p, tool: ToolSelect}
}

// Tool returns the active tool.
func (c *Controller) Tool() Tool { return c.tool }

// SetTool switches the active tool. Ignored mid-gesture.
func (c *Controller) SetTool(t Tool) {
	if c.state == StateIdle {
		c.tool = t
	}
}

// State returns the current state machine state.
func (c *Controller) State() State { return c.state }

// PointerDown feeds a press at screen coordinates (sx, sy). Press on an item
// enters Dragging; press on empty background pans when the pan tool is
// active and clears the selection otherwise.
func (c *Controller) PointerDown(sx, sy float64, shift bool) {
	if c.state != StateIdle {
		return
	}
	vp := c.Hist.Viewport()
	wx, wy := ScreenToWorld(vp, sx, sy)
	id := c.Hist.SceneRef().HitTest(wx, wy)

	if id == "" {
		if c.tool == ToolPan {
			c.state = StatePanning
			c.startSX, c.startSY = sx, sy
			c.startPan = vp
		} else if !shift {
			c.Sel.Clear()
		}
		return
	}

	if shift {
		c.Sel.Toggle(id)
		if !c.Sel.Has(id) {
			return // toggled off; nothing to drag
		}
	} else if !c.Sel.Has(id) {
		c.Sel.Replace(id)
	}
	// a plain click on an already-selected item preserves the multi-item
	// selection so the whole group drags together

	c.state = StateDragging
	c.startSX, c.startSY = sx, sy
	c.startZoom = vp.Zoom
	// the pre-drag snapshot goes onto the undo stack exactly once, here
	c.Hist.Begin()
	c.dragIDs = c.Sel.IDs(*c.Hist.SceneRef())
	c.dragStart = make(map[string][2]float64, len(c.dragIDs))
	for _, di := range c.dragIDs {
		if it, ok := c.Hist.SceneRef().Get(di); ok {
			c.dragStart[di] = [2]float64{it.X, it.Y}
		}
	}
}

// PointerMove feeds a pointer move while a gesture may be in progress.
func (c *Controller) PointerMove(sx, sy float64) {
	switch c.state {
	case StatePanning:
		dx, dy := sx-c.startSX, sy-c.startSY
		c.Hist.Amend(func(s *Snapshot) {
			s.Viewport.PanX = c.startPan.PanX + dx
			s.Viewport.PanY = c.startPan.PanY + dy
		})
	case StateDragging:
		// displacement is divided by the zoom captured at drag start,
		// not the live zoom
		dx := (sx - c.startSX) / c.startZoom
		dy := (sy - c.startSY) / c.startZoom
		c.Hist.Amend(func(s *Snapshot) {
			for _, id := range c.dragIDs {
				start, ok := c.dragStart[id]
				if !ok {
					continue
				}
				if i := s.Scene.IndexOf(id); i >= 0 {
					s.Scene.Items[i].X = start[0] + dx
					s.Scene.Items[i].Y = start[1] + dy
				}
			}
		})
	default:
	}
}

// PointerUp ends the in-progress gesture and flushes it to persistence.
func (c *Controller) PointerUp() {
	if c.state == StateIdle {
		return
	}
	c.state = StateIdle
	c.dragIDs = nil
	c.dragStart = nil
	c.Hist.Persist()
}

// Wheel applies an exponential zoom step anchored at the cursor position.
func (c *Controller) Wheel(deltaY, sx, sy float64) {
	c.Hist.Amend(func(s *Snapshot) {
		s.Viewport = WheelZoom(s.Viewport, deltaY, sx, sy, c.P)
	})
}

// SetZoomAt sets an absolute zoom anchored at (sx, sy), e.g. from the
// percentage field.
func (c *Controller) SetZoomAt(zoom, sx, sy float64) {
	c.Hist.Amend(func(s *Snapshot) {
		s.Viewport = ZoomAtPoint(s.Viewport, zoom, sx, sy, c.P)
	})
}

// Fit frames all items within the given view size.
func (c *Controller) Fit(viewW, viewH float64) {
	c.Hist.Amend(func(s *Snapshot) {
		s.Viewport = FitToContent(s.Scene.Items, viewW, viewH, c.P)
	})
	c.Hist.Persist()
}

// HoldPanStart activates the transient hold-a-key-to-pan mode. It only
// engages while the canvas is hovered and no text input has focus, and a
// re-entrancy guard ignores key auto-repeat.
func (c *Controller) HoldPanStart(canvasHovered, textFocused bool) bool {
	if c.holdActive || !canvasHovered || textFocused {
		return false
	}
	c.holdActive = true
	c.prevTool = c.tool
	c.tool = ToolPan
	return true
}

// HoldPanEnd releases the transient pan mode, restores the prior tool and
// flushes any in-progress pan to persistence.
func (c *Controller) HoldPanEnd() {
	if !c.holdActive {
		return
	}
	c.holdActive = false
	c.tool = c.prevTool
	if c.state == StatePanning {
		c.state = StateIdle
	}
	c.Hist.Persist()
}

// BeginLayerDrag starts a layer-reorder gesture for the given item.
func (c *Controller) BeginLayerDrag(id string) {
	if c.state != StateIdle || c.Hist.SceneRef().IndexOf(id) < 0 {
		return
	}
	c.state = StateReordering
	c.reorderID = id
	c.Hist.Begin()
}

// LayerDragTo moves the reordered item to z-index idx, preserving the
// relative order of all untouched items.
func (c *Controller) LayerDragTo(idx int) {
	if c.state != StateReordering {
		return
	}
	c.Hist.Amend(func(s *Snapshot) {
		s.Scene.MoveLayer(c.reorderID, idx)
	})
}

// EndLayerDrag finishes the reorder gesture.
func (c *Controller) EndLayerDrag() {
	if c.state != StateReordering {
		return
	}
	c.state = StateIdle
	c.reorderID = ""
	c.Hist.Persist()
}

// AddImage imports an image reference with an intrinsic size, placed by the
// placement engine, committed through history. Returns the new item id.
func (c *Controller) AddImage(src string, w, h float64) string {
	return c.addItem(domain.CanvasItem{Type: domain.ItemImage, Src: src, Width: w, Height: h})
}

// AddVideo imports a video reference.
func (c *Controller) AddVideo(src string, w, h float64) string {
	return c.addItem(domain.CanvasItem{Type: domain.ItemVideo, Src: src, Width: w, Height: h})
}

// AddText places a new text item at a default size.
func (c *Controller) AddText(text string) string {
	return c.addItem(domain.CanvasItem{Type: domain.ItemText, Text: text, Width: 240, Height: 80})
}

func (c *Controller) addItem(it domain.CanvasItem) string {
	it.ID = uuid.NewString()
	it.Visible = true
	it.Opacity = 1
	if !(it.Width > 0) {
		it.Width = domain.DefaultItemWidth
	}
	if !(it.Height > 0) {
		it.Height = domain.DefaultItemHeight
	}
	c.Hist.Commit(func(s *Snapshot) {
		it.X, it.Y = FindPlacement(s.Scene.Items, it.Width, it.Height, c.P)
		s.Scene.Add(it)
	})
	return it.ID
}

// DeleteSelected removes every selected item in one undoable commit and
// prunes the selection afterwards.
func (c *Controller) DeleteSelected() {
	ids := c.Sel.IDs(*c.Hist.SceneRef())
	if len(ids) == 0 {
		return
	}
	c.Hist.Commit(func(s *Snapshot) {
		for _, id := range ids {
			s.Scene.Remove(id)
		}
	})
	c.Sel.Prune(*c.Hist.SceneRef())
}

// DeleteItem removes one item regardless of selection.
func (c *Controller) DeleteItem(id string) {
	if c.Hist.SceneRef().IndexOf(id) < 0 {
		return
	}
	c.Hist.Commit(func(s *Snapshot) {
		s.Scene.Remove(id)
	})
	c.Sel.Prune(*c.Hist.SceneRef())
}

// SetItemOpacity commits an opacity change, clamped to [0,1].
func (c *Controller) SetItemOpacity(id string, v float64) {
	if c.Hist.SceneRef().IndexOf(id) < 0 {
		return
	}
	c.Hist.Commit(func(s *Snapshot) {
		s.Scene.SetOpacity(id, v)
	})
}

// SetItemVisible commits a soft-hide toggle.
func (c *Controller) SetItemVisible(id string, v bool) {
	if c.Hist.SceneRef().IndexOf(id) < 0 {
		return
	}
	c.Hist.Commit(func(s *Snapshot) {
		s.Scene.SetVisible(id, v)
	})
}

// ReplaceItemSrc commits a source swap in place, e.g. when an AI edit action
// returns a replacement image. Position, size and z-order are untouched.
func (c *Controller) ReplaceItemSrc(id, src string) bool {
	if c.Hist.SceneRef().IndexOf(id) < 0 {
		return false
	}
	c.Hist.Commit(func(s *Snapshot) {
		if i := s.Scene.IndexOf(id); i >= 0 {
			s.Scene.Items[i].Src = src
		}
	})
	return true
}

// Undo steps history back and keeps the selection consistent with the
// restored scene.
func (c *Controller) Undo() bool {
	if c.state != StateIdle {
		return false
	}
	ok := c.Hist.Undo()
	if ok {
		c.Sel.Prune(*c.Hist.SceneRef())
	}
	return ok
}

// Redo steps history forward.
func (c *Controller) Redo() bool {
	if c.state != StateIdle {
		return false
	}
	ok := c.Hist.Redo()
	if ok {
		c.Sel.Prune(*c.Hist.SceneRef())
	}
	return ok
}

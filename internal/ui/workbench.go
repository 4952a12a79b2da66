//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	fcanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"pixelstudio/internal/canvas"
	"pixelstudio/internal/domain"
)

// Workbench renders the canvas engine state and feeds pointer input into the
// controller. All coordinate math lives in the engine; this widget only
// translates Fyne events to screen coordinates and repaints.
type Workbench struct {
	widget.BaseWidget

	ctrl    *canvas.Controller
	hovered bool

	// OnChanged fires after any interaction that may alter state, so the
	// chrome (undo buttons, layer panel, zoom field) can refresh.
	OnChanged func()
}

// NewWorkbench wires the widget over the controller.
func NewWorkbench(ctrl *canvas.Controller) *Workbench {
	w := &Workbench{ctrl: ctrl}
	w.ExtendBaseWidget(w)
	return w
}

// Hovered reports whether the pointer is over the canvas; the transient
// hold-to-pan mode only engages then.
func (w *Workbench) Hovered() bool { return w.hovered }

func (w *Workbench) changed() {
	w.Refresh()
	if w.OnChanged != nil {
		w.OnChanged()
	}
}

// MouseIn, MouseMoved and MouseOut implement desktop.Hoverable.
func (w *Workbench) MouseIn(*desktop.MouseEvent)    { w.hovered = true }
func (w *Workbench) MouseMoved(*desktop.MouseEvent) {}
func (w *Workbench) MouseOut()                      { w.hovered = false }

// MouseDown and MouseUp implement desktop.Mouseable.
func (w *Workbench) MouseDown(e *desktop.MouseEvent) {
	shift := e.Modifier&fyne.KeyModifierShift != 0
	w.ctrl.PointerDown(float64(e.Position.X), float64(e.Position.Y), shift)
	w.changed()
}

func (w *Workbench) MouseUp(*desktop.MouseEvent) {
	w.ctrl.PointerUp()
	w.changed()
}

// Dragged feeds move deltas while a gesture is in progress.
func (w *Workbench) Dragged(e *fyne.DragEvent) {
	w.ctrl.PointerMove(float64(e.Position.X), float64(e.Position.Y))
	w.changed()
}

// DragEnd ends the gesture.
func (w *Workbench) DragEnd() {
	w.ctrl.PointerUp()
	w.changed()
}

// Scrolled zooms exponentially, anchored at the cursor.
func (w *Workbench) Scrolled(e *fyne.ScrollEvent) {
	w.ctrl.Wheel(float64(-e.Scrolled.DY), float64(e.Position.X), float64(e.Position.Y))
	w.changed()
}

// Fit frames all items in the current widget size.
func (w *Workbench) Fit() {
	size := w.Size()
	w.ctrl.Fit(float64(size.Width), float64(size.Height))
	w.changed()
}

func (w *Workbench) CreateRenderer() fyne.WidgetRenderer {
	bg := fcanvas.NewRectangle(color.RGBA{R: 28, G: 28, B: 32, A: 255})
	return &workbenchRenderer{w: w, bg: bg}
}

// workbenchRenderer rebuilds its object list from the scene on every
// refresh. Item counts on this canvas are small, so rebuilding is simpler
// and safe compared to incremental diffing.
type workbenchRenderer struct {
	w       *Workbench
	bg      *fcanvas.Rectangle
	objects []fyne.CanvasObject
}

func (r *workbenchRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
}

func (r *workbenchRenderer) MinSize() fyne.Size { return fyne.NewSize(640, 480) }

func (r *workbenchRenderer) Refresh() {
	vp := r.w.ctrl.Hist.Viewport()
	sc := r.w.ctrl.Hist.SceneRef()

	objs := []fyne.CanvasObject{r.bg}
	for _, it := range sc.Items {
		if !it.Visible {
			continue
		}
		sx, sy := canvas.WorldToScreen(vp, it.X, it.Y)
		sw := float32(it.Width * vp.Zoom)
		sh := float32(it.Height * vp.Zoom)
		pos := fyne.NewPos(float32(sx), float32(sy))

		var obj fyne.CanvasObject
		switch it.Type {
		case domain.ItemImage:
			img := fcanvas.NewImageFromFile(it.Src)
			img.FillMode = fcanvas.ImageFillContain
			img.Translucency = 1 - it.Opacity
			obj = img
		case domain.ItemText:
			txt := fcanvas.NewText(it.Text, color.White)
			txt.TextSize = float32(16 * vp.Zoom)
			obj = txt
		default:
			rect := fcanvas.NewRectangle(color.RGBA{R: 60, G: 60, B: 70, A: uint8(255 * it.Opacity)})
			rect.StrokeColor = color.RGBA{R: 120, G: 120, B: 130, A: 255}
			rect.StrokeWidth = 1
			obj = rect
		}
		obj.Move(pos)
		obj.Resize(fyne.NewSize(sw, sh))
		objs = append(objs, obj)

		if r.w.ctrl.Sel.Has(it.ID) {
			box := fcanvas.NewRectangle(color.RGBA{})
			box.StrokeColor = color.RGBA{R: 0, G: 170, B: 255, A: 255}
			box.StrokeWidth = 2
			box.Move(fyne.NewPos(pos.X-1, pos.Y-1))
			box.Resize(fyne.NewSize(sw+2, sh+2))
			objs = append(objs, box)
		}
	}
	r.objects = objs
	fcanvas.Refresh(r.w)
}

func (r *workbenchRenderer) Objects() []fyne.CanvasObject {
	if r.objects == nil {
		return []fyne.CanvasObject{r.bg}
	}
	return r.objects
}

func (r *workbenchRenderer) Destroy() {}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"fmt"
	"strconv"
	"strings"

	"pixelstudio/internal/domain"
)

// ScreenToWorld converts a screen-space point to world space under v.
func ScreenToWorld(v domain.Viewport, sx, sy float64) (wx, wy float64) {
	return (sx - v.PanX) / v.Zoom, (sy - v.PanY) / v.Zoom
}

// WorldToScreen converts a world-space point to screen space under v.
func WorldToScreen(v domain.Viewport, wx, wy float64) (sx, sy float64) {
	return wx*v.Zoom + v.PanX, wy*v.Zoom + v.PanY
}

// ZoomAtPoint returns a viewport with zoom clamped into the configured range
// and the pan solved so the world point currently under (sx, sy) stays fixed
// on screen. The anchor stays put under any sequence of such calls, up to
// floating point epsilon.
func ZoomAtPoint(v domain.Viewport, nextZoomRaw, sx, sy float64, p Params) domain.Viewport {
	next := p.ClampZoom(nextZoomRaw)
	wx, wy := ScreenToWorld(v, sx, sy)
	return domain.Viewport{
		PanX: sx - wx*next,
		PanY: sy - wy*next,
		Zoom: next,
	}
}

// WheelZoom applies one exponential scroll-wheel step anchored at the cursor.
// deltaY > 0 zooms in.
func WheelZoom(v domain.Viewport, deltaY, sx, sy float64, p Params) domain.Viewport {
	factor := p.WheelStepOut
	if deltaY > 0 {
		factor = p.WheelStepIn
	}
	return ZoomAtPoint(v, v.Zoom*factor, sx, sy, p)
}

// FitToContent returns a viewport framing the bounding box of all items
// within a viewWidth x viewHeight screen area, with a little padding. An
// empty scene resets to the origin at 100%.
func FitToContent(items []domain.CanvasItem, viewWidth, viewHeight float64, p Params) domain.Viewport {
	if len(items) == 0 || viewWidth <= 0 || viewHeight <= 0 {
		return domain.Viewport{Zoom: p.ClampZoom(1)}
	}
	minX, minY := items[0].X, items[0].Y
	maxX, maxY := items[0].X+items[0].Width, items[0].Y+items[0].Height
	for _, it := range items[1:] {
		if it.X < minX {
			minX = it.X
		}
		if it.Y < minY {
			minY = it.Y
		}
		if it.X+it.Width > maxX {
			maxX = it.X + it.Width
		}
		if it.Y+it.Height > maxY {
			maxY = it.Y + it.Height
		}
	}
	w, h := maxX-minX, maxY-minY
	if w <= 0 || h <= 0 {
		return domain.Viewport{Zoom: p.ClampZoom(1)}
	}
	zoom := viewWidth / w
	if zy := viewHeight / h; zy < zoom {
		zoom = zy
	}
	zoom = p.ClampZoom(zoom * p.FitPadding)
	// center the content
	return domain.Viewport{
		PanX: (viewWidth-w*zoom)/2 - minX*zoom,
		PanY: (viewHeight-h*zoom)/2 - minY*zoom,
		Zoom: zoom,
	}
}

// ZoomField models the zoom-percentage text entry. While the field has input
// focus, external zoom changes must not overwrite what the user typed; the
// typed value commits on Enter/blur and reverts on Escape.
type ZoomField struct {
	editing bool
	text    string
}

// Text returns what the field should currently display for the given live
// zoom factor.
func (f *ZoomField) Text(zoom float64) string {
	if f.editing {
		return f.text
	}
	return fmt.Sprintf("%d%%", int(zoom*100+0.5))
}

// Focus enters editing mode, seeding the buffer from the live zoom.
func (f *ZoomField) Focus(zoom float64) {
	if f.editing {
		return
	}
	f.editing = true
	f.text = strconv.Itoa(int(zoom*100 + 0.5))
}

// SetText replaces the typed buffer. Ignored unless the field is focused.
func (f *ZoomField) SetText(s string) {
	if f.editing {
		f.text = s
	}
}

// Editing reports whether the field currently has input focus.
func (f *ZoomField) Editing() bool { return f.editing }

// Commit leaves editing mode and parses the typed percentage. ok is false
// when the buffer was not a usable number, in which case the caller keeps the
// current zoom.
func (f *ZoomField) Commit() (zoom float64, ok bool) {
	if !f.editing {
		return 0, false
	}
	f.editing = false
	s := strings.TrimSuffix(strings.TrimSpace(f.text), "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v / 100, true
}

// Escape leaves editing mode discarding the typed value.
func (f *ZoomField) Escape() {
	f.editing = false
	f.text = ""
}

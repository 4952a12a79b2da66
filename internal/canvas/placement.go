/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import "pixelstudio/internal/domain"

// FindPlacement assigns world coordinates for a new w x h item so that its
// margin-inflated bounding box does not intersect any existing item's
// margin-inflated box. It scans a bounded virtual grid row-major, cell step
// (w+margin, h+margin) from the origin. When the grid is exhausted it falls
// back to a deterministic cumulative offset; the rare overlap that can
// produce is accepted.
func FindPlacement(existing []domain.CanvasItem, w, h float64, p Params) (x, y float64) {
	stepX := w + p.Margin
	stepY := h + p.Margin
	for row := 0; row < p.GridRows; row++ {
		for col := 0; col < p.GridCols; col++ {
			x = float64(col) * stepX
			y = float64(row) * stepY
			if !overlapsAny(existing, x, y, w, h, p.Margin) {
				return x, y
			}
		}
	}
	// grid exhausted: cascade down-right from the origin by item count
	off := float64(len(existing)+1) * p.FallbackStep
	return off, off
}

// overlapsAny reports whether the margin-inflated box at (x,y,w,h) intersects
// any existing item's margin-inflated box.
func overlapsAny(items []domain.CanvasItem, x, y, w, h, margin float64) bool {
	ax0, ay0 := x-margin/2, y-margin/2
	ax1, ay1 := x+w+margin/2, y+h+margin/2
	for _, it := range items {
		bx0, by0 := it.X-margin/2, it.Y-margin/2
		bx1, by1 := it.X+it.Width+margin/2, it.Y+it.Height+margin/2
		if ax0 < bx1 && bx0 < ax1 && ay0 < by1 && by0 < ay1 {
			return true
		}
	}
	return false
}

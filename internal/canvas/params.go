/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package canvas implements the workbench engine: an infinite pannable and
// zoomable surface of image/video/text items with z-ordered layers, a
// placement engine for new items, a pointer state machine for selection and
// dragging, and snapshot-based undo/redo.
package canvas

import "time"

// Params collects the tunable constants of the engine. The zoom step factors
// and the placement scan bound are heuristics; they are carried as
// configuration rather than hard-coded so deployments can adjust them.
type Params struct {
	ZoomMin float64
	ZoomMax float64
	// Wheel zoom is exponential: one notch multiplies the zoom by
	// WheelStepIn (scroll up) or WheelStepOut (scroll down).
	WheelStepIn  float64
	WheelStepOut float64
	// Placement grid scan bound (columns x rows) and the margin kept
	// between placed bounding boxes.
	GridCols int
	GridRows int
	Margin   float64
	// FallbackStep is the deterministic cumulative offset used when the
	// grid scan is exhausted.
	FallbackStep float64
	// FitPadding shrinks fit-to-content zoom slightly so items do not
	// touch the viewport edge.
	FitPadding float64
	// DebounceWrite coalesces bursts of field edits into one persistence
	// write. Structural canvas commits bypass the debounce.
	DebounceWrite time.Duration
}

// DefaultParams returns the stock engine tuning.
func DefaultParams() Params {
	return Params{
		ZoomMin:       0.1,
		ZoomMax:       8.0,
		WheelStepIn:   1.1,
		WheelStepOut:  0.9,
		GridCols:      8,
		GridRows:      32,
		Margin:        24,
		FallbackStep:  40,
		FitPadding:    0.95,
		DebounceWrite: 200 * time.Millisecond,
	}
}

// ClampZoom limits z to the configured zoom range.
func (p Params) ClampZoom(z float64) float64 {
	if z < p.ZoomMin {
		return p.ZoomMin
	}
	if z > p.ZoomMax {
		return p.ZoomMax
	}
	return z
}

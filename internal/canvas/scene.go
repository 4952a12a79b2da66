/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"pixelstudio/internal/domain"
)

// Scene owns the ordered item list. Array position is z-order: index 0 is
// the bottom layer, the last item draws on top. Items are value types; the
// scene is the single owner and everything else refers to items by id.
type Scene struct {
	Items []domain.CanvasItem
}

// Clone returns a deep copy sharing no substructure with s.
func (s Scene) Clone() Scene {
	out := Scene{}
	if s.Items != nil {
		out.Items = make([]domain.CanvasItem, len(s.Items))
		copy(out.Items, s.Items)
	}
	return out
}

// IndexOf returns the z-index of the item with the given id, or -1.
func (s Scene) IndexOf(id string) int {
	for i := range s.Items {
		if s.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// Get returns a copy of the item with the given id.
func (s Scene) Get(id string) (domain.CanvasItem, bool) {
	if i := s.IndexOf(id); i >= 0 {
		return s.Items[i], true
	}
	return domain.CanvasItem{}, false
}

// Add appends the item as the new top layer.
func (s *Scene) Add(it domain.CanvasItem) {
	s.Items = append(s.Items, it)
}

// Remove deletes the item with the given id, preserving the order of the
// rest. It reports whether anything was removed.
func (s *Scene) Remove(id string) bool {
	i := s.IndexOf(id)
	if i < 0 {
		return false
	}
	s.Items = append(s.Items[:i], s.Items[i+1:]...)
	return true
}

// MoveLayer moves the item with the given id to z-index to, clamped to the
// valid range. The relative order of all other items is preserved.
func (s *Scene) MoveLayer(id string, to int) bool {
	from := s.IndexOf(id)
	if from < 0 {
		return false
	}
	if to < 0 {
		to = 0
	}
	if to >= len(s.Items) {
		to = len(s.Items) - 1
	}
	if to == from {
		return true
	}
	it := s.Items[from]
	s.Items = append(s.Items[:from], s.Items[from+1:]...)
	s.Items = append(s.Items[:to], append([]domain.CanvasItem{it}, s.Items[to:]...)...)
	return true
}

// SetOpacity writes the item's opacity clamped to [0,1].
func (s *Scene) SetOpacity(id string, v float64) bool {
	i := s.IndexOf(id)
	if i < 0 {
		return false
	}
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	s.Items[i].Opacity = v
	return true
}

// SetVisible toggles soft-hide. The item stays in the scene either way.
func (s *Scene) SetVisible(id string, v bool) bool {
	i := s.IndexOf(id)
	if i < 0 {
		return false
	}
	s.Items[i].Visible = v
	return true
}

// MoveBy translates the item by a world-space delta.
func (s *Scene) MoveBy(id string, dx, dy float64) bool {
	i := s.IndexOf(id)
	if i < 0 {
		return false
	}
	s.Items[i].X += dx
	s.Items[i].Y += dy
	return true
}

// Images returns the image items in z-order.
func (s Scene) Images() []domain.CanvasItem {
	var out []domain.CanvasItem
	for _, it := range s.Items {
		if it.Type == domain.ItemImage {
			out = append(out, it)
		}
	}
	return out
}

// HitTest returns the id of the topmost visible item containing the world
// point, or "".
func (s Scene) HitTest(wx, wy float64) string {
	for i := len(s.Items) - 1; i >= 0; i-- {
		it := s.Items[i]
		if !it.Visible {
			continue
		}
		if wx >= it.X && wx <= it.X+it.Width && wy >= it.Y && wy <= it.Y+it.Height {
			return it.ID
		}
	}
	return ""
}

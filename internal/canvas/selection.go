/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

// Selection is a set of item ids. It holds weak references only: ids must
// always be a subset of the ids present in the scene, which Prune enforces
// after deletions.
type Selection map[string]struct{}

// NewSelection returns an empty selection.
func NewSelection() Selection { return make(Selection) }

// Has reports membership.
func (s Selection) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Toggle flips membership of id (shift+click).
func (s Selection) Toggle(id string) {
	if s.Has(id) {
		delete(s, id)
	} else {
		s[id] = struct{}{}
	}
}

// Replace makes id the only selected item (plain click on unselected item).
func (s Selection) Replace(id string) {
	for k := range s {
		delete(s, k)
	}
	s[id] = struct{}{}
}

// Clear empties the selection.
func (s Selection) Clear() {
	for k := range s {
		delete(s, k)
	}
}

// Prune drops ids no longer present in the scene.
func (s Selection) Prune(sc Scene) {
	for id := range s {
		if sc.IndexOf(id) < 0 {
			delete(s, id)
		}
	}
}

// IDs returns the selected ids in scene z-order so callers get a stable
// ordering.
func (s Selection) IDs(sc Scene) []string {
	var out []string
	for _, it := range sc.Items {
		if s.Has(it.ID) {
			out = append(out, it.ID)
		}
	}
	return out
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import "pixelstudio/internal/domain"

// Snapshot is one fully-copied (Viewport, Scene) pair. Snapshots share no
// mutable substructure with the live state, so mutating the present can
// never retroactively corrupt a stored snapshot.
type Snapshot struct {
	Viewport domain.Viewport
	Scene    Scene
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{Viewport: s.Viewport, Scene: s.Scene.Clone()}
}

// Doc converts the snapshot to its serialized document form.
func (s Snapshot) Doc() domain.CanvasDoc {
	return domain.CanvasDoc{Viewport: s.Viewport, Items: s.Scene.Clone().Items}
}

// SnapshotFromDoc builds a snapshot from a persisted canvas document.
func SnapshotFromDoc(d domain.CanvasDoc) Snapshot {
	d = domain.NormalizeCanvas(d.Clone())
	return Snapshot{Viewport: d.Viewport, Scene: Scene{Items: d.Items}}
}

// History manages undo/redo over the live snapshot. One history entry is
// pushed per mutating gesture: Begin at gesture start (drag, layer reorder)
// with the in-progress updates applied through Amend, or a single Commit for
// atomic operations (paste, delete, generated-item splice). A new entry
// always clears the redo branch.
type History struct {
	past    []Snapshot
	future  []Snapshot
	present Snapshot

	// OnCommit, when set, is invoked with the new present after every
	// structural change (Commit, Begin-gesture end amendments flush
	// through it via Persist, undo, redo). Persistence hooks in here.
	OnCommit func(Snapshot)
}

// NewHistory returns a history with an empty present.
func NewHistory() *History {
	return &History{present: Snapshot{Viewport: domain.Viewport{Zoom: 1}}}
}

// Present returns a deep copy of the live snapshot.
func (h *History) Present() Snapshot { return h.present.Clone() }

// Viewport returns the live viewport value.
func (h *History) Viewport() domain.Viewport { return h.present.Viewport }

// Scene returns the live scene by reference for read access. Mutations must
// go through Begin/Amend/Commit.
func (h *History) SceneRef() *Scene { return &h.present.Scene }

// CanUndo and CanRedo report stack depth.
func (h *History) CanUndo() bool { return len(h.past) > 0 }
func (h *History) CanRedo() bool { return len(h.future) > 0 }

// Begin pushes the current present onto the undo stack and clears the redo
// stack. Call exactly once per mutating gesture, at gesture start, never on
// every intermediate move, or a single undo would step back one pixel.
func (h *History) Begin() {
	h.past = append(h.past, h.present.Clone())
	h.future = nil
}

// Amend mutates the present without touching the history stacks. Used for
// the incremental updates inside a gesture (drag moves, pans) after Begin.
func (h *History) Amend(update func(*Snapshot)) {
	update(&h.present)
}

// Commit applies update atomically: the prior present is pushed onto the
// undo stack, the redo stack is cleared, and the persistence hook fires.
func (h *History) Commit(update func(*Snapshot)) {
	h.past = append(h.past, h.present.Clone())
	h.future = nil
	update(&h.present)
	h.persist()
}

// Persist fires the persistence hook with the current present. Gestures call
// this at gesture end, after their Begin/Amend sequence.
func (h *History) Persist() {
	h.persist()
}

// Undo steps the present back one entry. The replaced present moves to the
// front of the redo stack.
func (h *History) Undo() bool {
	if len(h.past) == 0 {
		return false
	}
	top := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = append([]Snapshot{h.present}, h.future...)
	h.present = top
	h.persist()
	return true
}

// Redo is the symmetric inverse of Undo.
func (h *History) Redo() bool {
	if len(h.future) == 0 {
		return false
	}
	first := h.future[0]
	h.future = h.future[1:]
	h.past = append(h.past, h.present)
	h.present = first
	h.persist()
	return true
}

// ResetTo replaces the present and clears both stacks. Used on session
// switch: history deliberately does not span sessions.
func (h *History) ResetTo(s Snapshot) {
	h.present = s.Clone()
	h.past = nil
	h.future = nil
}

func (h *History) persist() {
	if h.OnCommit != nil {
		h.OnCommit(h.present.Clone())
	}
}

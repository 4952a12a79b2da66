/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ai

import (
	"context"
	"log/slog"

	"pixelstudio/internal/domain"
)

// Per-item layer actions (retouch, outpaint, upscale, watermark removal) run
// on a track independent of the chat task: each item has its own busy flag
// and error slot, and actions on different items may run concurrently.

// ItemBusy reports whether the item has an edit action in flight.
func (o *Orchestrator) ItemBusy(itemID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.itemBusy[itemID]
}

// ItemError returns the item's last action error ("" when none).
func (o *Orchestrator) ItemError(itemID string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.itemErr[itemID]
}

// ClearItemError dismisses the item's error slot.
func (o *Orchestrator) ClearItemError(itemID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.itemErr, itemID)
}

// RunItemAction starts an edit action against one image item on the live
// scene. On success the item's source is swapped in place through an
// undoable commit. Returns ErrBusy while the item already has an action in
// flight.
func (o *Orchestrator) RunItemAction(op EditOp, itemID, instruction string) error {
	o.mu.Lock()
	if o.itemBusy[itemID] {
		o.mu.Unlock()
		return ErrBusy
	}
	it, ok := o.ctrl.Hist.SceneRef().Get(itemID)
	if !ok || it.Type != domain.ItemImage || it.Src == "" {
		o.mu.Unlock()
		return domain.ErrNoItem
	}
	src := it.Src
	o.itemBusy[itemID] = true
	delete(o.itemErr, itemID)
	ctx, cancel := context.WithCancel(context.Background())
	o.itemCancel[itemID] = cancel
	o.mu.Unlock()

	go func() {
		newSrc, err := o.client.EditImage(ctx, op, src, instruction)

		// the source swap touches the live scene, so the settle runs on
		// the dispatcher alongside the input event handlers
		o.dispatch(func() {
			o.mu.Lock()
			// the busy flag clears on every path so the dock cannot stay disabled
			delete(o.itemBusy, itemID)
			delete(o.itemCancel, itemID)
			switch {
			case ctx.Err() != nil:
				// cancelled; not an error
			case err != nil:
				o.itemErr[itemID] = err.Error()
				o.log.Warn("item action failed", slog.String("op", string(op)), slog.String("item", itemID), slog.Any("err", err))
			case o.ctrl.Hist.SceneRef().IndexOf(itemID) < 0:
				// item deleted while the request was in flight; drop the result
			default:
				o.ctrl.ReplaceItemSrc(itemID, newSrc)
			}
			sessionID := o.mgr.ActiveID()
			o.mu.Unlock()
			o.notify(sessionID)
		})
	}()
	return nil
}

// CancelItemAction aborts the item's in-flight edit action, if any.
func (o *Orchestrator) CancelItemAction(itemID string) {
	o.mu.Lock()
	cancel := o.itemCancel[itemID]
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// SendToChat resolves an item to the reference the composer should quote.
func (o *Orchestrator) SendToChat(itemID string) (string, bool) {
	it, ok := o.ctrl.Hist.SceneRef().Get(itemID)
	if !ok || it.Src == "" {
		return "", false
	}
	return it.Src, true
}

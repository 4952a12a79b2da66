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
	"errors"
	"sync"
	"testing"
	"time"

	"pixelstudio/internal/canvas"
	"pixelstudio/internal/domain"
	"pixelstudio/internal/session"
)

type fakeClient struct {
	classifyFn func(ctx context.Context) (Classification, error)
	generateFn func(ctx context.Context) (string, error)
	editFn     func(ctx context.Context) (string, error)
}

func (f *fakeClient) Classify(ctx context.Context, _ []Turn, _ domain.ProductForm) (Classification, error) {
	if f.classifyFn != nil {
		return f.classifyFn(ctx)
	}
	return Classification{Kind: KindGenerate, Prompt: "p", AspectRatio: "1:1"}, nil
}

func (f *fakeClient) Generate(ctx context.Context, _, _ string, _ []string) (string, error) {
	if f.generateFn != nil {
		return f.generateFn(ctx)
	}
	return "gen.png", nil
}

func (f *fakeClient) EditImage(ctx context.Context, _ EditOp, _, _ string) (string, error) {
	if f.editFn != nil {
		return f.editFn(ctx)
	}
	return "edited.png", nil
}

type nopSaver struct{}

func (nopSaver) SaveWorkspace(domain.Workspace) error { return nil }
func (nopSaver) SaveWorkspaceSoon(domain.Workspace)   {}

func newHarness(fc *fakeClient) (*Orchestrator, *session.Manager, *canvas.Controller, *domain.Session) {
	h := canvas.NewHistory()
	ctrl := canvas.NewController(h, canvas.DefaultParams())
	mgr := session.NewManager(ctrl, nopSaver{})
	s := mgr.Create("t")
	o := NewOrchestrator(fc, mgr, ctrl)
	o.MeasureSize = func(string) (float64, float64, bool) { return 400, 300, true }
	return o, mgr, ctrl, s
}

func waitIdle(t *testing.T, o *Orchestrator, sessionID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !o.Busy(sessionID) {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("task did not settle")
}

func lastMessage(s *domain.Session) domain.ChatMessage {
	return s.Messages[len(s.Messages)-1]
}

func TestGenerateSplicesUndoableItem(t *testing.T) {
	o, _, ctrl, s := newHarness(&fakeClient{})
	if err := o.Send(s.ID, "studio shot please"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	waitIdle(t, o, s.ID)

	items := ctrl.Hist.SceneRef().Items
	if len(items) != 1 || items[0].Src != "gen.png" {
		t.Fatalf("generated item not spliced: %+v", items)
	}
	if items[0].Width != 400 || items[0].Height != 300 {
		t.Fatalf("intrinsic size not applied: %+v", items[0])
	}
	if !ctrl.Hist.CanUndo() {
		t.Fatalf("splice must go through the undoable commit path")
	}
	if m := lastMessage(s); m.Status != domain.StatusOK {
		t.Fatalf("placeholder not settled: %+v", m)
	}
}

func TestClarifyLeavesCanvasUntouched(t *testing.T) {
	fc := &fakeClient{classifyFn: func(context.Context) (Classification, error) {
		return Classification{Kind: KindClarify, Question: "which background?"}, nil
	}}
	o, _, ctrl, s := newHarness(fc)
	o.Send(s.ID, "make it nice")
	waitIdle(t, o, s.ID)

	if len(ctrl.Hist.SceneRef().Items) != 0 {
		t.Fatalf("clarify must not touch the canvas")
	}
	if m := lastMessage(s); m.Content != "which background?" || m.Status != domain.StatusOK {
		t.Fatalf("question not surfaced: %+v", m)
	}
}

func TestUnparseableResponseShownVerbatim(t *testing.T) {
	fc := &fakeClient{classifyFn: func(context.Context) (Classification, error) {
		return ParseClassification("I can't answer in JSON, sorry."), nil
	}}
	o, _, _, s := newHarness(fc)
	o.Send(s.ID, "hm")
	waitIdle(t, o, s.ID)

	if m := lastMessage(s); m.Content != "I can't answer in JSON, sorry." {
		t.Fatalf("raw response not shown verbatim: %+v", m)
	}
}

func TestCancelRestoresComposerAndScene(t *testing.T) {
	started := make(chan struct{})
	fc := &fakeClient{classifyFn: func(ctx context.Context) (Classification, error) {
		close(started)
		<-ctx.Done()
		return Classification{}, ctx.Err()
	}}
	o, _, ctrl, s := newHarness(fc)
	var restored string
	o.OnComposerRestore = func(_, text string) { restored = text }

	o.Send(s.ID, "original text")
	<-started
	o.Cancel(s.ID)
	waitIdle(t, o, s.ID)
	time.Sleep(20 * time.Millisecond) // let the aborted goroutine observe ctx

	if len(ctrl.Hist.SceneRef().Items) != 0 {
		t.Fatalf("cancelled task mutated the scene")
	}
	if restored != "original text" {
		t.Fatalf("composer text not restored, got %q", restored)
	}
	if m := lastMessage(s); m.Status != domain.StatusCancelled {
		t.Fatalf("placeholder not marked cancelled: %+v", m)
	}
}

func TestSecondSendBlockedWhileBusy(t *testing.T) {
	block := make(chan struct{})
	fc := &fakeClient{classifyFn: func(ctx context.Context) (Classification, error) {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return Classification{Kind: KindClarify, Question: "q"}, nil
	}}
	o, _, _, s := newHarness(fc)
	o.Send(s.ID, "one")
	if err := o.Send(s.ID, "two"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	close(block)
	waitIdle(t, o, s.ID)
}

func TestStaleRunDiscarded(t *testing.T) {
	release := make(chan struct{})
	first := true
	fc := &fakeClient{generateFn: func(ctx context.Context) (string, error) {
		if first {
			first = false
			// ignore cancellation so the stale result actually arrives late
			<-release
			return "stale.png", nil
		}
		return "fresh.png", nil
	}}
	o, _, ctrl, s := newHarness(fc)

	o.Send(s.ID, "task one")
	time.Sleep(20 * time.Millisecond) // let task one reach the generate call
	o.Cancel(s.ID)
	o.Send(s.ID, "task two")
	waitIdle(t, o, s.ID)
	close(release)
	time.Sleep(50 * time.Millisecond) // let the stale result land and be dropped

	items := ctrl.Hist.SceneRef().Items
	if len(items) != 1 || items[0].Src != "fresh.png" {
		t.Fatalf("stale result must be discarded, have %+v", items)
	}
}

func TestGenerateFailureSurfacedAsMessage(t *testing.T) {
	fc := &fakeClient{generateFn: func(context.Context) (string, error) {
		return "", errors.New("model overloaded")
	}}
	o, _, ctrl, s := newHarness(fc)
	o.Send(s.ID, "go")
	waitIdle(t, o, s.ID)

	if len(ctrl.Hist.SceneRef().Items) != 0 {
		t.Fatalf("failed generation must leave the scene unchanged")
	}
	m := lastMessage(s)
	if m.Status != domain.StatusError || m.Content != "generation failed: model overloaded" {
		t.Fatalf("failure not surfaced as message: %+v", m)
	}
}

func TestResultForBackgroundSessionGoesToStoredCanvas(t *testing.T) {
	proceed := make(chan struct{})
	fc := &fakeClient{generateFn: func(ctx context.Context) (string, error) {
		<-proceed
		return "bg.png", nil
	}}
	o, mgr, ctrl, s := newHarness(fc)
	o.Send(s.ID, "render")
	time.Sleep(20 * time.Millisecond)
	other := mgr.Create("other") // switches away mid-flight
	close(proceed)
	waitIdle(t, o, s.ID)

	if mgr.ActiveID() != other.ID {
		t.Fatalf("active session changed unexpectedly")
	}
	if len(ctrl.Hist.SceneRef().Items) != 0 {
		t.Fatalf("background result leaked onto the live scene")
	}
	if got := mgr.Find(s.ID).Canvas.Items; len(got) != 1 || got[0].Src != "bg.png" {
		t.Fatalf("background session canvas missing result: %+v", got)
	}
}

// queueDispatcher stands in for the UI event loop: dispatched settles are
// queued and only run when the test drains them, the way fyne.Do defers work
// to the event thread.
type queueDispatcher struct {
	mu    sync.Mutex
	queue []func()
}

func (d *queueDispatcher) dispatch(fn func()) {
	d.mu.Lock()
	d.queue = append(d.queue, fn)
	d.mu.Unlock()
}

func (d *queueDispatcher) waitQueued(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		d.mu.Lock()
		n := len(d.queue)
		d.mu.Unlock()
		if n > 0 {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("nothing dispatched")
}

func (d *queueDispatcher) drain() {
	d.mu.Lock()
	queue := d.queue
	d.queue = nil
	d.mu.Unlock()
	for _, fn := range queue {
		fn()
	}
}

func TestChatSettleRunsOnDispatcher(t *testing.T) {
	o, _, ctrl, s := newHarness(&fakeClient{})
	d := &queueDispatcher{}
	o.Dispatch = d.dispatch

	o.Send(s.ID, "studio shot")
	d.waitQueued(t)

	// until the event loop runs the settle, the task goroutine has touched
	// neither the scene nor the transcript
	if len(ctrl.Hist.SceneRef().Items) != 0 {
		t.Fatalf("scene mutated off the dispatcher")
	}
	if !o.Busy(s.ID) {
		t.Fatalf("task settled off the dispatcher")
	}
	if m := lastMessage(s); m.Status != domain.StatusLoading {
		t.Fatalf("placeholder settled off the dispatcher: %+v", m)
	}

	d.drain()

	items := ctrl.Hist.SceneRef().Items
	if len(items) != 1 || items[0].Src != "gen.png" {
		t.Fatalf("dispatched settle did not splice the item: %+v", items)
	}
	if o.Busy(s.ID) {
		t.Fatalf("task still pending after dispatch")
	}
	if m := lastMessage(s); m.Status != domain.StatusOK {
		t.Fatalf("placeholder not settled after dispatch: %+v", m)
	}
}

func TestItemActionSettleRunsOnDispatcher(t *testing.T) {
	o, _, ctrl, _ := newHarness(&fakeClient{})
	id := ctrl.AddImage("orig.png", 400, 300)
	d := &queueDispatcher{}
	o.Dispatch = d.dispatch

	if err := o.RunItemAction(OpRetouch, id, ""); err != nil {
		t.Fatalf("RunItemAction: %v", err)
	}
	d.waitQueued(t)

	if it, _ := ctrl.Hist.SceneRef().Get(id); it.Src != "orig.png" {
		t.Fatalf("item mutated off the dispatcher: %+v", it)
	}
	if !o.ItemBusy(id) {
		t.Fatalf("busy flag cleared off the dispatcher")
	}

	d.drain()

	if it, _ := ctrl.Hist.SceneRef().Get(id); it.Src != "edited.png" {
		t.Fatalf("dispatched settle did not swap the source: %+v", it)
	}
	if o.ItemBusy(id) {
		t.Fatalf("busy flag not cleared after dispatch")
	}
}

func TestItemActionReplacesSrcUndoably(t *testing.T) {
	o, _, ctrl, _ := newHarness(&fakeClient{})
	id := ctrl.AddImage("orig.png", 400, 300)

	if err := o.RunItemAction(OpRetouch, id, "clean it up"); err != nil {
		t.Fatalf("RunItemAction: %v", err)
	}
	waitItemIdle(t, o, id)

	it, _ := ctrl.Hist.SceneRef().Get(id)
	if it.Src != "edited.png" {
		t.Fatalf("src not replaced: %+v", it)
	}
	ctrl.Undo()
	it, _ = ctrl.Hist.SceneRef().Get(id)
	if it.Src != "orig.png" {
		t.Fatalf("src replacement not undoable: %+v", it)
	}
}

func TestItemActionFailureSetsErrorSlotAndClearsBusy(t *testing.T) {
	fc := &fakeClient{editFn: func(context.Context) (string, error) {
		return "", errors.New("mask rejected")
	}}
	o, _, ctrl, _ := newHarness(fc)
	id := ctrl.AddImage("orig.png", 400, 300)

	o.RunItemAction(OpOutpaint, id, "")
	waitItemIdle(t, o, id)

	if o.ItemError(id) != "mask rejected" {
		t.Fatalf("error slot not set: %q", o.ItemError(id))
	}
	if o.ItemBusy(id) {
		t.Fatalf("busy flag must clear on failure")
	}
	o.ClearItemError(id)
	if o.ItemError(id) != "" {
		t.Fatalf("error slot not cleared")
	}
}

func TestItemActionBusyPerItem(t *testing.T) {
	block := make(chan struct{})
	fc := &fakeClient{editFn: func(ctx context.Context) (string, error) {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return "edited.png", nil
	}}
	o, _, ctrl, _ := newHarness(fc)
	a := ctrl.AddImage("a.png", 400, 300)
	b := ctrl.AddImage("b.png", 400, 300)

	o.RunItemAction(OpUpscale, a, "")
	if err := o.RunItemAction(OpUpscale, a, ""); !errors.Is(err, ErrBusy) {
		t.Fatalf("same item should be busy, got %v", err)
	}
	if err := o.RunItemAction(OpUpscale, b, ""); err != nil {
		t.Fatalf("other item must run independently: %v", err)
	}
	close(block)
	waitItemIdle(t, o, a)
	waitItemIdle(t, o, b)
}

func TestItemActionCancelIsNotAnError(t *testing.T) {
	started := make(chan struct{})
	fc := &fakeClient{editFn: func(ctx context.Context) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	}}
	o, _, ctrl, _ := newHarness(fc)
	id := ctrl.AddImage("a.png", 400, 300)

	o.RunItemAction(OpUnwatermark, id, "")
	<-started
	o.CancelItemAction(id)
	waitItemIdle(t, o, id)

	if o.ItemError(id) != "" {
		t.Fatalf("cancellation must not fill the error slot: %q", o.ItemError(id))
	}
	it, _ := ctrl.Hist.SceneRef().Get(id)
	if it.Src != "a.png" {
		t.Fatalf("cancelled action mutated the item: %+v", it)
	}
}

func waitItemIdle(t *testing.T, o *Orchestrator, itemID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !o.ItemBusy(itemID) {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("item action did not settle")
}

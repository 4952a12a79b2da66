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
	"sync"
	"time"

	"github.com/google/uuid"

	applog "pixelstudio/internal/log"

	"pixelstudio/internal/canvas"
	"pixelstudio/internal/domain"
	"pixelstudio/internal/session"
)

// DefaultWindow bounds the transcript context sent with a classification.
const DefaultWindow = 14

// task correlates one outstanding chat-triggered request with its run id and
// cancellation handle.
type task struct {
	run       uint64
	sessionID string
	msgID     string
	composer  string
	cancel    context.CancelFunc
}

// Orchestrator runs the asynchronous AI work. Chat-triggered tasks are
// serialized per session (at most one outstanding); per-item edit actions run
// on an independent track with their own busy flags and error slots.
// Orchestrator bookkeeping lives under one mutex; mutations of the live
// history, scene and transcripts are marshaled through Dispatch onto the
// same thread that runs the input event handlers, so they never race with a
// gesture in progress. Network calls run outside both.
type Orchestrator struct {
	mu     sync.Mutex
	log    *slog.Logger
	client Client
	mgr    *session.Manager
	ctrl   *canvas.Controller

	// Window is the number of trailing transcript entries included as
	// classification context.
	Window int

	// MeasureSize resolves an image reference to its intrinsic size; falls
	// back to the default item size when nil or failing.
	MeasureSize func(src string) (w, h float64, ok bool)

	// OnComposerRestore puts the cancelled message's text back into the
	// composer input.
	OnComposerRestore func(sessionID, text string)

	// OnTranscriptChanged lets the UI refresh after asynchronous settles.
	OnTranscriptChanged func(sessionID string)

	// Dispatch marshals a settle onto the UI event loop; the Fyne shell
	// sets it to fyne.Do. Nil runs the work inline on the task goroutine.
	Dispatch func(func())

	runSeq     uint64
	pending    map[string]*task // sessionID -> outstanding chat task
	itemBusy   map[string]bool
	itemErr    map[string]string
	itemCancel map[string]context.CancelFunc
}

// NewOrchestrator wires the orchestrator over the session manager and canvas
// controller.
func NewOrchestrator(client Client, mgr *session.Manager, ctrl *canvas.Controller) *Orchestrator {
	return &Orchestrator{
		log:        applog.WithComponent("ai"),
		client:     client,
		mgr:        mgr,
		ctrl:       ctrl,
		Window:     DefaultWindow,
		pending:    map[string]*task{},
		itemBusy:   map[string]bool{},
		itemErr:    map[string]string{},
		itemCancel: map[string]context.CancelFunc{},
	}
}

// Busy reports whether the session has an outstanding chat task.
func (o *Orchestrator) Busy(sessionID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pending[sessionID] != nil
}

// Send starts the chat-triggered pipeline for the given session: append the
// user message and a loading assistant placeholder, then classify and, if the
// instruction resolves, generate. Returns ErrBusy while a prior task is
// outstanding.
func (o *Orchestrator) Send(sessionID, text string) error {
	o.mu.Lock()
	s := o.mgr.Find(sessionID)
	if s == nil {
		o.mu.Unlock()
		return domain.ErrNoSession
	}
	if o.pending[sessionID] != nil {
		o.mu.Unlock()
		return ErrBusy
	}

	now := time.Now()
	s.Messages = append(s.Messages, domain.ChatMessage{
		ID: uuid.NewString(), Role: domain.RoleUser, Content: text,
		Status: domain.StatusOK, CreatedAt: now,
	})
	o.mgr.TitleFrom(s, text)
	placeholder := domain.ChatMessage{
		ID: uuid.NewString(), Role: domain.RoleAssistant,
		Status: domain.StatusLoading, CreatedAt: now,
	}
	s.Messages = append(s.Messages, placeholder)

	o.runSeq++
	ctx, cancel := context.WithCancel(context.Background())
	t := &task{run: o.runSeq, sessionID: sessionID, msgID: placeholder.ID, composer: text, cancel: cancel}
	o.pending[sessionID] = t

	turns := o.windowOf(s)
	form := s.Form
	refs := o.referenceImages(sessionID, s)
	o.mgr.SaveSoon()
	o.mu.Unlock()

	o.notify(sessionID)
	go o.runChat(ctx, t, turns, form, refs)
	return nil
}

// Cancel aborts the session's outstanding chat task. The in-flight request
// is cancelled via its handle, the placeholder is marked cancelled and the
// original message text is restored into the composer. Not an error path.
func (o *Orchestrator) Cancel(sessionID string) {
	o.mu.Lock()
	t := o.pending[sessionID]
	if t == nil {
		o.mu.Unlock()
		return
	}
	delete(o.pending, sessionID)
	t.cancel()
	if s := o.mgr.Find(sessionID); s != nil {
		setMessage(s, t.msgID, "Cancelled.", domain.StatusCancelled)
	}
	restore := o.OnComposerRestore
	o.mgr.SaveSoon()
	o.mu.Unlock()

	if restore != nil {
		restore(sessionID, t.composer)
	}
	o.notify(sessionID)
	o.log.Debug("chat task cancelled", slog.String("session", sessionID), slog.Uint64("run", t.run))
}

func (o *Orchestrator) runChat(ctx context.Context, t *task, turns []Turn, form domain.ProductForm, refs []string) {
	cls, err := o.client.Classify(ctx, turns, form)
	if ctx.Err() != nil {
		return // cancellation settled in Cancel
	}
	if err != nil {
		o.settle(t, "generation failed: "+err.Error(), domain.StatusError)
		return
	}
	switch cls.Kind {
	case KindClarify:
		o.settle(t, cls.Question, domain.StatusOK)
		return
	case KindVerbatim:
		o.settle(t, cls.Raw, domain.StatusOK)
		return
	}

	o.mu.Lock()
	superseded := o.stale(t)
	o.mu.Unlock()
	if superseded {
		return
	}

	// second, independently network-bound step; still cancellable through
	// the same handle
	src, err := o.client.Generate(ctx, cls.Prompt, cls.AspectRatio, refs)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		o.settle(t, "generation failed: "+err.Error(), domain.StatusError)
		return
	}

	w, h := o.measure(src)
	o.dispatch(func() {
		o.mu.Lock()
		if o.stale(t) {
			o.mu.Unlock()
			return
		}
		if o.mgr.ActiveID() == t.sessionID {
			// undoable splice through the history commit path
			o.ctrl.AddImage(src, w, h)
		} else {
			o.spliceStoredLocked(t.sessionID, src, w, h)
		}
		o.settleLocked(t, "I've placed the generated image on your canvas.", domain.StatusOK)
		o.mu.Unlock()
		o.notify(t.sessionID)
	})
}

// dispatch runs fn on the UI event loop when a dispatcher is installed.
func (o *Orchestrator) dispatch(fn func()) {
	if o.Dispatch != nil {
		o.Dispatch(fn)
		return
	}
	fn()
}

// settle marshals a terminal transcript update onto the dispatcher. The
// staleness re-check happens there: a Cancel or a superseding Send may land
// between scheduling and execution.
func (o *Orchestrator) settle(t *task, content, status string) {
	o.dispatch(func() {
		o.mu.Lock()
		if o.stale(t) {
			o.mu.Unlock()
			return
		}
		o.settleLocked(t, content, status)
		o.mu.Unlock()
		o.notify(t.sessionID)
	})
}

// stale reports whether the task has been superseded or cancelled. Checked
// after every suspension point; a stale result is discarded silently.
func (o *Orchestrator) stale(t *task) bool {
	return o.pending[t.sessionID] != t
}

func (o *Orchestrator) settleLocked(t *task, content, status string) {
	delete(o.pending, t.sessionID)
	if s := o.mgr.Find(t.sessionID); s != nil {
		setMessage(s, t.msgID, content, status)
	}
	o.mgr.SaveSoon()
}

// spliceStoredLocked places a generated image into a background session's
// stored canvas. The user switched away mid-generation; the result must not
// land on the live scene.
func (o *Orchestrator) spliceStoredLocked(sessionID, src string, w, h float64) {
	s := o.mgr.Find(sessionID)
	if s == nil {
		return
	}
	it := domain.CanvasItem{
		ID: uuid.NewString(), Type: domain.ItemImage, Src: src,
		Visible: true, Opacity: 1, Width: w, Height: h,
	}
	it.X, it.Y = canvas.FindPlacement(s.Canvas.Items, w, h, o.ctrl.P)
	s.Canvas.Items = append(s.Canvas.Items, it)
}

func (o *Orchestrator) measure(src string) (float64, float64) {
	if o.MeasureSize != nil {
		if w, h, ok := o.MeasureSize(src); ok {
			return w, h
		}
	} else if w, h, ok := MeasureImage(src); ok {
		return w, h
	}
	return domain.DefaultItemWidth, domain.DefaultItemHeight
}

// windowOf returns the trailing transcript entries as classification turns,
// skipping unsettled placeholders.
func (o *Orchestrator) windowOf(s *domain.Session) []Turn {
	n := o.Window
	if n <= 0 {
		n = DefaultWindow
	}
	msgs := s.Messages
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		if m.Status == domain.StatusLoading || m.Content == "" {
			continue
		}
		out = append(out, Turn{Role: string(m.Role), Content: m.Content})
	}
	return out
}

// referenceImages collects the selected images, or all canvas images when
// nothing is selected.
func (o *Orchestrator) referenceImages(sessionID string, s *domain.Session) []string {
	if o.mgr.ActiveID() == sessionID {
		sc := o.ctrl.Hist.SceneRef()
		if len(o.ctrl.Sel) > 0 {
			var refs []string
			for _, id := range o.ctrl.Sel.IDs(*sc) {
				if it, ok := sc.Get(id); ok && it.Type == domain.ItemImage && it.Src != "" {
					refs = append(refs, it.Src)
				}
			}
			if len(refs) > 0 {
				return refs
			}
		}
		var refs []string
		for _, it := range sc.Images() {
			if it.Src != "" {
				refs = append(refs, it.Src)
			}
		}
		return refs
	}
	var refs []string
	for _, it := range s.Canvas.Items {
		if it.Type == domain.ItemImage && it.Src != "" {
			refs = append(refs, it.Src)
		}
	}
	return refs
}

func (o *Orchestrator) notify(sessionID string) {
	if o.OnTranscriptChanged != nil {
		o.OnTranscriptChanged(sessionID)
	}
}

func setMessage(s *domain.Session, msgID, content, status string) {
	for i := range s.Messages {
		if s.Messages[i].ID == msgID {
			s.Messages[i].Content = content
			s.Messages[i].Status = status
			return
		}
	}
}

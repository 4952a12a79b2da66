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
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"pixelstudio/internal/ai"
	"pixelstudio/internal/canvas"
	"pixelstudio/internal/config"
	"pixelstudio/internal/crash"
	"pixelstudio/internal/domain"
	"pixelstudio/internal/export"
	applog "pixelstudio/internal/log"
	"pixelstudio/internal/session"
	"pixelstudio/internal/storage"
	"pixelstudio/internal/telemetry"
	"pixelstudio/internal/version"
)

// Run starts the Fyne-based studio: the canvas workbench, layer panel, chat
// panel and session tabs, wired over the engine, orchestrator and store.
func Run() error {
	cfg, apiKey, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))

	dataDir, err := config.DataDir()
	if err != nil {
		return err
	}
	store, err := storage.Open(dataDir, time.Duration(cfg.Canvas.DebounceMs)*time.Millisecond)
	if err != nil {
		return fmt.Errorf("open workspace store: %w", err)
	}
	defer store.Close()

	params := paramsFrom(cfg.Canvas)
	hist := canvas.NewHistory()
	ctrl := canvas.NewController(hist, params)
	mgr := session.NewManager(ctrl, store)

	client := ai.NewOpenAI(cfg.AI.BaseURL, apiKey, cfg.AI.ChatModel, cfg.AI.ImageModel,
		time.Duration(cfg.AI.TimeoutMs)*time.Millisecond)
	orch := ai.NewOrchestrator(client, mgr, ctrl)
	orch.MeasureSize = ai.MeasureImage
	// settles mutate the live history; they must share the event thread
	// with the pointer handlers
	orch.Dispatch = fyne.Do

	defer crash.Recover(dataDir, mgr.SaveNow)
	telemetry.Event("app_start", nil)

	fyneApp := app.NewWithID("pixelstudio")
	win := fyneApp.NewWindow("Pixel Studio")
	win.Resize(fyne.NewSize(1280, 840))

	mgr.Load(store.LoadWorkspace())

	bench := NewWorkbench(ctrl)
	chrome := buildChrome(win, bench, ctrl, mgr, orch, dataDir)
	bench.OnChanged = chrome.refresh
	orch.OnTranscriptChanged = func(string) { fyne.Do(chrome.refresh) }
	orch.OnComposerRestore = func(_, text string) { fyne.Do(func() { chrome.composer.SetText(text) }) }

	installKeys(win, bench, ctrl, chrome)

	win.SetContent(chrome.root)
	win.SetCloseIntercept(func() {
		if err := mgr.SaveNow(); err != nil {
			l.Error("final save failed", slog.Any("err", err))
		}
		store.Flush()
		win.Close()
	})
	chrome.refresh()
	win.ShowAndRun()
	return nil
}

func paramsFrom(c config.CanvasConfig) canvas.Params {
	p := canvas.DefaultParams()
	if c.ZoomMin > 0 {
		p.ZoomMin = c.ZoomMin
	}
	if c.ZoomMax > 0 {
		p.ZoomMax = c.ZoomMax
	}
	if c.WheelStepIn > 0 {
		p.WheelStepIn = c.WheelStepIn
	}
	if c.WheelStepOut > 0 {
		p.WheelStepOut = c.WheelStepOut
	}
	if c.GridCols > 0 {
		p.GridCols = c.GridCols
	}
	if c.GridRows > 0 {
		p.GridRows = c.GridRows
	}
	if c.Margin > 0 {
		p.Margin = c.Margin
	}
	return p
}

// chrome bundles the widgets around the workbench that need refreshing
// after engine state changes.
type chrome struct {
	root     fyne.CanvasObject
	bench    *Workbench
	ctrl     *canvas.Controller
	mgr      *session.Manager
	orch     *ai.Orchestrator
	zoom     *canvas.ZoomField
	zoomBox  *zoomEntry
	undoBtn  *widget.Button
	redoBtn  *widget.Button
	layers   *widget.List
	chat     *widget.List
	composer *widget.Entry
	sendBtn  *widget.Button
	tabs     *container.DocTabs
	syncing  bool
}

func buildChrome(win fyne.Window, bench *Workbench, ctrl *canvas.Controller, mgr *session.Manager, orch *ai.Orchestrator, dataDir string) *chrome {
	c := &chrome{bench: bench, ctrl: ctrl, mgr: mgr, orch: orch, zoom: &canvas.ZoomField{}}

	c.undoBtn = widget.NewButtonWithIcon("", theme.ContentUndoIcon(), func() {
		ctrl.Undo()
		c.refresh()
	})
	c.redoBtn = widget.NewButtonWithIcon("", theme.ContentRedoIcon(), func() {
		ctrl.Redo()
		c.refresh()
	})

	selectBtn := widget.NewButtonWithIcon("", theme.MailComposeIcon(), func() { ctrl.SetTool(canvas.ToolSelect) })
	panBtn := widget.NewButtonWithIcon("", theme.MoveUpIcon(), func() { ctrl.SetTool(canvas.ToolPan) })

	// direct percentage entry; typing shields the field from external sync
	c.zoomBox = newZoomEntry(c.zoom,
		func() float64 { return ctrl.Hist.Viewport().Zoom },
		func(z float64) {
			size := bench.Size()
			ctrl.SetZoomAt(z, float64(size.Width)/2, float64(size.Height)/2)
			c.refresh()
		})
	zoomIn := widget.NewButtonWithIcon("", theme.ZoomInIcon(), func() {
		size := bench.Size()
		ctrl.Wheel(1, float64(size.Width)/2, float64(size.Height)/2)
		c.refresh()
	})
	zoomOut := widget.NewButtonWithIcon("", theme.ZoomOutIcon(), func() {
		size := bench.Size()
		ctrl.Wheel(-1, float64(size.Width)/2, float64(size.Height)/2)
		c.refresh()
	})
	fitBtn := widget.NewButtonWithIcon("", theme.ZoomFitIcon(), func() { bench.Fit() })

	addImage := widget.NewButtonWithIcon("", theme.ContentAddIcon(), func() {
		dlg := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
			if err != nil || rc == nil {
				return
			}
			path := rc.URI().Path()
			_ = rc.Close()
			w, h, ok := ai.MeasureImage(path)
			if !ok {
				w, h = domain.DefaultItemWidth, domain.DefaultItemHeight
			}
			ctrl.AddImage(path, w, h)
			c.refresh()
		}, win)
		dlg.Show()
	})
	addText := widget.NewButton("Text", func() {
		entry := widget.NewEntry()
		dialog.ShowForm("Add text", "Add", "Cancel",
			[]*widget.FormItem{widget.NewFormItem("Text", entry)},
			func(ok bool) {
				if ok && entry.Text != "" {
					ctrl.AddText(entry.Text)
					c.refresh()
				}
			}, win)
	})
	deleteBtn := widget.NewButtonWithIcon("", theme.DeleteIcon(), func() {
		ctrl.DeleteSelected()
		c.refresh()
	})

	toolbar := container.NewHBox(
		selectBtn, panBtn, widget.NewSeparator(),
		c.undoBtn, c.redoBtn, widget.NewSeparator(),
		zoomOut, c.zoomBox, zoomIn, fitBtn, widget.NewSeparator(),
		addImage, addText, deleteBtn,
	)

	c.layers = c.buildLayerList(win, dataDir)
	c.chat = c.buildChatList()
	c.composer = widget.NewMultiLineEntry()
	c.composer.SetPlaceHolder("Describe the shot you need...")
	c.sendBtn = widget.NewButtonWithIcon("", theme.MailSendIcon(), func() { c.send() })
	cancelBtn := widget.NewButtonWithIcon("", theme.CancelIcon(), func() {
		if s := mgr.Active(); s != nil {
			orch.Cancel(s.ID)
		}
	})

	chatPanel := container.NewBorder(nil,
		container.NewBorder(nil, nil, nil, container.NewVBox(c.sendBtn, cancelBtn), c.composer),
		nil, nil, c.chat)

	c.tabs = container.NewDocTabs()
	c.tabs.CreateTab = func() *container.TabItem {
		s := mgr.Create("")
		return container.NewTabItem(s.Title, widget.NewLabel(""))
	}
	c.tabs.OnSelected = func(ti *container.TabItem) {
		if c.syncing {
			return
		}
		for i, item := range c.tabs.Items {
			if item == ti {
				open := mgr.OpenIDs()
				if i < len(open) {
					mgr.Switch(open[i])
				}
			}
		}
		c.refresh()
	}
	c.tabs.CloseIntercept = func(ti *container.TabItem) {
		for i, item := range c.tabs.Items {
			if item == ti {
				open := mgr.OpenIDs()
				if i < len(open) {
					mgr.Close(open[i])
				}
			}
		}
		c.refresh()
	}

	center := container.NewBorder(c.tabs, nil, nil, nil, bench)
	split := container.NewHSplit(center, container.NewVSplit(c.layers, chatPanel))
	split.SetOffset(0.72)

	c.root = container.NewBorder(toolbar, nil, nil, nil, split)
	return c
}

func (c *chrome) send() {
	s := c.mgr.Active()
	if s == nil || c.composer.Text == "" {
		return
	}
	text := c.composer.Text
	if err := c.orch.Send(s.ID, text); err != nil {
		return // busy; composer keeps the text
	}
	c.composer.SetText("")
	c.refresh()
}

func (c *chrome) buildChatList() *widget.List {
	return widget.NewList(
		func() int {
			if s := c.mgr.Active(); s != nil {
				return len(s.Messages)
			}
			return 0
		},
		func() fyne.CanvasObject {
			lbl := widget.NewLabel("")
			lbl.Wrapping = fyne.TextWrapWord
			return lbl
		},
		func(i widget.ListItemID, o fyne.CanvasObject) {
			s := c.mgr.Active()
			if s == nil || i >= len(s.Messages) {
				return
			}
			m := s.Messages[i]
			text := m.Content
			switch m.Status {
			case domain.StatusLoading:
				text = "..."
			case domain.StatusCancelled:
				text = "(cancelled)"
			}
			prefix := "AI: "
			if m.Role == domain.RoleUser {
				prefix = "You: "
			}
			o.(*widget.Label).SetText(prefix + text)
		},
	)
}

func (c *chrome) buildLayerList(win fyne.Window, dataDir string) *widget.List {
	// the layer panel shows items top-most first
	itemAt := func(i int) (domain.CanvasItem, bool) {
		items := c.ctrl.Hist.SceneRef().Items
		idx := len(items) - 1 - i
		if idx < 0 || idx >= len(items) {
			return domain.CanvasItem{}, false
		}
		return items[idx], true
	}
	return widget.NewList(
		func() int { return len(c.ctrl.Hist.SceneRef().Items) },
		func() fyne.CanvasObject {
			name := widget.NewLabel("")
			vis := widget.NewCheck("", nil)
			opacity := widget.NewSlider(0, 1)
			opacity.Step = 0.05
			up := widget.NewButtonWithIcon("", theme.MoveUpIcon(), nil)
			down := widget.NewButtonWithIcon("", theme.MoveDownIcon(), nil)
			menu := widget.NewButtonWithIcon("", theme.MoreVerticalIcon(), nil)
			return container.NewBorder(nil, opacity, vis, container.NewHBox(up, down, menu), name)
		},
		func(i widget.ListItemID, o fyne.CanvasObject) {
			it, ok := itemAt(i)
			if !ok {
				return
			}
			border := o.(*fyne.Container)
			name := border.Objects[0].(*widget.Label)
			opacity := border.Objects[1].(*widget.Slider)
			vis := border.Objects[2].(*widget.Check)
			btns := border.Objects[3].(*fyne.Container)
			up := btns.Objects[0].(*widget.Button)
			down := btns.Objects[1].(*widget.Button)
			menu := btns.Objects[2].(*widget.Button)

			label := it.Text
			if label == "" {
				label = filepath.Base(it.Src)
			}
			if c.orch.ItemBusy(it.ID) {
				label += " (working...)"
			}
			if e := c.orch.ItemError(it.ID); e != "" {
				label += " !"
			}
			name.SetText(label)

			vis.SetChecked(it.Visible)
			vis.OnChanged = func(v bool) {
				c.ctrl.SetItemVisible(it.ID, v)
				c.refresh()
			}
			opacity.Value = it.Opacity
			opacity.OnChangeEnded = func(v float64) {
				c.ctrl.SetItemOpacity(it.ID, v)
				c.refresh()
			}
			moveBy := func(delta int) {
				idx := c.ctrl.Hist.SceneRef().IndexOf(it.ID)
				c.ctrl.BeginLayerDrag(it.ID)
				c.ctrl.LayerDragTo(idx + delta)
				c.ctrl.EndLayerDrag()
				c.refresh()
			}
			up.OnTapped = func() { moveBy(1) }
			down.OnTapped = func() { moveBy(-1) }
			menu.OnTapped = func() { c.showActionDock(win, it, dataDir) }
		},
	)
}

// showActionDock pops the per-item action menu: AI edits, send-to-chat,
// download, delete.
func (c *chrome) showActionDock(win fyne.Window, it domain.CanvasItem, dataDir string) {
	runOp := func(op ai.EditOp) func() {
		return func() {
			if err := c.orch.RunItemAction(op, it.ID, ""); err != nil {
				dialog.ShowError(err, win)
			}
			c.refresh()
		}
	}
	items := []*fyne.MenuItem{
		fyne.NewMenuItem("Retouch", runOp(ai.OpRetouch)),
		fyne.NewMenuItem("Outpaint", runOp(ai.OpOutpaint)),
		fyne.NewMenuItem("Upscale", runOp(ai.OpUpscale)),
		fyne.NewMenuItem("Remove watermark", runOp(ai.OpUnwatermark)),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Send to chat", func() {
			if ref, ok := c.orch.SendToChat(it.ID); ok {
				c.composer.SetText(c.composer.Text + " " + ref)
			}
		}),
		fyne.NewMenuItem("Download", func() {
			go func() {
				dest, err := export.Download(context.Background(), it, filepath.Join(dataDir, "downloads"))
				fyne.Do(func() {
					if err != nil {
						dialog.ShowError(err, win)
						return
					}
					dialog.ShowInformation("Downloaded", dest, win)
				})
			}()
		}),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Delete", func() {
			c.ctrl.DeleteItem(it.ID)
			c.refresh()
		}),
	}
	pop := widget.NewPopUpMenu(fyne.NewMenu("", items...), win.Canvas())
	pop.ShowAtPosition(fyne.CurrentApp().Driver().AbsolutePositionForObject(c.layers))
}

// refresh synchronizes the chrome with the engine state.
func (c *chrome) refresh() {
	c.syncing = true
	defer func() { c.syncing = false }()

	if c.ctrl.Hist.CanUndo() {
		c.undoBtn.Enable()
	} else {
		c.undoBtn.Disable()
	}
	if c.ctrl.Hist.CanRedo() {
		c.redoBtn.Enable()
	} else {
		c.redoBtn.Disable()
	}
	// the zoom field follows the live zoom unless the user is typing in it
	if !c.zoom.Editing() {
		c.zoomBox.SetText(c.zoom.Text(c.ctrl.Hist.Viewport().Zoom))
	}
	c.syncTabs()
	c.layers.Refresh()
	c.chat.Refresh()
	c.bench.Refresh()
}

func (c *chrome) syncTabs() {
	open := c.mgr.OpenIDs()
	for len(c.tabs.Items) > len(open) {
		c.tabs.Remove(c.tabs.Items[len(c.tabs.Items)-1])
	}
	for i, id := range open {
		s := c.mgr.Find(id)
		if s == nil {
			continue
		}
		if i < len(c.tabs.Items) {
			c.tabs.Items[i].Text = s.Title
		} else {
			c.tabs.Append(container.NewTabItem(s.Title, widget.NewLabel("")))
		}
		if id == c.mgr.ActiveID() {
			c.tabs.SelectIndex(i)
		}
	}
	c.tabs.Refresh()
}

// zoomEntry binds the percentage entry to the ZoomField editing shield:
// gaining focus seeds the buffer from the live zoom, typing updates it,
// Enter or blur commits the typed value and Escape reverts it.
type zoomEntry struct {
	widget.Entry

	field *canvas.ZoomField
	zoom  func() float64
	apply func(zoom float64)
}

func newZoomEntry(field *canvas.ZoomField, zoom func() float64, apply func(float64)) *zoomEntry {
	e := &zoomEntry{field: field, zoom: zoom, apply: apply}
	e.ExtendBaseWidget(e)
	e.OnChanged = func(s string) { e.field.SetText(s) }
	e.OnSubmitted = func(string) { e.commit() }
	return e
}

func (e *zoomEntry) FocusGained() {
	e.field.Focus(e.zoom())
	e.Entry.FocusGained()
}

func (e *zoomEntry) FocusLost() {
	e.Entry.FocusLost()
	e.commit()
}

func (e *zoomEntry) TypedKey(ev *fyne.KeyEvent) {
	if ev.Name == fyne.KeyEscape {
		e.field.Escape()
		e.SetText(e.field.Text(e.zoom()))
		return
	}
	e.Entry.TypedKey(ev)
}

// commit applies the typed percentage, or reverts the display when the
// buffer was not a usable number.
func (e *zoomEntry) commit() {
	if z, ok := e.field.Commit(); ok {
		e.apply(z)
		return
	}
	e.SetText(e.field.Text(e.zoom()))
}

// installKeys wires undo/redo shortcuts and the hold-space-to-pan mode.
func installKeys(win fyne.Window, bench *Workbench, ctrl *canvas.Controller, c *chrome) {
	win.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierControl}, func(fyne.Shortcut) {
		ctrl.Undo()
		c.refresh()
	})
	win.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: fyne.KeyModifierControl}, func(fyne.Shortcut) {
		ctrl.Redo()
		c.refresh()
	})

	if dc, ok := win.Canvas().(desktop.Canvas); ok {
		dc.SetOnKeyDown(func(e *fyne.KeyEvent) {
			if e.Name == fyne.KeySpace {
				textFocused := win.Canvas().Focused() != nil
				ctrl.HoldPanStart(bench.Hovered(), textFocused)
			}
		})
		dc.SetOnKeyUp(func(e *fyne.KeyEvent) {
			if e.Name == fyne.KeySpace {
				ctrl.HoldPanEnd()
				c.refresh()
			}
		})
	}
}

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
	"errors"
	"image"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"visionboard/internal/board"
	"visionboard/internal/domain"
	"visionboard/internal/editor"
	"visionboard/internal/export"
	"visionboard/internal/gesture"
	"visionboard/internal/imagegen"
	applog "visionboard/internal/log"
	"visionboard/internal/vector"
)

const (
	prefWidth     = "window.width"
	prefHeight    = "window.height"
	prefExportDir = "export.dir"
)

// Run opens the viewer window and blocks until it is closed or ctx ends.
func Run(ctx context.Context, opts Options) error {
	if opts.Session == nil {
		return errors.New("ui needs a session")
	}
	s := opts.Session
	l := applog.OrDefault(opts.Logger, "ui")
	l.Info("starting viewer")

	a := app.NewWithID("dev.visionboard")
	w := a.NewWindow("Vision Board")
	prefs := a.Preferences()
	winW := max(prefs.IntWithFallback(prefWidth, 1280), 800)
	winH := max(prefs.IntWithFallback(prefHeight, 800), 600)
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	exportDir := opts.ExportDir
	if exportDir == "" {
		exportDir = prefs.StringWithFallback(prefExportDir, ".")
	}

	status := widget.NewLabel("Ready")
	bc := NewBoardCanvas(s, l)

	if opts.Alerts != nil {
		opts.Alerts.Attach(func(msg string) {
			fyne.Do(func() { dialog.ShowInformation("Vision Board", msg, w) })
		})
	}

	prompt := widget.NewEntry()
	prompt.SetPlaceHolder("Describe an image…")
	var genBtn, editBtn *widget.Button
	runAsync := func(btn *widget.Button, label string, fn func(context.Context) error) {
		btn.Disable()
		status.SetText(label + "…")
		go func() {
			err := fn(ctx)
			fyne.Do(func() {
				btn.Enable()
				switch {
				case err == nil:
					status.SetText("Ready")
				case errors.Is(err, editor.ErrEmptyPrompt), errors.Is(err, editor.ErrNoImageSelected), errors.Is(err, editor.ErrBusy):
					status.SetText(err.Error())
				default:
					// the session raised an alert already
					status.SetText(label + " failed")
				}
			})
		}()
	}
	genBtn = widget.NewButton("Generate", func() {
		p := prompt.Text
		runAsync(genBtn, "Generating", func(ctx context.Context) error {
			_, err := s.Generate(ctx, p)
			if err == nil {
				fyne.Do(func() { prompt.SetText("") })
			}
			return err
		})
	})
	editBtn = widget.NewButton("Edit selected", func() {
		p := prompt.Text
		runAsync(editBtn, "Editing", func(ctx context.Context) error {
			_, err := s.EditSelected(ctx, p)
			return err
		})
	})

	sticker := widget.NewSelect(domain.StickerKeys(), func(key string) {
		if key == "" {
			return
		}
		if _, err := s.AddSticker(key); err != nil {
			dialog.ShowError(err, w)
		}
	})
	sticker.PlaceHolder = "Add sticker"

	addImage := widget.NewButton("Add image", func() {
		dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
			if err != nil || r == nil {
				return
			}
			defer func() { _ = r.Close() }()
			data, err := io.ReadAll(r)
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if _, err := s.AddImage(imagegen.EncodeDataURI(http.DetectContentType(data), data)); err != nil {
				dialog.ShowError(err, w)
			}
		}, w).Show()
	})

	withSelected := func(fn func(id string) error) func() {
		return func() {
			id := s.Board().Selected()
			if id == "" {
				status.SetText("Nothing selected")
				return
			}
			if err := fn(id); err != nil {
				dialog.ShowError(err, w)
			}
		}
	}

	exportAs := func(f export.Format) func() {
		return func() {
			path, err := s.ExportFile(ctx, exportDir, f)
			if err != nil {
				status.SetText("Export failed")
				return
			}
			prefs.SetString(prefExportDir, exportDir)
			status.SetText("Saved " + path)
		}
	}

	toolbar := container.NewHBox(
		widget.NewButton("Add text", func() { _, _ = s.AddText("") }),
		sticker,
		addImage,
		widget.NewSeparator(),
		widget.NewButton("Front", withSelected(func(id string) error { _, err := s.BringToFront(id); return err })),
		widget.NewButton("Rotate", withSelected(func(id string) error {
			it, _ := s.Board().Item(id)
			_, err := s.Rotate(id, it.Rotation+15)
			return err
		})),
		widget.NewButton("Delete", withSelected(s.Delete)),
		widget.NewButton("Shuffle", s.Shuffle),
		widget.NewSeparator(),
		widget.NewButton("PNG", exportAs(export.FormatPNG)),
		widget.NewButton("PDF", exportAs(export.FormatPDF)),
		widget.NewButton("SVG", exportAs(export.FormatSVG)),
	)
	promptBar := container.NewBorder(nil, nil, nil, container.NewHBox(genBtn, editBtn), prompt)

	bc.OnDoubleTap = func(id string, ed gesture.TextEdit) {
		entry := widget.NewMultiLineEntry()
		entry.SetText(ed.Buffer)
		dialog.ShowForm("Edit text", "Done", "Cancel", []*widget.FormItem{widget.NewFormItem("", entry)}, func(ok bool) {
			if ok {
				if err := s.TextInput(entry.Text); err != nil {
					l.Warn("text input", slog.String("item", id), slog.Any("err", err))
				}
			}
			_ = s.Blur()
		}, w)
	}

	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyDelete, fyne.KeyBackspace:
			withSelected(s.Delete)()
		case fyne.KeyEscape:
			s.Cancel()
		}
	})

	w.SetContent(container.NewBorder(container.NewVBox(toolbar, promptBar), status, nil, nil, bc))
	w.SetOnClosed(func() {
		sz := w.Canvas().Size()
		prefs.SetInt(prefWidth, int(sz.Width))
		prefs.SetInt(prefHeight, int(sz.Height))
		bc.Close()
	})

	go func() {
		<-ctx.Done()
		fyne.Do(a.Quit)
	}()
	w.ShowAndRun()
	l.Info("viewer closed")
	return nil
}

// BoardCanvas draws the session's board and feeds mouse input into it.
type BoardCanvas struct {
	widget.BaseWidget

	s      *editor.Session
	log    *slog.Logger
	raster *canvas.Raster
	render export.Renderer

	mu     sync.Mutex
	size   fyne.Size
	down   bool
	button gesture.Button
	stop   func()

	OnDoubleTap func(id string, ed gesture.TextEdit)
}

func NewBoardCanvas(s *editor.Session, l *slog.Logger) *BoardCanvas {
	bc := &BoardCanvas{s: s, log: l}
	bc.raster = canvas.NewRaster(bc.draw)
	refresh := func() { fyne.Do(bc.raster.Refresh) }
	sub := s.Board().Subscribe(func(board.Change) { refresh() })
	cancel := s.SubscribeTransform(func(vector.Transform) { refresh() })
	bc.stop = func() {
		sub.Cancel()
		cancel()
	}
	bc.ExtendBaseWidget(bc)
	return bc
}

// Close detaches the canvas from the session.
func (bc *BoardCanvas) Close() {
	if bc.stop != nil {
		bc.stop()
		bc.stop = nil
	}
}

// draw renders at logical size; fyne scales the raster to the pixel size.
func (bc *BoardCanvas) draw(_, _ int) image.Image {
	bc.mu.Lock()
	sz := bc.size
	bc.mu.Unlock()
	img, err := RenderFrame(context.Background(), bc.s, bc.render, export.BoardBackground, int(sz.Width), int(sz.Height))
	if err != nil {
		bc.log.Warn("render frame", slog.Any("err", err))
	}
	return img
}

func (bc *BoardCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(bc.raster)
}

func (bc *BoardCanvas) MinSize() fyne.Size { return fyne.NewSize(400, 300) }

func (bc *BoardCanvas) Resize(size fyne.Size) {
	bc.mu.Lock()
	bc.size = size
	bc.mu.Unlock()
	bc.s.SetScreen(vector.Size{W: float64(size.Width), H: float64(size.Height)})
	bc.BaseWidget.Resize(size)
}

func toButton(b desktop.MouseButton) gesture.Button {
	switch b {
	case desktop.MouseButtonSecondary:
		return gesture.ButtonSecondary
	case desktop.MouseButtonTertiary:
		return gesture.ButtonMiddle
	}
	return gesture.ButtonPrimary
}

func (bc *BoardCanvas) MouseDown(e *desktop.MouseEvent) {
	bc.down, bc.button = true, toButton(e.Button)
	bc.s.Pointer(MouseEvent(gesture.PhaseStart, bc.button, e.Position.X, e.Position.Y))
}

func (bc *BoardCanvas) MouseUp(e *desktop.MouseEvent) {
	if !bc.down {
		return
	}
	bc.down = false
	bc.s.Pointer(MouseEvent(gesture.PhaseEnd, bc.button, e.Position.X, e.Position.Y))
}

func (bc *BoardCanvas) MouseIn(*desktop.MouseEvent) {}

func (bc *BoardCanvas) MouseMoved(e *desktop.MouseEvent) {
	if bc.down {
		bc.s.Pointer(MouseEvent(gesture.PhaseMove, bc.button, e.Position.X, e.Position.Y))
	}
}

// MouseOut keeps the gesture alive: the window keeps delivering moves while
// the button is held, like the browser does after pointer capture.
func (bc *BoardCanvas) MouseOut() {}

func (bc *BoardCanvas) Scrolled(e *fyne.ScrollEvent) {
	bc.s.Wheel(vector.P(float64(e.Position.X), float64(e.Position.Y)), WheelDelta(e.Scrolled.DY))
}

func (bc *BoardCanvas) DoubleTapped(e *fyne.PointEvent) {
	id, ed, err := bc.s.DoubleTap(vector.P(float64(e.Position.X), float64(e.Position.Y)))
	if err != nil {
		bc.log.Debug("double tap", slog.Any("err", err))
		return
	}
	if bc.OnDoubleTap != nil {
		bc.OnDoubleTap(id, ed)
	}
}

var (
	_ desktop.Mouseable   = (*BoardCanvas)(nil)
	_ desktop.Hoverable   = (*BoardCanvas)(nil)
	_ fyne.Scrollable     = (*BoardCanvas)(nil)
	_ fyne.DoubleTappable = (*BoardCanvas)(nil)
)

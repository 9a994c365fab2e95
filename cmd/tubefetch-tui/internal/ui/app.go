// Package ui provides the terminal user interface for tubefetch.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"tubefetch/internal/config"
	"tubefetch/internal/entity"
	"tubefetch/internal/service"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const (
	labelURL        = "URL"
	labelResolution = "Resolution"

	infoTimeout = 2 * time.Minute
)

// App is the main TUI application.
type App struct {
	app   *tview.Application
	cfg   *config.Config
	log   *slog.Logger
	video service.Video
	ctx   context.Context

	// UI components
	mainFlex     *tview.Flex
	header       *tview.TextView
	footer       *tview.TextView
	statusBar    *tview.TextView
	form         *tview.Form
	urlInput     *tview.InputField
	resolution   *tview.DropDown
	infoView     *tview.TextView
	formatsView  *tview.TextView
	progressView *tview.TextView

	// State
	mu     sync.Mutex
	busy   bool
	cancel context.CancelFunc // cancels the running fetch or download
}

// NewApp creates the TUI on top of the video service. Work started from the UI stops with ctx.
func NewApp(ctx context.Context, log *slog.Logger, cfg *config.Config, video service.Video) *App {
	a := &App{
		app:   tview.NewApplication(),
		cfg:   cfg,
		log:   log.With(slog.String("package", "ui")),
		video: video,
		ctx:   ctx,
	}

	a.setupUI()

	return a
}

// setupUI initializes all UI components.
func (a *App) setupUI() {
	a.header = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.header.SetBackgroundColor(tcell.ColorDarkBlue)
	a.header.SetText(fmt.Sprintf("\n[white::b]tubefetch[white] | Downloads: [green]%s", tview.Escape(a.cfg.Dir.Downloads)))

	a.footer = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[yellow]Tab[white]:Next field [yellow]Enter[white]:Select [yellow]Esc[white]:Cancel [yellow]Ctrl+C[white]:Quit")
	a.footer.SetBackgroundColor(tcell.ColorDarkBlue)

	a.statusBar = tview.NewTextView().
		SetDynamicColors(true)
	a.statusBar.SetBackgroundColor(tcell.ColorDarkGreen)

	options := make([]string, 0, len(entity.Resolutions))
	for _, r := range entity.Resolutions {
		options = append(options, r.String())
	}

	initial := max(slices.Index(entity.Resolutions, a.cfg.Download.Resolution), 0)

	a.form = tview.NewForm().
		AddInputField(labelURL, "", 0, nil, nil).
		AddDropDown(labelResolution, options, initial, nil).
		AddButton("Fetch info", a.onFetch).
		AddButton("Download", a.onDownload).
		AddButton("Quit", a.Stop)
	a.form.SetBorder(true).SetTitle(" Video ")

	a.urlInput, _ = a.form.GetFormItemByLabel(labelURL).(*tview.InputField)
	a.resolution, _ = a.form.GetFormItemByLabel(labelResolution).(*tview.DropDown)

	a.infoView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	a.infoView.SetBorder(true).SetTitle(" Info ")

	a.formatsView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	a.formatsView.SetBorder(true).SetTitle(" Available mp4 formats ")

	a.progressView = tview.NewTextView().
		SetDynamicColors(true)
	a.progressView.SetBorder(true).SetTitle(" Progress ")

	topRow := tview.NewFlex().
		AddItem(a.form, 0, 1, true).
		AddItem(a.infoView, 0, 1, false)

	a.mainFlex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.header, 3, 0, false).
		AddItem(topRow, 0, 2, true).
		AddItem(a.formatsView, 0, 1, false).
		AddItem(a.progressView, 6, 0, false).
		AddItem(a.statusBar, 1, 0, false).
		AddItem(a.footer, 1, 0, false)

	a.app.SetInputCapture(a.handleGlobalKeys)
	a.app.SetRoot(a.mainFlex, true).SetFocus(a.form)
}

// handleGlobalKeys handles global keyboard shortcuts.
func (a *App) handleGlobalKeys(event *tcell.EventKey) *tcell.EventKey {
	if event.Key() == tcell.KeyEscape && a.cancelRunning() {
		a.setStatus("[yellow]Canceling...")

		return nil
	}

	return event
}

// Run starts the TUI application.
func (a *App) Run() error {
	a.setStatus("Paste a video URL and fetch its info")

	return a.app.Run()
}

// Stop cancels running work and stops the TUI application.
func (a *App) Stop() {
	a.cancelRunning()
	a.app.Stop()
}

func (a *App) onFetch() {
	url := a.urlInput.GetText()

	ctx, ok := a.begin(infoTimeout)
	if !ok {
		return
	}

	a.setStatus("Fetching info...")

	go func() {
		defer a.end()

		info, err := a.video.Info(ctx, url)
		if err != nil {
			a.log.ErrorContext(ctx, "fetch info", slog.Any("error", err))
			a.app.QueueUpdateDraw(func() {
				a.infoView.SetText(renderError(err))
				a.formatsView.Clear()
			})
			a.setStatus("[red]Could not load video info")

			return
		}

		a.app.QueueUpdateDraw(func() {
			a.infoView.SetText(renderInfo(info))
			a.formatsView.SetText(renderFormats(info))
		})
		a.setStatus("[green]Info loaded")
	}()
}

func (a *App) onDownload() {
	url := a.urlInput.GetText()
	_, resolution := a.resolution.GetCurrentOption()

	ctx, ok := a.begin(a.cfg.HTTP.DownloadTimeout)
	if !ok {
		return
	}

	a.setStatus(fmt.Sprintf("Downloading at up to %s... (Esc cancels)", resolution))

	sink := entity.SinkFunc(func(ev entity.ProgressEvent) {
		text := renderProgress(ev)
		a.app.QueueUpdateDraw(func() { a.progressView.SetText(text) })
	})

	go func() {
		defer a.end()

		dl, err := a.video.Download(ctx, url, resolution, sink)
		if err != nil {
			a.log.ErrorContext(ctx, "download", slog.Any("error", err))
			a.app.QueueUpdateDraw(func() { a.progressView.SetText(renderError(err)) })
			a.setStatus("[red]Download failed")

			return
		}

		a.app.QueueUpdateDraw(func() { a.progressView.SetText(renderDownload(dl, a.cfg.Dir.Downloads)) })
		a.setStatus("[green]Download finished")
	}()
}

// begin claims the single work slot. It fails while a fetch or download is running.
func (a *App) begin(timeout time.Duration) (context.Context, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.busy {
		a.setStatus("[yellow]Busy, press Esc to cancel the current task")

		return nil, false
	}

	if timeout <= 0 {
		timeout = infoTimeout
	}

	ctx, cancel := context.WithTimeout(a.ctx, timeout)
	a.busy = true
	a.cancel = cancel

	return ctx, true
}

func (a *App) end() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		a.cancel()
	}

	a.busy = false
	a.cancel = nil
}

func (a *App) cancelRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel == nil {
		return false
	}

	a.cancel()

	return true
}

// setStatus queues a status bar update. Safe from any goroutine.
func (a *App) setStatus(msg string) {
	text := fmt.Sprintf(" %s | %s", msg, time.Now().Format("15:04:05"))

	a.app.QueueUpdateDraw(func() { a.statusBar.SetText(text) })
}

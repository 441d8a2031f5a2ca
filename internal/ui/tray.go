// Package ui runs the system tray: status display, the native file picker
// entry point and shortcuts into the analysis flow.
package ui

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/getlantern/systray"
	"github.com/pkg/browser"
	"github.com/sqweek/dialog"

	"github.com/sleuth/sleuth-agent/internal/intake"
	"github.com/sleuth/sleuth-agent/internal/session"
)

//go:embed icon.png
var iconBytes []byte

type Tray struct {
	session *session.Orchestrator
	logger  *slog.Logger
	siteURL string

	statusItem  *systray.MenuItem
	fileItem    *systray.MenuItem
	analyzeItem *systray.MenuItem
	searchItem  *systray.MenuItem

	mu    sync.Mutex
	ready bool
	last  session.Snapshot

	pickFile func() (string, error)
	openURL  func(string) error
	onQuit   func()
}

type TrayConfig struct {
	Session *session.Orchestrator
	Logger  *slog.Logger
	// SiteURL is opened by "Open Analysis Site"; empty hides the item.
	SiteURL string
	OnQuit  func()
}

func NewTray(cfg TrayConfig) *Tray {
	t := &Tray{
		session:  cfg.Session,
		logger:   cfg.Logger,
		siteURL:  cfg.SiteURL,
		pickFile: chooseVideo,
		openURL:  browser.OpenURL,
		onQuit:   cfg.OnQuit,
	}
	cfg.Session.OnChange(t.update)
	return t
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Sleuth")
	systray.SetTooltip("Sleuth Agent")

	t.statusItem = systray.AddMenuItem("Status: Idle", "Current agent status")
	t.statusItem.Disable()

	t.fileItem = systray.AddMenuItem("No video selected", "Staged video")
	t.fileItem.Disable()

	systray.AddSeparator()

	chooseItem := systray.AddMenuItem("Choose Video...", "Select a video to analyze")
	t.analyzeItem = systray.AddMenuItem("Analyze", "Upload the selected video for analysis")
	t.analyzeItem.Disable()
	t.searchItem = systray.AddMenuItem("Search First Frame", "Reverse image search the first extracted frame")
	t.searchItem.Disable()

	siteItem := systray.AddMenuItem("Open Analysis Site", "Open the analysis service in a browser")
	if t.siteURL == "" {
		siteItem.Hide()
	}

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Sleuth Agent")

	t.mu.Lock()
	t.ready = true
	t.mu.Unlock()
	t.update(t.session.Snapshot())

	go func() {
		for {
			select {
			case <-chooseItem.ClickedCh:
				t.handleChoose()
			case <-t.analyzeItem.ClickedCh:
				t.handleAnalyze()
			case <-t.searchItem.ClickedCh:
				t.handleSearch()
			case <-siteItem.ClickedCh:
				t.open(t.siteURL)
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

// update mirrors a session snapshot into the menu.
func (t *Tray) update(snap session.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = snap
	if !t.ready {
		return
	}

	t.statusItem.SetTitle(statusTitle(snap))
	t.fileItem.SetTitle(fileTitle(snap))

	if snap.SubmitEnabled {
		t.analyzeItem.Enable()
	} else {
		t.analyzeItem.Disable()
	}

	if firstSearchURL(snap) != "" {
		t.searchItem.Enable()
	} else {
		t.searchItem.Disable()
	}
}

func (t *Tray) handleChoose() {
	path, err := t.pickFile()
	if errors.Is(err, dialog.ErrCancelled) {
		return
	}
	if err != nil {
		t.logger.Error("file picker failed", "error", err)
		return
	}

	candidate, err := intake.CandidateFromPath(path)
	if err != nil {
		t.logger.Warn("picked file unreadable", "error", err)
		return
	}
	if _, err := t.session.Stage(intake.OriginPicker, []intake.Candidate{candidate}); err != nil {
		t.logger.Info("picked file not staged", "error", err)
	}
}

func (t *Tray) handleAnalyze() {
	if _, err := t.session.SubmitAsync(context.Background()); err != nil {
		t.logger.Info("analyze not started", "error", err)
	}
}

func (t *Tray) handleSearch() {
	t.mu.Lock()
	u := firstSearchURL(t.last)
	t.mu.Unlock()
	t.open(u)
}

func (t *Tray) open(u string) {
	if u == "" {
		return
	}
	if err := t.openURL(u); err != nil {
		t.logger.Error("failed to open browser", "url", u, "error", err)
	}
}

func (t *Tray) Quit() {
	systray.Quit()
}

func chooseVideo() (string, error) {
	return dialog.File().
		Filter("Video files", intake.VideoExtensions()...).
		Title("Choose a video to analyze").
		Load()
}

func statusTitle(snap session.Snapshot) string {
	switch snap.Phase {
	case session.PhaseStaged:
		return "Status: Ready"
	case session.PhaseInFlight:
		return "Status: Analyzing..."
	case session.PhaseSucceeded:
		if snap.Results != nil {
			return fmt.Sprintf("Status: Done (%s)", snap.Results.Score.CircleText)
		}
		return "Status: Done"
	case session.PhaseFailed:
		return "Status: Failed"
	default:
		return "Status: Idle"
	}
}

func fileTitle(snap session.Snapshot) string {
	if snap.Staged == nil {
		return "No video selected"
	}
	return snap.Staged.Name
}

func firstSearchURL(snap session.Snapshot) string {
	if snap.Results == nil || len(snap.Results.Gallery) == 0 {
		return ""
	}
	links := snap.Results.Gallery[0].Links
	if len(links) == 0 {
		return ""
	}
	return links[0].URL
}

// Package capture takes screenshots of camera pages through a remote
// WebDriver hub (Selenoid).
//
// A capture opens the camera link in a fresh browser session, starts the
// video by clicking its play trigger, waits until the round deadline and saves
// a screenshot to the raw path. Each call owns its session, so concurrent
// workers share nothing.
package capture

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/firefox"

	"github.com/raoulx24/camrelay/internal/clock"
	"github.com/raoulx24/camrelay/internal/config"
	"github.com/raoulx24/camrelay/internal/errs"
	"github.com/raoulx24/camrelay/internal/fs"
	"github.com/raoulx24/camrelay/internal/logging"
	"github.com/raoulx24/camrelay/internal/registry"
)

// Request describes one screenshot.
type Request struct {
	Camera registry.Camera
	// Deadline is the instant the screenshot should be taken. Zero means as
	// soon as the video is playing.
	Deadline time.Time
	RawPath  string
}

// Capturer produces a raw screenshot on disk and returns its path.
type Capturer interface {
	Capture(ctx context.Context, req Request) (string, error)
}

// SessionFunc opens a WebDriver session. selenium.NewRemote in production.
type SessionFunc func(caps selenium.Capabilities, endpoint string) (selenium.WebDriver, error)

// Options tunes the browser session and the fixed waits around playback.
type Options struct {
	Endpoint    string
	Browser     string
	EnableVNC   bool
	LoadWait    time.Duration // page load before looking for the trigger
	TriggerWait time.Duration // between locating the trigger and clicking it
	PlayWait    time.Duration // after playback starts
}

// OptionsFromConfig maps the capture section onto Options.
func OptionsFromConfig(cfg config.CaptureConfig) Options {
	return Options{
		Endpoint:    cfg.Endpoint,
		Browser:     cfg.Browser,
		EnableVNC:   cfg.EnableVNC,
		LoadWait:    cfg.LoadWait,
		TriggerWait: cfg.TriggerWait,
		PlayWait:    cfg.PlayWait,
	}
}

// WebDriver is the Selenoid-backed Capturer.
type WebDriver struct {
	opts       Options
	clock      clock.Clock
	fs         fs.FS
	log        logging.Logger
	newSession SessionFunc
}

// NewWebDriver creates a capturer. A nil filesystem uses the OS filesystem.
func NewWebDriver(opts Options, clk clock.Clock, filesystem fs.FS, log logging.Logger) *WebDriver {
	if filesystem == nil {
		filesystem = fs.New()
	}
	return &WebDriver{
		opts:       opts,
		clock:      clk,
		fs:         filesystem,
		log:        log.With("component", "capture"),
		newSession: selenium.NewRemote,
	}
}

// WithSessionFunc replaces how sessions are opened.
func (w *WebDriver) WithSessionFunc(fn SessionFunc) *WebDriver {
	w.newSession = fn
	return w
}

// Capture implements Capturer.
func (w *WebDriver) Capture(ctx context.Context, req Request) (string, error) {
	cam := req.Camera
	log := w.log.With("camera", cam.ID)
	log.Info("starting capture", "deadline", req.Deadline, "now", w.clock.Now())

	wd, err := w.newSession(w.capabilities(), w.opts.Endpoint)
	if err != nil {
		return "", errs.Wrap(errs.ErrCapture, "capture", "session", cam.ID, err)
	}
	defer func() {
		if err := wd.Quit(); err != nil {
			log.Warn("closing browser session failed", "error", err)
		}
	}()

	if err := wd.Get(cam.Link); err != nil {
		return "", errs.Wrap(errs.ErrCapture, "capture", "open", cam.Link, err)
	}
	if err := wd.MaximizeWindow(""); err != nil {
		log.Debug("maximize window failed", "error", err)
	}
	if err := w.clock.Sleep(ctx, w.opts.LoadWait); err != nil {
		return "", err
	}

	if err := w.play(ctx, wd, cam, log); err != nil {
		return "", err
	}
	if err := w.clock.Sleep(ctx, w.opts.PlayWait); err != nil {
		return "", err
	}

	if !req.Deadline.IsZero() {
		if err := w.clock.Sleep(ctx, clock.Interval(w.clock.Now(), req.Deadline)); err != nil {
			return "", err
		}
	}

	png, err := wd.Screenshot()
	if err != nil {
		return "", errs.Wrap(errs.ErrCapture, "capture", "screenshot", cam.ID, err)
	}
	if err := w.fs.WriteFile(ctx, req.RawPath, png); err != nil {
		return "", errs.Wrap(errs.ErrCapture, "capture", "write", req.RawPath, err)
	}
	log.Info("screenshot saved", "path", req.RawPath, "bytes", len(png))
	return req.RawPath, nil
}

// play locates the trigger (one retry) and clicks it, falling back to a
// script-dispatched click when the native click is intercepted.
func (w *WebDriver) play(ctx context.Context, wd selenium.WebDriver, cam registry.Camera, log logging.Logger) error {
	by, err := byKind(cam.Trigger.Kind)
	if err != nil {
		return errs.Wrap(errs.ErrCapture, "capture", "trigger", cam.ID, err)
	}

	elem, err := wd.FindElement(by, cam.Trigger.Selector)
	if err != nil {
		log.Warn("play trigger not found, retrying", "selector", cam.Trigger.Selector, "error", err)
		if err := w.clock.Sleep(ctx, w.opts.TriggerWait); err != nil {
			return err
		}
		elem, err = wd.FindElement(by, cam.Trigger.Selector)
		if err != nil {
			return errs.Wrap(errs.ErrCapture, "capture", "find trigger", cam.Trigger.Selector, err)
		}
	}

	if err := w.clock.Sleep(ctx, w.opts.TriggerWait); err != nil {
		return err
	}
	if err := elem.Click(); err != nil {
		log.Warn("click failed, dispatching script click", "error", err)
		if _, err := wd.ExecuteScript("arguments[0].click();", []interface{}{elem}); err != nil {
			return errs.Wrap(errs.ErrCapture, "capture", "click trigger", cam.Trigger.Selector, err)
		}
	}
	return nil
}

func (w *WebDriver) capabilities() selenium.Capabilities {
	browser := strings.ToLower(strings.TrimSpace(w.opts.Browser))
	if browser == "" {
		browser = "firefox"
	}
	caps := selenium.Capabilities{"browserName": browser}
	if browser == "firefox" {
		caps.AddFirefox(firefox.Capabilities{
			Prefs: map[string]interface{}{
				"media.videocontrols.picture-in-picture.enabled": false,
			},
		})
	}
	if w.opts.EnableVNC {
		caps["selenoid:options"] = map[string]interface{}{"enableVNC": true}
	}
	return caps
}

var locators = map[string]string{
	"ID":                selenium.ByID,
	"XPATH":             selenium.ByXPATH,
	"CSS_SELECTOR":      selenium.ByCSSSelector,
	"CSS":               selenium.ByCSSSelector,
	"NAME":              selenium.ByName,
	"CLASS_NAME":        selenium.ByClassName,
	"TAG_NAME":          selenium.ByTagName,
	"LINK_TEXT":         selenium.ByLinkText,
	"PARTIAL_LINK_TEXT": selenium.ByPartialLinkText,
}

func byKind(kind string) (string, error) {
	by, ok := locators[strings.ToUpper(strings.TrimSpace(kind))]
	if !ok {
		return "", fmt.Errorf("unsupported element type %q", kind)
	}
	return by, nil
}

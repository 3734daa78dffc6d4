// Package classify provides activity.Classifier implementations.
package classify

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/actionsum/sac/pkg/activity"
	"github.com/actionsum/sac/pkg/window"
)

const (
	LabelIdle   = "idle"
	LabelLocked = "locked"
)

// Rule maps a focused window to a label. A rule matches when the
// application (class, instance or process name) equals one of Apps, or the
// window title contains one of Titles. Matching is case-insensitive.
type Rule struct {
	Label  string   `mapstructure:"label" json:"label"`
	Apps   []string `mapstructure:"apps" json:"apps"`
	Titles []string `mapstructure:"titles" json:"titles"`
}

// Title rules come first so a browser tab playing video is not "browsing".
var DefaultRules = []Rule{
	{Label: "watching video", Titles: []string{"youtube", "netflix", "twitch", "prime video", "vimeo"}, Apps: []string{"vlc", "mpv", "totem"}},
	{Label: "meeting", Titles: []string{"google meet", "zoom meeting"}, Apps: []string{"zoom", "teams", "microsoft teams"}},
	{Label: "email", Titles: []string{"gmail", "inbox", "outlook"}, Apps: []string{"thunderbird", "evolution", "geary"}},
	{Label: "chatting", Apps: []string{"slack", "discord", "telegramdesktop", "signal", "element", "whatsapp"}},
	{Label: "coding", Titles: []string{"github.com", "gitlab"}, Apps: []string{"code", "code-oss", "vscodium", "jetbrains-goland", "jetbrains-idea", "jetbrains-pycharm", "emacs", "gvim", "neovide", "zed", "sublime_text"}},
	{Label: "terminal", Apps: []string{"kitty", "alacritty", "gnome-terminal-server", "konsole", "xterm", "wezterm", "foot", "tilix"}},
	{Label: "browsing", Apps: []string{"firefox", "navigator", "google-chrome", "chromium", "brave-browser", "vivaldi-stable"}},
	{Label: "documents", Apps: []string{"libreoffice", "soffice", "evince", "okular", "obsidian"}},
}

// WindowClassifier labels activity from the focused window and the idle
// state of the display, ignoring the captured frames.
type WindowClassifier struct {
	detector window.Detector
	rules    []Rule
}

// NewWindow builds a classifier that checks custom rules before DefaultRules.
func NewWindow(detector window.Detector, custom ...Rule) *WindowClassifier {
	rules := make([]Rule, 0, len(custom)+len(DefaultRules))
	rules = append(rules, custom...)
	rules = append(rules, DefaultRules...)
	return &WindowClassifier{detector: detector, rules: rules}
}

// Classify implements activity.Classifier.
func (c *WindowClassifier) Classify(ctx context.Context, _ []activity.Frame) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	idle, err := c.detector.GetIdleInfo()
	if err != nil {
		return "", errors.Wrap(err, "failed to get idle info")
	}
	if idle != nil {
		if idle.IsLocked {
			return LabelLocked, nil
		}
		if idle.IsIdle {
			return LabelIdle, nil
		}
	}

	info, err := c.detector.GetFocusedWindow()
	if err != nil {
		return "", errors.Wrap(err, "failed to get focused window")
	}
	if info == nil {
		return "", errors.New("no focused window")
	}
	return c.Match(info)
}

// Match returns the label of the first matching rule, or the lowercased
// application name when no rule matches.
func (c *WindowClassifier) Match(info *window.WindowInfo) (string, error) {
	names := []string{
		strings.ToLower(info.AppName),
		strings.ToLower(info.Instance),
		strings.ToLower(info.ProcessName),
	}
	title := strings.ToLower(info.WindowTitle)

	for _, r := range c.rules {
		if r.Label == "" {
			continue
		}
		for _, t := range r.Titles {
			if t != "" && strings.Contains(title, strings.ToLower(t)) {
				return r.Label, nil
			}
		}
		for _, app := range r.Apps {
			app = strings.ToLower(app)
			for _, n := range names {
				if n != "" && n == app {
					return r.Label, nil
				}
			}
		}
	}

	for _, n := range names {
		if n != "" && n != "unknown" {
			return n, nil
		}
	}
	return "", errors.New("focused window has no application name")
}

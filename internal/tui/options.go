package tui

import (
	"strings"

	"github.com/atotto/clipboard"
)

type Option func(*Model)

// WithLanguage selects the label table.
func WithLanguage(lang Language) Option {
	return func(m *Model) {
		m.labels = LabelsFor(lang)
	}
}

// WithDefaultView selects the screen shown after startup: timeline, admin or workload.
func WithDefaultView(name string) Option {
	return func(m *Model) {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "admin":
			m.view = viewAdmin
		case "workload":
			m.view = viewWorkload
		default:
			m.view = viewTimeline
		}
	}
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyText = write
		}
	}
}

// WithSkipInitialLoad builds views from the service snapshot without calling Load first.
func WithSkipInitialLoad() Option {
	return func(m *Model) {
		m.skipStoreLoad = true
	}
}

func systemClipboard(text string) error {
	return clipboard.WriteAll(text)
}

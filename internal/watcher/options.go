package watcher

import (
	"path/filepath"
	"strings"
)

// BackendKind selects the notification mechanism.
type BackendKind string

const (
	// BackendAuto uses inotify on Linux and fsnotify elsewhere.
	BackendAuto BackendKind = "auto"
	// BackendFSNotify uses github.com/fsnotify/fsnotify on every platform.
	BackendFSNotify BackendKind = "fsnotify"
	// BackendInotify uses raw inotify (Linux only).
	BackendInotify BackendKind = "inotify"
)

// DefaultInProgressSuffixes are the partial-download markers written by common browsers.
var DefaultInProgressSuffixes = []string{
	".crdownload", // Chrome, Edge, Brave
	".part",       // Firefox
	".partial",    // legacy Edge / IE
	".opdownload", // Opera
	".download",   // Safari
}

// Options configures the file watcher behavior.
type Options struct {
	// InProgressSuffixes names files that are still being written by another
	// process. Nil means DefaultInProgressSuffixes; an empty slice disables the filter.
	InProgressSuffixes []string

	// IgnorePatterns are filepath.Match globs tested against the base name.
	// None are applied unless configured.
	IgnorePatterns []string

	Backend    BackendKind
	BufferSize int

	// IgnoreHidden drops names starting with a dot. Off unless configured.
	IgnoreHidden bool
}

// setDefaults applies default values to unset options.
func (o *Options) setDefaults() {
	if o.Backend == "" {
		o.Backend = BackendAuto
	}
	if o.BufferSize <= 0 {
		o.BufferSize = 100
	}
	if o.InProgressSuffixes == nil {
		o.InProgressSuffixes = append([]string(nil), DefaultInProgressSuffixes...)
	}
}

// skipReason reports why an event must not reach the relocator, or "" if it should.
func (o *Options) skipReason(root string, ev Event) string {
	if ev.IsDir {
		return "directory"
	}

	path := filepath.Clean(ev.Path)
	if path == root {
		return "watch root"
	}
	if filepath.Dir(path) != root {
		return "not a direct child"
	}

	base := filepath.Base(path)
	if o.isInProgress(base) {
		return "in progress"
	}

	if o.IgnoreHidden && strings.HasPrefix(base, ".") {
		return "hidden"
	}

	for _, pattern := range o.IgnorePatterns {
		matched, err := filepath.Match(pattern, base)
		if err == nil && matched {
			return "ignored pattern"
		}
	}

	return ""
}

// isInProgress reports whether name ends with an in-progress suffix, ignoring case.
func (o *Options) isInProgress(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range o.InProgressSuffixes {
		if suffix != "" && strings.HasSuffix(lower, strings.ToLower(suffix)) {
			return true
		}
	}
	return false
}

// SkipReason applies the same filters the watcher applies to live events, with
// defaults filled in. It lets callers that list a directory themselves (a sweep)
// ignore exactly what the watcher would ignore.
func (o Options) SkipReason(root string, ev Event) string {
	o.setDefaults()
	return o.skipReason(filepath.Clean(root), ev)
}

package watcher

// EventKind represents the kind of file system notification.
type EventKind int

const (
	// EventCreated is emitted when a directory entry appears (created or moved in).
	EventCreated EventKind = iota
	// EventModified is emitted when an existing entry is written to.
	EventModified
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventModified:
		return "modified"
	default:
		return "unknown"
	}
}

// Event is a notification about a direct child of the watched directory.
type Event struct {
	// Kind is the kind of notification (created or modified).
	Kind EventKind

	// Path is the absolute path of the entry.
	Path string

	// IsDir reports whether the entry was a directory when the notification was observed.
	IsDir bool
}

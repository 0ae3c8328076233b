package relocator

// Status is the terminal state of one relocation attempt.
type Status int

const (
	// StatusMoved means the file now lives at Outcome.Dest.
	StatusMoved Status = iota
	// StatusSkipped means the file was deliberately left alone; see Outcome.Reason.
	StatusSkipped
	// StatusFailed means an I/O error stopped the move; see Outcome.Err.
	StatusFailed
)

// String returns the lower-case name of the status.
func (s Status) String() string {
	switch s {
	case StatusMoved:
		return "moved"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Skip reasons.
const (
	ReasonVanished     = "vanished"
	ReasonUnclassified = "unclassified"
	ReasonNotRegular   = "not a regular file"
	ReasonCancelled    = "cancelled"
)

// Outcome reports what happened to one file.
type Outcome struct {
	Err       error
	Source    string
	Dest      string
	Reason    string
	AttemptID string
	Status    Status
}

// Moved reports a successful relocation from src to dest.
func Moved(src, dest string) Outcome {
	return Outcome{Status: StatusMoved, Source: src, Dest: dest}
}

// Skipped reports a file that was left in place for reason.
func Skipped(src, reason string) Outcome {
	return Outcome{Status: StatusSkipped, Source: src, Reason: reason}
}

// Failed reports a relocation that could not complete.
func Failed(src string, err error) Outcome {
	return Outcome{Status: StatusFailed, Source: src, Err: err}
}

// withAttempt tags an outcome with the attempt that produced it.
func (o Outcome) withAttempt(id string) Outcome {
	o.AttemptID = id
	return o
}

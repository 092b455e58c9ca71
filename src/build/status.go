package build

// Status is the lifecycle state of a runner's current job.
type Status int

const (
	Pending Status = iota
	Running
	Success
	Failed
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Success:
		return "success"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends a job.
func (s Status) Terminal() bool {
	return s == Success || s == Failed || s == Cancelled
}

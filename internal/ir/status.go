package ir

// TaskStatus is the lifecycle state of a Task.
//
//	pending → started → done
//	                  ↘ failed
//	pending → failed          (configuration error before claim)
//
// done and failed are terminal.
type TaskStatus string

const (
	StatusPending TaskStatus = "pending"
	StatusStarted TaskStatus = "started"
	StatusDone    TaskStatus = "done"
	StatusFailed  TaskStatus = "failed"
)

// statusLabels mirrors the display names shown to users.
var statusLabels = map[TaskStatus]string{
	StatusPending: "Pending in Queue...",
	StatusStarted: "Started",
	StatusDone:    "Done!",
	StatusFailed:  "Failure",
}

// Label returns the human readable label for a status.
func (s TaskStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Terminal reports whether no further transition is allowed.
func (s TaskStatus) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

package ir

import "time"

// Project groups files that are matched against each other.
type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Private     bool      `json:"private"`
	Created     time.Time `json:"created"`
}

// File is one binary, possibly part of a project.
type File struct {
	ID          int64  `json:"id"`
	ProjectID   *int64 `json:"project_id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MD5         string `json:"md5"`
}

// FileVersion is one concrete build of a File, identified by its hash.
// Unique per (file, md5).
type FileVersion struct {
	ID       int64  `json:"id"`
	FileID   int64  `json:"file_id"`
	MD5      string `json:"md5"`
	Complete bool   `json:"complete"`
}

// InstanceType tags what kind of unit an Instance represents.
type InstanceType string

const (
	InstanceEmptyData     InstanceType = "empty_data"
	InstanceData          InstanceType = "data"
	InstanceEmptyFunction InstanceType = "empty_function"
	InstanceFunction      InstanceType = "function"
	InstanceUniversal     InstanceType = "universal"
)

// ValidInstanceTypes lists the accepted instance type tags.
var ValidInstanceTypes = map[InstanceType]bool{
	InstanceEmptyData:     true,
	InstanceData:          true,
	InstanceEmptyFunction: true,
	InstanceFunction:      true,
	InstanceUniversal:     true,
}

// Instance is a comparable unit (function, data item or the universal
// singleton) inside one FileVersion. Unique per (file_version, offset).
type Instance struct {
	ID            int64        `json:"id"`
	FileVersionID int64        `json:"file_version_id"`
	Type          InstanceType `json:"type"`
	Offset        *int64       `json:"offset"` // nil for universal instances
	Size          int64        `json:"size"`
	Count         int64        `json:"count"`
}

// Vector is one feature encoding of one Instance for one category.
// Unique per (instance, type); immutable once written.
type Vector struct {
	ID            int64      `json:"id"`
	InstanceID    int64      `json:"instance_id"`
	FileVersionID int64      `json:"file_version_id"`
	Type          VectorType `json:"type"`
	TypeVersion   int        `json:"type_version"`
	Data          string     `json:"data"`
}

// Match is a directed, scored edge between two instances produced by a task.
// The engine enforces no uniqueness on (from, to, type).
type Match struct {
	ID             int64     `json:"id"`
	TaskID         int64     `json:"task_id"`
	FromInstanceID int64     `json:"from_instance_id"`
	ToInstanceID   int64     `json:"to_instance_id"`
	Type           string    `json:"type"`
	Score          float64   `json:"score"`
	Created        time.Time `json:"created"`
}

// Task is one matching run.
//
// Exactly one of TargetFileID and TargetProjectID is set. SourceStart and
// SourceEnd bound Instance.Offset inclusively when present.
type Task struct {
	ID                  int64      `json:"id"`
	RunID               string     `json:"run_id,omitempty"`
	Status              TaskStatus `json:"status"`
	SourceFileVersionID int64      `json:"source_file_version_id"`
	SourceFileID        int64      `json:"source_file_id"` // derived from the source file version
	SourceStart         *int64     `json:"source_start,omitempty"`
	SourceEnd           *int64     `json:"source_end,omitempty"`
	TargetFileID        *int64     `json:"target_file_id,omitempty"`
	TargetProjectID     *int64     `json:"target_project_id,omitempty"`
	Matchers            []string   `json:"matchers"`
	Strategy            string     `json:"strategy"`
	Progress            int        `json:"progress"`
	ProgressMax         *int       `json:"progress_max,omitempty"`
	Created             time.Time  `json:"created"`
	Finished            *time.Time `json:"finished,omitempty"`
}

// Int64 returns a pointer to v. Convenience for nullable columns.
func Int64(v int64) *int64 {
	return &v
}

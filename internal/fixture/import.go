package fixture

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/rematch/internal/ir"
	"github.com/roach88/rematch/internal/store"
)

// Result maps fixture keys to the ids the store assigned.
type Result struct {
	Projects map[string]int64 `json:"projects"`
	Files    map[string]int64 `json:"files"`
	Versions map[string]int64 `json:"versions"`

	// Instances is keyed by InstanceKey.
	Instances map[string]int64 `json:"instances"`
	Vectors   int              `json:"vectors"`
}

// InstanceKey names an instance by its version key and offset, e.g.
// "libfoo-1.0@0x1000". Universal instances use "@universal".
func InstanceKey(version string, offset *int64) string {
	if offset == nil {
		return version + "@universal"
	}
	return fmt.Sprintf("%s@%#x", version, *offset)
}

// Import writes the fixture to s. Rows already written stay in place when
// a later row fails.
func Import(ctx context.Context, s *store.Store, f *Fixture) (*Result, error) {
	res := &Result{
		Projects:  make(map[string]int64),
		Files:     make(map[string]int64),
		Versions:  make(map[string]int64),
		Instances: make(map[string]int64),
	}

	for _, p := range f.Projects {
		id, err := s.CreateProject(ctx, ir.Project{Name: p.Name, Description: p.Description, Private: p.Private})
		if err != nil {
			return res, fmt.Errorf("import project %s: %w", p.Key, err)
		}
		res.Projects[p.Key] = id
	}

	for _, file := range f.Files {
		rec := ir.File{Name: file.Name, Description: file.Description, MD5: file.MD5}
		if file.Project != "" {
			rec.ProjectID = ir.Int64(res.Projects[file.Project])
		}
		fileID, err := s.CreateFile(ctx, rec)
		if err != nil {
			return res, fmt.Errorf("import file %s: %w", file.Key, err)
		}
		res.Files[file.Key] = fileID

		for _, v := range file.Versions {
			complete := v.Complete == nil || *v.Complete
			versionID, err := s.CreateFileVersion(ctx, ir.FileVersion{FileID: fileID, MD5: v.MD5, Complete: complete})
			if err != nil {
				return res, fmt.Errorf("import version %s: %w", v.Key, err)
			}
			res.Versions[v.Key] = versionID

			for _, inst := range v.Instances {
				if err := importInstance(ctx, s, res, v.Key, versionID, inst); err != nil {
					return res, err
				}
			}
		}
	}
	return res, nil
}

func importInstance(ctx context.Context, s *store.Store, res *Result, versionKey string, versionID int64, inst Instance) error {
	key := InstanceKey(versionKey, inst.Offset)
	count := inst.Count
	if count == 0 {
		count = 1
	}
	id, err := s.CreateInstance(ctx, ir.Instance{
		FileVersionID: versionID,
		Type:          inst.Type,
		Offset:        inst.Offset,
		Size:          inst.Size,
		Count:         count,
	})
	if err != nil {
		return fmt.Errorf("import instance %s: %w", key, err)
	}
	res.Instances[key] = id

	// Sorted so vector ids are stable across runs.
	names := make([]string, 0, len(inst.Vectors))
	for name := range inst.Vectors {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		vt := ir.VectorType(name)
		data, err := payload(vt, inst.Vectors[name])
		if err != nil {
			return fmt.Errorf("import instance %s: %w", key, err)
		}
		if _, err := s.UpsertVector(ctx, ir.Vector{InstanceID: id, Type: vt, TypeVersion: 1, Data: data}); err != nil {
			return fmt.Errorf("import instance %s: %w", key, err)
		}
		res.Vectors++
	}
	return nil
}

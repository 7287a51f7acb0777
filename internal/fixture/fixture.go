// Package fixture loads binary analysis data from YAML into the store.
//
// A fixture declares projects, files, their versions, and the instances of
// each version with one payload per vector type:
//
//	projects:
//	  - key: demo
//	    name: Demo
//	files:
//	  - key: libfoo
//	    project: demo
//	    name: libfoo.so
//	    versions:
//	      - key: libfoo-1.0
//	        md5: 0f343b0931126a20f133d67c2b018a3b
//	        instances:
//	          - offset: 0x1000
//	            size: 24
//	            vectors:
//	              assembly_hash: deadbeef
//	              mnemonic_hist: {mov: 3, call: 1}
//	              basicblock_adjacency: {"0": ["1", "2"], "1": ["2"]}
//
// Histogram and adjacency payloads may be written as YAML mappings; they
// are stored as canonical JSON. Every other payload is a scalar string.
package fixture

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rematch/internal/ir"
)

// Fixture is the decoded YAML document.
type Fixture struct {
	Projects []Project `yaml:"projects,omitempty"`
	Files    []File    `yaml:"files"`
}

// Project declares an ir.Project.
type Project struct {
	// Key names the project inside the fixture. Defaults to Name.
	Key         string `yaml:"key,omitempty"`
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Private     bool   `yaml:"private,omitempty"`
}

// File declares an ir.File and its versions.
type File struct {
	Key         string    `yaml:"key,omitempty"`
	Project     string    `yaml:"project,omitempty"` // project key, empty for none
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	MD5         string    `yaml:"md5,omitempty"`
	Versions    []Version `yaml:"versions"`
}

// Version declares an ir.FileVersion and its instances.
type Version struct {
	Key       string     `yaml:"key,omitempty"`
	MD5       string     `yaml:"md5"`
	Complete  *bool      `yaml:"complete,omitempty"` // defaults to true
	Instances []Instance `yaml:"instances"`
}

// Instance declares an ir.Instance and its vectors.
type Instance struct {
	Type    ir.InstanceType      `yaml:"type,omitempty"` // defaults to function
	Offset  *int64               `yaml:"offset,omitempty"`
	Size    int64                `yaml:"size"`
	Count   int64                `yaml:"count,omitempty"`
	Vectors map[string]yaml.Node `yaml:"vectors,omitempty"`
}

// Load reads and parses a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes a fixture. Unknown fields are rejected.
func Parse(r io.Reader) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	f.applyDefaults()
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}
	return &f, nil
}

func (f *Fixture) applyDefaults() {
	for i := range f.Projects {
		if f.Projects[i].Key == "" {
			f.Projects[i].Key = f.Projects[i].Name
		}
	}
	for i := range f.Files {
		file := &f.Files[i]
		if file.Key == "" {
			file.Key = file.Name
		}
		if file.MD5 == "" {
			file.MD5 = file.Key
		}
		for j := range file.Versions {
			v := &file.Versions[j]
			if v.Key == "" {
				v.Key = v.MD5
			}
			for k := range v.Instances {
				if v.Instances[k].Type == "" {
					v.Instances[k].Type = ir.InstanceFunction
				}
			}
		}
	}
}

// Validate checks references and uniqueness inside the fixture.
func (f *Fixture) Validate() error {
	projects := make(map[string]bool)
	for i, p := range f.Projects {
		if p.Name == "" {
			return fmt.Errorf("projects[%d]: name is required", i)
		}
		if projects[p.Key] {
			return fmt.Errorf("projects[%d]: duplicate key %q", i, p.Key)
		}
		projects[p.Key] = true
	}

	files := make(map[string]bool)
	versions := make(map[string]bool)
	for i, file := range f.Files {
		if file.Name == "" {
			return fmt.Errorf("files[%d]: name is required", i)
		}
		if files[file.Key] {
			return fmt.Errorf("files[%d]: duplicate key %q", i, file.Key)
		}
		files[file.Key] = true
		if file.Project != "" && !projects[file.Project] {
			return fmt.Errorf("files[%d]: unknown project %q", i, file.Project)
		}

		for j, v := range file.Versions {
			at := fmt.Sprintf("files[%d].versions[%d]", i, j)
			if v.MD5 == "" {
				return fmt.Errorf("%s: md5 is required", at)
			}
			if versions[v.Key] {
				return fmt.Errorf("%s: duplicate key %q", at, v.Key)
			}
			versions[v.Key] = true

			offsets := make(map[int64]bool)
			for k, inst := range v.Instances {
				at := fmt.Sprintf("%s.instances[%d]", at, k)
				if !ir.ValidInstanceTypes[inst.Type] {
					return fmt.Errorf("%s: unknown instance type %q", at, inst.Type)
				}
				if inst.Offset == nil && inst.Type != ir.InstanceUniversal {
					return fmt.Errorf("%s: offset is required for %s instances", at, inst.Type)
				}
				if inst.Size < 0 {
					return fmt.Errorf("%s: negative size %d", at, inst.Size)
				}
				if inst.Offset != nil {
					if offsets[*inst.Offset] {
						return fmt.Errorf("%s: duplicate offset %#x", at, *inst.Offset)
					}
					offsets[*inst.Offset] = true
				}
				for name := range inst.Vectors {
					if !ir.VectorType(name).Valid() {
						return fmt.Errorf("%s: unknown vector type %q", at, name)
					}
				}
			}
		}
	}
	return nil
}

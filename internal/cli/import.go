package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rematch/internal/fixture"
)

// ImportSummary reports what an import wrote.
type ImportSummary struct {
	Fixture   string           `json:"fixture"`
	Projects  map[string]int64 `json:"projects"`
	Files     map[string]int64 `json:"files"`
	Versions  map[string]int64 `json:"versions"`
	Instances int              `json:"instances"`
	Vectors   int              `json:"vectors"`
}

func (s ImportSummary) String() string {
	return fmt.Sprintf("Imported %s: %d project(s), %d file(s), %d version(s), %d instance(s), %d vector(s)",
		s.Fixture, len(s.Projects), len(s.Files), len(s.Versions), s.Instances, s.Vectors)
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <fixture.yaml>",
		Short: "Load projects, files, instances and vectors",
		Long: `Load a YAML fixture of projects, files, file versions, instances and
their vectors into the database.

Histogram and adjacency vectors may be written as YAML mappings; they are
stored as canonical JSON.

Example:
  rematch import ./testdata/libfoo.yaml
  rematch import --db ./rematch.db ./libfoo.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runImport(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	fx, err := fixture.Load(path)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeLoad, "failed to load fixture", err, nil)
	}

	st, err := opts.openStore()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err, nil)
	}
	defer opts.closeStore(st)

	res, err := fixture.Import(cmd.Context(), st, fx)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeStore, "import failed", err, nil)
	}
	opts.Logger.Info("fixture imported", "path", path, "instances", len(res.Instances), "vectors", res.Vectors)

	return f.Success(ImportSummary{
		Fixture:   path,
		Projects:  res.Projects,
		Files:     res.Files,
		Versions:  res.Versions,
		Instances: len(res.Instances),
		Vectors:   res.Vectors,
	})
}

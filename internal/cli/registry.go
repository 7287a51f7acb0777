package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/rematch/internal/matcher"
	"github.com/roach88/rematch/internal/strategy"
)

// MatcherList is the output of the matchers command.
type MatcherList []matcher.Descriptor

func (l MatcherList) String() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MATCH TYPE\tNAME\tVECTOR TYPE")
	for _, d := range l {
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.MatchType, d.Name, d.VectorType)
	}
	w.Flush()
	return strings.TrimSuffix(b.String(), "\n")
}

// StrategyList is the output of the strategies command.
type StrategyList []strategy.Descriptor

func (l StrategyList) String() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STRATEGY TYPE\tNAME")
	for _, d := range l {
		fmt.Fprintf(w, "%s\t%s\n", d.StrategyType, d.Name)
	}
	w.Flush()
	return strings.TrimSuffix(b.String(), "\n")
}

// NewMatchersCommand creates the matchers command.
func NewMatchersCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "matchers",
		Short:         "List the selectable matchers",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.formatter(cmd).Success(MatcherList(rootOpts.matchers().Descriptors()))
		},
	}
}

// NewStrategiesCommand creates the strategies command.
func NewStrategiesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "strategies",
		Short:         "List the selectable strategies",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.formatter(cmd).Success(StrategyList(strategy.Descriptors()))
		},
	}
}

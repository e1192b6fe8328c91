package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/getmockd/mockharness/pkg/cli/internal/output"
	"github.com/getmockd/mockharness/pkg/config"
)

func newValidateCmd() *cobra.Command {
	var (
		files        []string
		build        bool
		showResolved string
	)
	cmd := &cobra.Command{
		Use:   "validate [-f scenario.yaml] [pattern...]",
		Short: "Check scenario files without serving them",
		Long: `Check scenario files without serving them.

This command checks:
  - YAML or JSON syntax
  - Schema validation (required fields, valid values)
  - Route keys and responses for the scenario's protocol
  - Response expressions

Files are given with -f or as arguments; arguments may be glob patterns,
including ** for recursive matching (e.g. 'scenarios/**/*.yaml').

With --build, referenced files (GraphQL schemas, proto files, WSDL) are also
loaded and routes are checked against them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := config.ExpandPaths(append(files, args...)...)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return errors.New("no scenario files given: use -f or pass file patterns")
			}
			invalid := 0
			for _, path := range paths {
				err := validateScenario(cmd.OutOrStdout(), path, build, showResolved)
				switch {
				case errors.Is(err, config.ErrInvalidScenario) && len(paths) > 1:
					invalid++
				case err != nil:
					return err
				}
			}
			if invalid > 0 {
				return fmt.Errorf("%w: %d of %d file(s)", config.ErrInvalidScenario, invalid, len(paths))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringArrayVarP(&files, "file", "f", nil, "Scenario file (YAML or JSON), repeatable")
	f.BoolVar(&build, "build", false, "Also load referenced files and check routes against them")
	f.StringVar(&showResolved, "show-resolved", "", "Print the scenario after env var expansion (json or yaml)")
	return cmd
}

func validateScenario(w io.Writer, file string, build bool, showResolved string) error {
	s, err := config.LoadFile(file)
	if err != nil {
		if problems := config.ValidationErrors(err); len(problems) > 0 {
			fmt.Fprintf(w, "%s: %d problem(s)\n", file, len(problems))
			for _, p := range problems {
				fmt.Fprintf(w, "  - %s: %s\n", p.Field, p.Message)
			}
			return fmt.Errorf("%w: %s", config.ErrInvalidScenario, file)
		}
		return err
	}
	if build {
		if _, err := s.Build(config.BuildOptions{}); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "%s: valid %s scenario, %d route(s), %d request(s) expected\n",
		file, s.Protocol, len(s.Routes), s.Slots())

	if showResolved != "" {
		format, err := output.ParseFormat(showResolved)
		if err != nil {
			return err
		}
		data, err := config.Marshal(s, config.Format(format))
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	return nil
}

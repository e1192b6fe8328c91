package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// NewRootCommand builds the mockharness command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "mockharness",
		Short: "mockharness serves scripted mock services for integration tests",
		Long: `mockharness binds a mock HTTP, GraphQL, gRPC or SOAP service described by a
scenario file, answers each declared route with its responses in order, and
exits once every response has been used. The requests it received are written
as a journal so tests can assert on them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newValidateCmd(), newInitCmd(), newVersionCmd())
	return root
}

// Main runs the root command with the process arguments and returns the exit
// code.
func Main() int {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

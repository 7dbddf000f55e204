// replayer replays a collection of "get resource" requests over one gateway
// socket connection and appends every response to a per-bucket JSON file.
//
// Usage:
//
//	replayer run -f configs/replayer.example.yaml
//	replayer run --gateway-url wss://gateway.example.com/socket.io/ --param userId=123 -w 10
//	replayer encode --seq 1 5f3c...
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rickgao/collection-replay/internal/config"
	"github.com/rickgao/collection-replay/internal/version"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "replayer",
		Short:         "Replay resource requests over a socket gateway and bucket the responses",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(newRunCommand(), newEncodeCommand(), newVersionCommand())
	return root
}

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Send every id in the store and persist the responses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadForRun(cmd.Flags())
			if err != nil {
				return err
			}
			linger, err := cmd.Flags().GetDuration("linger")
			if err != nil {
				return err
			}
			return runReplay(cmd.Context(), cfg, runOptions{Linger: linger})
		},
	}
	config.RegisterFlags(cmd)
	cmd.Flags().Duration("linger", defaultLinger, "Keep receiving after the last send (0 waits for a signal)")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

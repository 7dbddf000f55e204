package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rickgao/collection-replay/internal/config"
	"github.com/rickgao/collection-replay/internal/protocol"
)

// newEncodeCommand prints the request frames a run would send for the given ids.
func newEncodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode ID...",
		Short: "Print the request frame for each resource id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := cmd.Flags().GetInt64("seq")
			if err != nil {
				return err
			}
			if seq < 1 {
				return fmt.Errorf("--seq must be >= 1, got %d", seq)
			}
			path, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}

			encCfg := protocol.DefaultEncoderConfig()
			if path != "" {
				cfg, err := config.LoadWithDefaults(path)
				if err != nil {
					return err
				}
				encCfg = cfg.Gateway.EncoderConfig()
			}

			enc := protocol.NewEncoder(encCfg)
			out := cmd.OutOrStdout()
			for i, id := range args {
				fmt.Fprintln(out, enc.Encode(seq+int64(i), id).Text())
			}
			return nil
		},
	}
	cmd.Flags().Int64("seq", 1, "Sequence id of the first frame")
	cmd.Flags().StringP("config", "f", "", "Config file supplying gateway headers")
	return cmd
}

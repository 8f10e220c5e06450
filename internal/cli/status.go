package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/sigsmuggle/internal/sqlite"
)

type statusReport struct {
	DataDir  string       `json:"data_dir"`
	Database string       `json:"database"`
	Counts   sqlite.Stats `json:"counts"`
}

func (a *app) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the selected profile and its row counts",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := a.storeConfig()
			if err != nil {
				return err
			}
			s, err := a.openStore(false)
			if err != nil {
				return err
			}
			defer s.Close()

			st, err := s.Stats(cmd.Context())
			if err != nil {
				return err
			}
			rep := statusReport{DataDir: s.Root(), Database: cfg.DatabasePath(), Counts: st}
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), rep)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "data dir:     %s\n", rep.DataDir)
			fmt.Fprintf(w, "database:     %s\n", rep.Database)
			fmt.Fprintf(w, "signatures:   %d\n", st.Signatures)
			fmt.Fprintf(w, "blocks:       %d\n", st.Blocks)
			fmt.Fprintf(w, "owned blocks: %d\n", st.OwnedBlocks)
			return nil
		},
	}
}

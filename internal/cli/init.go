package cli

import (
	"github.com/spf13/cobra"
)

func (a *app) newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create an empty profile store",
		Long: "Creates the data directory and index of the selected profile with\n" +
			"empty signature tables. Existing tables and rows are left untouched.",
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.initStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			a.log.Infow("profile initialized", "data_dir", s.Root())
			return nil
		},
	}
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/sigsmuggle/internal/bundle"
	"github.com/mesh-intelligence/sigsmuggle/internal/migrate"
)

func (a *app) newImportCmd() *cobra.Command {
	var opts migrate.ImportOptions

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Add the signatures of a bundle file to the profile",
		Long: "Reads the bundle FILE (or standard input for -) and adds every\n" +
			"signature to the selected profile. Existing signatures are kept.\n" +
			"Either all signatures are imported or the profile is left unchanged.",
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.openStore(false)
			if err != nil {
				return err
			}
			defer s.Close()

			eng := migrate.New(a.log)
			var r migrate.Report
			if args[0] == stdio {
				b, err := bundle.Read(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("import: reading standard input: %w", err)
				}
				a.log.Debugw("bundle read", "path", stdio, "version", b.Version,
					"signatures", len(b.Signatures), "blocks", b.Blocks())
				r, err = eng.ImportAll(ctx, s, b, opts)
				if err != nil {
					return err
				}
			} else {
				r, err = eng.ImportFile(ctx, s, a.fs, args[0], opts)
				if err != nil {
					return err
				}
			}

			msg := "import complete"
			if r.DryRun {
				msg = "dry run complete, nothing written"
			}
			a.log.Infow(msg, "file", args[0],
				"signatures", r.Signatures, "blocks", r.Blocks, "bytes", r.Bytes)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "run the whole import, then roll it back")
	cmd.Flags().BoolVar(&opts.PreserveRecordIDs, "keep-ids", false, "keep the record ids stored in the bundle; fails if one is already in use")
	return cmd
}

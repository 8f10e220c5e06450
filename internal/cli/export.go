package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/sigsmuggle/internal/bundle"
	"github.com/mesh-intelligence/sigsmuggle/internal/migrate"
)

// stdio names standard input or output in place of a bundle file.
const stdio = "-"

func (a *app) newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export FILE",
		Short: "Write every signature of the profile to a bundle file",
		Long: "Reads all signatures of the selected profile, attachments included,\n" +
			"and writes them to FILE. Use - to write the bundle to standard output.\n" +
			"FILE is only created when every signature could be read.",
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
				var b *bundle.Bundle
				b, r, err = eng.ExportAll(ctx, s)
				if err != nil {
					return err
				}
				if err := bundle.Write(cmd.OutOrStdout(), b); err != nil {
					return err
				}
			} else {
				r, err = eng.ExportFile(ctx, s, a.fs, args[0])
				if err != nil {
					return err
				}
			}

			a.log.Infow("export complete", "file", args[0],
				"signatures", r.Signatures, "blocks", r.Blocks, "bytes", r.Bytes)
			return nil
		},
	}
}

// Package cli implements the sigsmuggle command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/sigsmuggle/internal/paths"
	"github.com/mesh-intelligence/sigsmuggle/pkg/sigsmuggle"
	"github.com/mesh-intelligence/sigsmuggle/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir   string
	profilesDir string
	profile     string
	dataDir     string
	database    string
	verbose     bool
	jsonMode    bool
}

// app carries the state shared by every subcommand of one invocation.
type app struct {
	flags rootFlags
	cfg   *viper.Viper
	log   *zap.SugaredLogger
	fs    afero.Fs
}

// NewRootCmd creates the top-level "sigsmuggle" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{fs: afero.NewOsFs()}

	root := &cobra.Command{
		Use:   "sigsmuggle",
		Short: "Move Outlook signatures between profiles",
		Long: "sigsmuggle exports every signature of an Outlook profile, attachments\n" +
			"included, into a portable bundle file and imports such a bundle into\n" +
			"another profile. Quit Outlook before running it.",
		Version: sigsmuggle.Version,
		// Errors are printed once by Execute.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.log = newLogger(cmd.ErrOrStderr(), a.flags.verbose)
			if cmd.Name() == "version" {
				return nil
			}

			configDir, err := paths.ResolveConfigDir(a.flags.configDir)
			if err != nil {
				return fmt.Errorf("resolve config dir: %w", err)
			}
			cfg, err := loadConfig(configDir)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log.Debugw("configuration loaded", "config_dir", configDir, "file", cfg.ConfigFileUsed())
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.flags.profilesDir, "profiles-dir", "", "directory holding Outlook profiles (default: platform profiles dir)")
	pf.StringVarP(&a.flags.profile, "profile", "p", "", `profile to operate on (default: "`+paths.DefaultProfile+`")`)
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "profile data directory, overriding --profiles-dir and --profile")
	pf.StringVar(&a.flags.database, "database", "", `index file inside the data directory (default: "`+types.DefaultDatabaseName+`")`)
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "log every signature and block")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output as JSON")

	root.AddCommand(a.newExportCmd())
	root.AddCommand(a.newImportCmd())
	root.AddCommand(a.newListCmd())
	root.AddCommand(a.newStatusCmd())
	root.AddCommand(a.newInitCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "sigsmuggle:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// usageError marks errors caused by how the command was invoked.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// exitCode maps an error to the process exit code. Problems with the input
// the user supplied exit with 1, everything else with 2.
func exitCode(err error) int {
	var ue usageError
	switch {
	case err == nil:
		return exitSuccess
	case errors.As(err, &ue),
		errors.Is(err, types.ErrBundleFormat),
		errors.Is(err, types.ErrPathEscape),
		errors.Is(err, types.ErrMalformedIdentifier),
		errors.Is(err, types.ErrRecordExists),
		errors.Is(err, paths.ErrInvalidProfile),
		errors.Is(err, fs.ErrNotExist):
		return exitUserError
	default:
		return exitSysError
	}
}

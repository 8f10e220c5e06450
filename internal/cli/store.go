package cli

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/sigsmuggle/internal/paths"
	"github.com/mesh-intelligence/sigsmuggle/internal/sqlite"
	"github.com/mesh-intelligence/sigsmuggle/pkg/types"
)

// storeConfig resolves the profile data directory and index file following
// the precedence chain: flag > config.yaml > environment > default.
func (a *app) storeConfig() (types.Config, string, error) {
	database := a.flags.database
	if database == "" {
		database = a.cfg.GetString(cfgKeyDatabase)
	}

	if a.flags.dataDir != "" {
		return types.Config{DataDir: a.flags.dataDir, Database: database}, "", nil
	}

	profilesDir, err := paths.ResolveProfilesDir(a.flags.profilesDir, a.cfg.GetString(cfgKeyProfilesDir))
	if err != nil {
		return types.Config{}, "", fmt.Errorf("resolve profiles dir: %w", err)
	}
	profile := paths.ResolveProfile(a.flags.profile, a.cfg.GetString(cfgKeyProfile))
	dataDir, err := paths.ProfileDataDir(profilesDir, profile)
	if err != nil {
		return types.Config{}, "", fmt.Errorf("profile %q: %w", profile, err)
	}
	return types.Config{DataDir: dataDir, Database: database}, profile, nil
}

// openStore opens the selected profile store. The caller must Close it.
func (a *app) openStore(create bool) (*sqlite.Store, error) {
	cfg, profile, err := a.storeConfig()
	if err != nil {
		return nil, err
	}
	cfg.Create = create

	s, err := sqlite.Open(cfg, sqlite.WithLogger(a.log), sqlite.WithFs(a.fs))
	if err != nil {
		return nil, fmt.Errorf("open profile %q: %w", profile, err)
	}
	a.log.Debugw("profile opened", "profile", profile, "data_dir", s.Root())
	return s, nil
}

// initStore creates the profile store and its tables.
func (a *app) initStore(ctx context.Context) (*sqlite.Store, error) {
	s, err := a.openStore(true)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

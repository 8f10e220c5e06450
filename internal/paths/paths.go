// Package paths resolves the configuration directory and the location of a
// host application profile on disk.
package paths

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

// DefaultProfile is the profile the host application creates on first launch.
const DefaultProfile = "Main Profile"

// Environment variable names for overrides.
const (
	EnvConfigDir   = "SIGSMUGGLE_CONFIG_DIR"
	EnvProfilesDir = "SIGSMUGGLE_PROFILES_DIR"
	EnvProfile     = "SIGSMUGGLE_PROFILE"
)

// darwinProfilesDir is where the host application keeps its profiles on
// macOS, relative to the home directory.
var darwinProfilesDir = filepath.Join(
	"Library", "Group Containers", "UBF8T346G9.Office", "Outlook", "Outlook 15 Profiles",
)

// profileDataDirName is the blob root inside a profile directory.
const profileDataDirName = "Data"

// ErrInvalidProfile is returned for profile names that are not a single path
// element.
var ErrInvalidProfile = errors.New("invalid profile name")

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	goos          string
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	goos:          runtime.GOOS,
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/sigsmuggle (fallback ~/.config/sigsmuggle)
// macOS:   ~/Library/Application Support/sigsmuggle
// Windows: %APPDATA%/sigsmuggle
func DefaultConfigDir() (string, error) {
	switch platformDir.goos {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "sigsmuggle"), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "sigsmuggle"), nil
	default:
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "sigsmuggle"), nil
	}
}

// DefaultProfilesDir returns the directory holding the host application's
// profiles.
//
// macOS:  ~/Library/Group Containers/UBF8T346G9.Office/Outlook/Outlook 15 Profiles
// Linux:  $XDG_DATA_HOME/sigsmuggle/Profiles (fallback ~/.local/share/sigsmuggle/Profiles)
// Others: <user config dir>/sigsmuggle/Profiles
func DefaultProfilesDir() (string, error) {
	switch platformDir.goos {
	case "darwin":
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, darwinProfilesDir), nil
	case "linux":
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "sigsmuggle", "Profiles"), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", "sigsmuggle", "Profiles"), nil
	default:
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "sigsmuggle", "Profiles"), nil
	}
}

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > SIGSMUGGLE_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveProfilesDir returns the profiles directory following the precedence
// chain: flag > config.yaml value > SIGSMUGGLE_PROFILES_DIR env > DefaultProfilesDir().
func ResolveProfilesDir(flag, configYAMLValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configYAMLValue != "" {
		return filepath.Abs(configYAMLValue)
	}
	if env := os.Getenv(EnvProfilesDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultProfilesDir()
}

// ResolveProfile returns the profile name following the precedence chain:
// flag > config.yaml value > SIGSMUGGLE_PROFILE env > DefaultProfile.
func ResolveProfile(flag, configYAMLValue string) string {
	if flag != "" {
		return flag
	}
	if configYAMLValue != "" {
		return configYAMLValue
	}
	if env := os.Getenv(EnvProfile); env != "" {
		return env
	}
	return DefaultProfile
}

// ProfileDataDir returns the blob root of profile under profilesDir.
// The profile name must be a single path element.
func ProfileDataDir(profilesDir, profile string) (string, error) {
	if profile == "" || profile == "." || profile == ".." || filepath.Base(profile) != profile {
		return "", ErrInvalidProfile
	}
	return filepath.Join(profilesDir, profile, profileDataDirName), nil
}

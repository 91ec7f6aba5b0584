package repo

import (
	"fmt"

	"gopkg.in/ini.v1"

	"github.com/lily-mara/bork/borgerr"
)

// RepositoryID parses a repository's config file and returns the
// [repository] id value. Missing file contents or a missing key are
// both fatal, per the config file's one load-bearing field.
func RepositoryID(configBytes []byte) (string, error) {
	cfg, err := ini.Load(configBytes)
	if err != nil {
		return "", &borgerr.ConfigError{Op: "parse config", Err: err}
	}

	section, err := cfg.GetSection("repository")
	if err != nil {
		return "", &borgerr.ConfigError{Op: "read [repository] section", Err: err}
	}

	key, err := section.GetKey("id")
	if err != nil {
		return "", &borgerr.ConfigError{Op: "read [repository] id", Err: fmt.Errorf("missing id: %w", err)}
	}

	return key.String(), nil
}

package config

import (
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/recipebook/recipebook/errors"
)

// UnknownKeys decodes configPath strictly and returns every key that does not
// map onto a Config field, e.g. a misspelled "reconcile.max_attempt".
// Viper silently ignores such keys, so this is the only place they surface.
func UnknownKeys(configPath string) ([]string, error) {
	var cfg Config
	md, err := toml.DecodeFile(configPath, &cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", configPath)
	}

	undecoded := md.Undecoded()
	keys := make([]string, 0, len(undecoded))
	for _, key := range undecoded {
		keys = append(keys, key.String())
	}
	sort.Strings(keys)
	return keys, nil
}

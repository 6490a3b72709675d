// pkg/manifest/load.go
package manifest

import (
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// Load reads and validates a manifest file. A missing path yields the
// validated zero config (defaults only).
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, err
			}
		} else if err := toml.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/guillaumegarcia13/umami-sessions-service/internal/registry"
)

// Exclusions is the startup seed for the exclusion registries, loaded
// from a YAML file of the form:
//
//	sessions:
//	  - id: "abc-123"
//	    name: "internal tester"
//	    description: "QA traffic"
//	websites:
//	  excluded:
//	    - "localhost"
//	  whitelist:
//	    - "example.com"
type Exclusions struct {
	Sessions []SessionExclusion `mapstructure:"sessions"`
	Websites WebsiteExclusions  `mapstructure:"websites"`
}

// SessionExclusion is one seeded session exclusion entry.
type SessionExclusion struct {
	ID          string `mapstructure:"id"`
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
}

// WebsiteExclusions holds the seeded favicon policy lists.
type WebsiteExclusions struct {
	Excluded  []string `mapstructure:"excluded"`
	Whitelist []string `mapstructure:"whitelist"`
}

// SessionEntries converts the seed into registry entries.
func (e *Exclusions) SessionEntries() []registry.Entry {
	entries := make([]registry.Entry, 0, len(e.Sessions))
	for _, s := range e.Sessions {
		entries = append(entries, registry.Entry{
			SessionID:   s.ID,
			Name:        s.Name,
			Description: s.Description,
		})
	}
	return entries
}

// LoadExclusions reads the exclusions seed file. An empty path returns
// an empty seed.
func LoadExclusions(path string) (*Exclusions, error) {
	if path == "" {
		return &Exclusions{}, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read exclusions file %s: %w", path, err)
	}

	var exclusions Exclusions
	if err := v.Unmarshal(&exclusions); err != nil {
		return nil, fmt.Errorf("failed to parse exclusions file %s: %w", path, err)
	}
	return &exclusions, nil
}

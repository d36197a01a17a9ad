// Package config loads the server's YAML configuration file, adapted from
// the teacher's config.go (which walks a raw map[interface{}]interface{}
// by colon-separated key path) into a typed Config assembled from the
// fields spec.md §6 enumerates. Configuration loading itself is named an
// external collaborator in spec.md §1 ("interfaced only"); this package is
// that thin interface, not a general-purpose config framework.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// MetadataFieldType is the type of a [metadata_fields] entry.
type MetadataFieldType string

const (
	MetadataText   MetadataFieldType = "text"
	MetadataBool   MetadataFieldType = "bool"
	MetadataSelect MetadataFieldType = "select"
)

// MetadataField describes one [metadata_fields] entry. Select carries the
// option list when Type == MetadataSelect (encoded "select:a,b,c").
type MetadataField struct {
	Type   MetadataFieldType
	Select []string
}

// HFPropagation carries the [hf_propagation] section.
type HFPropagation struct {
	Enabled          bool `yaml:"enabled"`
	UseExternalData  bool `yaml:"use_external_data"`
	UseDXViewData    bool `yaml:"use_dxview_data"`
	UseSWPCData      bool `yaml:"use_swpc_data"`
	SolarFluxIndex   int  `yaml:"solar_flux_index"`
	KIndex           int  `yaml:"k_index"`
	AutoSeason       bool `yaml:"auto_season"`
	Season           int  `yaml:"season"`
	UpdateIntervalMin int `yaml:"update_interval"`
}

// Config is the assembled, typed view of the YAML configuration file.
type Config struct {
	Database     string `yaml:"database"`
	Users        int    `yaml:"users"`
	Port         int    `yaml:"port"`
	Host         string `yaml:"host"`
	Bandwidth    int    `yaml:"bandwidth"`
	Timeout      int    `yaml:"timeout"`
	WelcomeText  string `yaml:"welcometext"`
	Autoregister bool   `yaml:"autoregister"`

	Channels           map[int]string `yaml:"channels"`
	ChannelDescription map[int]string `yaml:"channel_description"`
	ChannelLinks       map[int]string `yaml:"channel_links"`
	MetadataFields     map[int]string `yaml:"metadata_fields"`
	ACL                []string       `yaml:"acl"`

	HFPropagation HFPropagation `yaml:"hf_propagation"`
}

// Default returns the configuration defaults named in spec.md §6.
func Default() *Config {
	return &Config{
		Users:        100,
		Port:         64738,
		Host:         "",
		Bandwidth:    72000,
		Timeout:      30,
		Autoregister: true,
		HFPropagation: HFPropagation{
			Enabled:           true,
			SolarFluxIndex:    100,
			KIndex:            2,
			AutoSeason:        true,
			UpdateIntervalMin: 10,
		},
	}
}

// Load reads and parses the YAML file at path over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.Users <= 0 {
		return nil, fmt.Errorf("config %s: users must be positive", path)
	}
	if cfg.HFPropagation.SolarFluxIndex < 60 || cfg.HFPropagation.SolarFluxIndex > 300 {
		return nil, fmt.Errorf("config %s: solar_flux_index out of range [60,300]", path)
	}
	if cfg.HFPropagation.KIndex < 0 || cfg.HFPropagation.KIndex > 9 {
		return nil, fmt.Errorf("config %s: k_index out of range [0,9]", path)
	}

	return cfg, nil
}

// ParseMetadataField decodes one [metadata_fields] value, e.g. "text",
// "bool", or "select:a,b,c".
func ParseMetadataField(raw string) MetadataField {
	if len(raw) >= 7 && raw[:7] == "select:" {
		opts := splitNonEmpty(raw[7:], ',')
		return MetadataField{Type: MetadataSelect, Select: opts}
	}
	if raw == "bool" {
		return MetadataField{Type: MetadataBool}
	}
	return MetadataField{Type: MetadataText}
}

func splitNonEmpty(s string, sep byte) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == sep {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

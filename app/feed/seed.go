package feed

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadSeed reads the list of sources and keywords to register at startup.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i := range seed.Sources {
		seed.Sources[i].Name = strings.TrimSpace(seed.Sources[i].Name)
		seed.Sources[i].URL = strings.TrimSpace(seed.Sources[i].URL)
	}
	for i := range seed.Keywords {
		seed.Keywords[i].Word = strings.TrimSpace(seed.Keywords[i].Word)
	}

	if err := validateSeed(&seed); err != nil {
		return nil, err
	}

	return &seed, nil
}

func (s SeedSource) IsActive() bool {
	return s.Active == nil || *s.Active
}

func (k SeedKeyword) IsActive() bool {
	return k.Active == nil || *k.Active
}

// UnmarshalYAML accepts either a bare word or a mapping with word and active.
func (k *SeedKeyword) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		k.Word = node.Value
		return nil
	}

	type plain SeedKeyword
	var raw plain
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*k = SeedKeyword(raw)
	return nil
}

func validateSeed(seed *Seed) error {
	for i, source := range seed.Sources {
		if source.Name == "" {
			return fmt.Errorf("source name is required at index %d", i)
		}
		if source.URL == "" {
			return fmt.Errorf("source URL is required at index %d", i)
		}
		if err := ValidateSourceURL(source.URL); err != nil {
			return fmt.Errorf("invalid source at index %d: %w", i, err)
		}
	}

	for i, keyword := range seed.Keywords {
		if keyword.Word == "" {
			return fmt.Errorf("keyword word is required at index %d", i)
		}
	}

	return nil
}

func ValidateSourceURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https: %s", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL host is required: %s", raw)
	}
	return nil
}

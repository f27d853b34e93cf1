package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed networks.yaml
var defaultNetworksYaml []byte

type NetworkConfig struct {
	ApiUrl  string `yaml:"API_URL"`
	NodeUrl string `yaml:"NODE_URL"`
}

// NetworksFile is the yaml document listing explorer/node endpoints per
// network and optional named contract categories.
type NetworksFile struct {
	Networks  map[string]NetworkConfig `yaml:"networks"`
	Contracts map[string][]string      `yaml:"contracts"`
}

func ParseNetworksFile(data []byte) (*NetworksFile, error) {
	nf := &NetworksFile{}
	if err := yaml.Unmarshal(data, nf); err != nil {
		return nil, fmt.Errorf("failed to parse networks file: %w", err)
	}
	if len(nf.Networks) == 0 {
		return nil, &ConfigurationError{Key: NetworksFilePath, Message: "networks file defines no networks"}
	}
	return nf, nil
}

// LoadNetworksFile reads the file at path, falling back to the bundled
// defaults when path is empty.
func LoadNetworksFile(path string) (*NetworksFile, error) {
	if path == "" {
		return ParseNetworksFile(defaultNetworksYaml)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read networks file '%s': %w", path, err)
	}
	return ParseNetworksFile(data)
}

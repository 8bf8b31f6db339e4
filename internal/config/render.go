package config

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Render returns the effective configuration as YAML under the `evelog:`
// root key, in the form Load accepts.
func Render(cfg *GlobalConfig) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]*GlobalConfig{"evelog": cfg}); err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	return buf.Bytes(), nil
}

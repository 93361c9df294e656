package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

type seedFile struct {
	VisaTypes []VisaType `yaml:"visaTypes"`
}

// DefaultVisaTypes returns the built-in catalog shipped with the service.
func DefaultVisaTypes() []VisaType {
	visas, err := ParseSeed(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in visa catalog is invalid: %v", err))
	}
	return visas
}

// LoadSeedFile reads a catalog seed file. An empty path yields the built-in catalog.
func LoadSeedFile(path string) ([]VisaType, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultVisaTypes(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog seed: %w", err)
	}
	visas, err := ParseSeed(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return visas, nil
}

// ParseSeed decodes `visaTypes: [{id, code, name, active}]` and rejects
// missing codes and duplicate IDs or codes.
func ParseSeed(data []byte) ([]VisaType, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog seed: %w", err)
	}

	ids := make(map[int]bool, len(f.VisaTypes))
	codes := make(map[string]bool, len(f.VisaTypes))
	for i, v := range f.VisaTypes {
		code := strings.TrimSpace(v.Code)
		if code == "" {
			return nil, fmt.Errorf("visaTypes[%d]: code is required", i)
		}
		if v.ID <= 0 {
			return nil, fmt.Errorf("visaTypes[%d] (%s): id must be positive", i, code)
		}
		if ids[v.ID] {
			return nil, fmt.Errorf("visaTypes[%d]: duplicate id %d", i, v.ID)
		}
		key := strings.ToUpper(code)
		if codes[key] {
			return nil, fmt.Errorf("visaTypes[%d]: duplicate code %s", i, code)
		}
		ids[v.ID] = true
		codes[key] = true
		f.VisaTypes[i].Code = code
	}

	return f.VisaTypes, nil
}

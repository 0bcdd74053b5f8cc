package pattern

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadCatalog reads a YAML catalog override file and compiles it. Groups missing from the
// file keep the built-in rules. An empty path returns the default catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog compiles a YAML catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var def CatalogDef
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return Compile(def)
}

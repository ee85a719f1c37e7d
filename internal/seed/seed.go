// Package seed supplies the initial relations: the built-in dataset, YAML
// files, and synthetic data for development and load testing.
package seed

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"moments/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed data/builtin.yml
var builtinYAML []byte

// Builtin returns a fresh copy of the built-in dataset.
func Builtin() (*models.Dataset, error) {
	ds, err := Decode(bytes.NewReader(builtinYAML))
	if err != nil {
		return nil, fmt.Errorf("decode builtin dataset: %w", err)
	}
	return ds, nil
}

// LoadFile reads a dataset from a YAML file.
func LoadFile(path string) (*models.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer func() { _ = f.Close() }()

	ds, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	return ds, nil
}

// Decode reads a dataset document. Unknown fields are rejected so typos in
// hand-written seed files surface early.
func Decode(r io.Reader) (*models.Dataset, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var ds models.Dataset
	if err := dec.Decode(&ds); err != nil {
		if err == io.EOF {
			return &ds, nil
		}
		return nil, err
	}
	return &ds, nil
}

// Export writes ds as a YAML document that Decode accepts.
func Export(w io.Writer, ds *models.Dataset) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(ds); err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	return enc.Close()
}

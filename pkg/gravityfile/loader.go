package gravityfile

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultGroupName is the implicit group every adlist belongs to. Documents
// may reference it but must not declare it.
const DefaultGroupName = "Default"

var (
	// ErrNotFound is returned when the document path is not a readable file.
	ErrNotFound = errors.New("config file not found")
	// ErrParse is returned when the document is not valid YAML of the expected shape.
	ErrParse = errors.New("config file could not be parsed")
	// ErrValidation is returned when the document parses but is unusable.
	ErrValidation = errors.New("config file is invalid")
)

// Load reads and validates the document at path.
func Load(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrNotFound, path)
	}

	file, err := os.Open(path) // #nosec G304 -- path is provided via flags.
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	defer func() {
		_ = file.Close()
	}()

	return Parse(file)
}

// Parse decodes a document from r and validates it.
func Parse(r io.Reader) (*Document, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the structural requirements of the document.
func (d *Document) Validate() error {
	if len(d.Adlists) == 0 {
		return fmt.Errorf("%w: no ad lists specified", ErrValidation)
	}
	for i, group := range d.Groups {
		if group.Name == "" {
			return fmt.Errorf("%w: groups[%d] has no name", ErrValidation, i)
		}
		if group.Name == DefaultGroupName {
			return fmt.Errorf("%w: groups[%d] uses the reserved name %s", ErrValidation, i, DefaultGroupName)
		}
	}
	for i, adlist := range d.Adlists {
		if adlist.URL == "" {
			return fmt.Errorf("%w: adlists[%d] has no url", ErrValidation, i)
		}
	}
	return nil
}

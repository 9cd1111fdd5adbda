package yaml

import (
	"bytes"
	"fmt"
	"os"

	yamlv3 "gopkg.in/yaml.v3"
)

// UnmarshalStrict decodes YAML into out, rejecting fields out does not
// declare. A misspelled config key silently reverting to a default is
// worse than an error at load time.
func UnmarshalStrict(content []byte, out any) error {
	dec := yamlv3.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

// LoadStrict reads the file at path and strict-decodes it into out.
func LoadStrict(path string, out any) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	return UnmarshalStrict(content, out)
}

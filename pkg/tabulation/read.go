package tabulation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/dopflow/pkg/errors"
)

// Input formats.
const (
	FormatJSON = "json"
	FormatTOML = "toml"
)

// FormatFromPath infers the input format from a file extension.
// Unknown extensions default to JSON.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

// ReadJSON decodes a JSON tabulation from r.
// The result is not validated; call [Result.Validate] before building.
func ReadJSON(r io.Reader) (*Result, error) {
	var res Result
	dec := json.NewDecoder(r)
	if err := dec.Decode(&res); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode json")
	}
	return &res, nil
}

// ReadTOML decodes a TOML tabulation from r.
//
//	title = "Example count"
//
//	[[candidates]]
//	name = "A"
//
//	[[flow]]
//	eliminated = -1
//	votes = [40.0, 35.0, 25.0]
func ReadTOML(r io.Reader) (*Result, error) {
	var res Result
	if _, err := toml.NewDecoder(r).Decode(&res); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode toml")
	}
	return &res, nil
}

// Parse decodes data in the given format ("json" or "toml").
func Parse(data []byte, format string) (*Result, error) {
	switch format {
	case FormatJSON, "":
		return ReadJSON(bytes.NewReader(data))
	case FormatTOML:
		return ReadTOML(bytes.NewReader(data))
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported input format %q (must be json or toml)", format)
	}
}

// ReadFile reads and decodes the tabulation at path, choosing the decoder
// from the file extension.
func ReadFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(data, FormatFromPath(path))
}

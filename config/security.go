package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Limits applied to anything the loader reads from outside the process.
const (
	maxFileSize  = 1 << 20 // a cache list never needs more
	maxPathLen   = 4096
	maxEnvLen    = 4096
	maxJSONDepth = 32
)

type fileFormat int

const (
	formatJSON fileFormat = iota
	formatYAML
)

// formatOf picks the encoding from the file extension
func formatOf(path string) (fileFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return formatJSON, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	default:
		return 0, fmt.Errorf("unsupported config file %q: want .json, .yaml or .yml", path)
	}
}

// checkPath rejects paths the service should never read or write. Absolute
// paths are taken as given; relative ones must stay under the working directory.
func checkPath(path string) error {
	if path == "" {
		return fmt.Errorf("empty config path")
	}
	if len(path) > maxPathLen {
		return fmt.Errorf("config path longer than %d bytes", maxPathLen)
	}
	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("config path contains a NUL byte")
	}
	if filepath.IsAbs(path) {
		return nil
	}
	if clean := filepath.Clean(path); clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("config path %q leaves the working directory", path)
	}
	return nil
}

// readConfigFile reads one config layer after checking its path, type and size
func readConfigFile(path string) ([]byte, fileFormat, error) {
	format, err := formatOf(path)
	if err != nil {
		return nil, 0, err
	}
	if err := checkPath(path); err != nil {
		return nil, 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, 0, err
	}
	if !info.Mode().IsRegular() {
		return nil, 0, fmt.Errorf("%s is not a regular file", path)
	}

	// Read one byte past the limit so a file that grew after Stat is still caught
	data, err := io.ReadAll(io.LimitReader(f, maxFileSize+1))
	if err != nil {
		return nil, 0, err
	}
	if len(data) > maxFileSize {
		return nil, 0, fmt.Errorf("%s exceeds %d bytes", path, maxFileSize)
	}
	return data, format, nil
}

// writeConfigFile stores a rendered config readable only by its owner
func writeConfigFile(path string, data []byte) error {
	if _, err := formatOf(path); err != nil {
		return err
	}
	if err := checkPath(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// checkEnv bounds an override taken from the environment
func checkEnv(key, value string) error {
	if len(value) > maxEnvLen {
		return fmt.Errorf("%s longer than %d bytes", key, maxEnvLen)
	}
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("%s contains a NUL byte", key)
	}
	return nil
}

// checkJSONDepth walks the token stream and fails once objects or arrays nest
// deeper than maxJSONDepth. Syntax errors are left to the real decode.
func checkJSONDepth(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil
		}
		delim, ok := tok.(json.Delim)
		if !ok {
			continue
		}
		switch delim {
		case '{', '[':
			if depth++; depth > maxJSONDepth {
				return fmt.Errorf("JSON nests deeper than %d levels", maxJSONDepth)
			}
		case '}', ']':
			depth--
		}
	}
}

// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/literal"
	"github.com/pelletier/go-toml/v2"
)

// ErrConfigFileExists is returned by WriteConfigFile when the target already exists.
var ErrConfigFileExists = errors.New("config file already exists")

// GenerateCUE renders s as a CUE document accepted by the #Config schema.
func GenerateCUE(s *Settings) string {
	var sb strings.Builder

	sb.WriteString("// webexport configuration\n")
	sb.WriteString("// Relative paths are resolved against the directory of this file.\n\n")

	sb.WriteString("// Build args\n")
	writeField(&sb, KeyBaseURL, s.BaseURL)
	writeField(&sb, KeyOSSRegion, s.OSSRegion)
	writeField(&sb, KeyOSSBucket, s.OSSBucket)

	sb.WriteString("\n// Paths\n")
	writeField(&sb, KeyContextDir, s.ContextDir)
	// A build file that follows the context is left out so it keeps following it.
	if s.BuildFile != "" && s.BuildFile != filepath.Join(s.ContextDir, DockerfileName) {
		writeField(&sb, KeyBuildFile, s.BuildFile)
	}
	writeField(&sb, KeyDestDir, s.DestDir)

	sb.WriteString("\n")
	writeField(&sb, KeyBuildTarget, s.BuildTarget)
	writeField(&sb, KeyContainerEngine, string(s.ContainerEngine))

	return sb.String()
}

func writeField(sb *strings.Builder, key, value string) {
	fmt.Fprintf(sb, "%s: %s\n", key, literal.String.Quote(value))
}

// GenerateTOML renders s as TOML.
func GenerateTOML(s *Settings) (string, error) {
	data, err := toml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to encode settings as TOML: %w", err)
	}
	return string(data), nil
}

// WriteConfigFile writes s as CUE to path, refusing to overwrite an existing file.
func WriteConfigFile(path string, s *Settings) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrConfigFileExists, path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(s)), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

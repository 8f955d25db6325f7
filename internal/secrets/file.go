package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileDocument is the on-disk layout read by FileSource:
//
//	secrets:
//	  urls-node/db: '{"username":"app","password":"..."}'
type fileDocument struct {
	Secrets map[string]string `yaml:"secrets"`
}

// FileSource serves secrets from a local YAML file. It is meant for local runs
// where no managed secret store exists. The file is re-read on every call so
// edits behave like a rotation.
type FileSource struct {
	path string
}

// NewFileSource creates a Source reading path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: filepath.Clean(path)}
}

func (f *FileSource) GetSecret(_ context.Context, secretID string) (string, error) {
	data, err := os.ReadFile(f.path) //#nosec G304 -- path comes from operator configuration
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSecretUnavailable, err)
	}

	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("%w: invalid secrets file: %w", ErrSecretUnavailable, err)
	}

	value, ok := doc.Secrets[secretID]
	if !ok {
		return "", fmt.Errorf("%w: unknown secret %q", ErrSecretUnavailable, secretID)
	}

	return value, nil
}

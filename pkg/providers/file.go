package providers

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

type FileProvider struct{}

func NewFileProvider() *FileProvider {
	return &FileProvider{}
}

// Trailing newlines are stripped, a leading ~/ is the home directory
func (p *FileProvider) Read(ctx context.Context, secrets map[string]string) (map[string]string, error) {
	result := make(map[string]string, len(secrets))
	for name, path := range secrets {
		path = expandHome(path)
		content, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("secret", name).Str("file", path).Msg("failed to read secret file")
			continue
		}
		result[name] = strings.TrimRight(string(content), "\r\n")
	}
	return result, nil
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}

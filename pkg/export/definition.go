package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fabricops/fabricctl/pkg/models"
	"github.com/google/renameio/v2"
	"github.com/rs/zerolog/log"
)

var ErrPathEscape = errors.New("definition part escapes the item directory")

// Directory of an item below dir, <displayName>.<type>
func ItemDir(dir string, item models.Item) string {
	name := strings.NewReplacer("/", "_", `\`, "_").Replace(item.DisplayName)
	if name == "" || name == "." || name == ".." {
		name = item.ID
	}
	return filepath.Join(dir, name+"."+item.Type)
}

// Write every part of the definition below ItemDir. Each file is replaced
// atomically. Returns the item directory.
func WriteDefinition(dir string, item models.Item, def *models.ItemDefinition) (string, error) {
	root := ItemDir(dir, item)
	for _, part := range def.Parts {
		target, err := partPath(root, part.Path)
		if err != nil {
			return "", err
		}
		content, err := part.Content()
		if err != nil {
			return "", err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return "", err
		}
		if err := writeFile(target, content); err != nil {
			return "", err
		}
		log.Debug().Str("item_id", item.ID).Str("path", target).Int("bytes", len(content)).Msg("wrote definition part")
	}
	return root, nil
}

func writeFile(path string, content []byte) error {
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending file %s: %w", path, err)
	}
	defer func() {
		_ = pending.Cleanup()
	}()

	if _, err := pending.Write(content); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func partPath(root, part string) (string, error) {
	if part == "" || filepath.IsAbs(part) || strings.HasPrefix(part, "/") {
		return "", fmt.Errorf("%w: %q", ErrPathEscape, part)
	}
	target := filepath.Join(root, filepath.FromSlash(part))
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrPathEscape, part)
	}
	return target, nil
}

// Read every file below dir back into a definition. Part paths use forward
// slashes and are relative to dir.
func ReadDefinition(dir string) (*models.ItemDefinition, error) {
	def := &models.ItemDefinition{Parts: []models.DefinitionPart{}}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		def.Parts = append(def.Parts, models.NewDefinitionPart(filepath.ToSlash(rel), content))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(def.Parts) == 0 {
		return nil, fmt.Errorf("%s contains no definition parts", dir)
	}
	return def, nil
}

package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fabricops/fabricctl/pkg/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.Logger = zerolog.Nop()
}

var notebook = models.Item{ID: "8b0f4c5e-7d1a-4f62-9a53-2f7c0c6a1b11", DisplayName: "Daily Load", Type: "Notebook"}

func TestWriteDefinition(t *testing.T) {
	dir := t.TempDir()
	def := &models.ItemDefinition{Parts: []models.DefinitionPart{
		models.NewDefinitionPart("notebook-content.py", []byte("print('hi')\n")),
		models.NewDefinitionPart(".platform", []byte(`{"metadata":{"displayName":"Daily Load"}}`)),
		models.NewDefinitionPart("resources/lib/util.py", []byte("x = 1\n")),
	}}

	root, err := WriteDefinition(dir, notebook, def)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Daily Load.Notebook"), root)

	content, err := os.ReadFile(filepath.Join(root, "resources", "lib", "util.py"))
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", string(content))

	// rewriting replaces files in place
	def.Parts[0] = models.NewDefinitionPart("notebook-content.py", []byte("print('bye')\n"))
	_, err = WriteDefinition(dir, notebook, def)
	require.NoError(t, err)
	content, err = os.ReadFile(filepath.Join(root, "notebook-content.py"))
	require.NoError(t, err)
	assert.Equal(t, "print('bye')\n", string(content))

	read, err := ReadDefinition(root)
	require.NoError(t, err)
	paths := []string{}
	for _, part := range read.Parts {
		paths = append(paths, part.Path)
		assert.Equal(t, models.PayloadInlineBase64, part.PayloadType)
	}
	assert.ElementsMatch(t, []string{".platform", "notebook-content.py", "resources/lib/util.py"}, paths)
}

func TestWriteDefinitionRejectsEscapes(t *testing.T) {
	dir := t.TempDir()
	for _, path := range []string{"../outside.txt", "/etc/passwd", "a/../../b", "", "."} {
		t.Run(path, func(t *testing.T) {
			def := &models.ItemDefinition{Parts: []models.DefinitionPart{models.NewDefinitionPart(path, []byte("x"))}}
			_, err := WriteDefinition(dir, notebook, def)
			assert.ErrorIs(t, err, ErrPathEscape)
		})
	}
	_, err := os.Stat(filepath.Join(dir, "outside.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestWriteDefinitionBadPayload(t *testing.T) {
	def := &models.ItemDefinition{Parts: []models.DefinitionPart{{Path: "a.py", Payload: "%%%", PayloadType: models.PayloadInlineBase64}}}
	_, err := WriteDefinition(t.TempDir(), notebook, def)
	assert.Error(t, err)
}

func TestItemDir(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "a_b.Lakehouse"), ItemDir("out", models.Item{DisplayName: "a/b", Type: "Lakehouse"}))
	assert.Equal(t, filepath.Join("out", "id-1.Lakehouse"), ItemDir("out", models.Item{ID: "id-1", DisplayName: "..", Type: "Lakehouse"}))
}

func TestReadDefinitionEmpty(t *testing.T) {
	_, err := ReadDefinition(t.TempDir())
	assert.Error(t, err)
}

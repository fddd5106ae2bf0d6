package persona

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("yaml file", func(t *testing.T) {
		path := filepath.Join(dir, "persona.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
identity:
  name: Bob
  type: sahabat digital reflektif
  purpose: belajar dari Naufal
style:
  tone: santai
  language: Bahasa Indonesia
rules:
  - Jawab singkat
behaviors:
  - Balas sopan dengan keren
manifesto:
  - Aku adalah Bob.
`), 0o644))

		p, err := Load(path)
		require.NoError(t, err)
		prompt := p.SystemPrompt()
		assert.Contains(t, prompt, "My name is Bob, I am sahabat digital reflektif.")
		assert.Contains(t, prompt, "- Jawab singkat")
		assert.Contains(t, prompt, "- Balas sopan dengan keren")
		assert.Contains(t, prompt, "Aku adalah Bob.")
	})

	t.Run("missing file falls back to default", func(t *testing.T) {
		p, err := Load(filepath.Join(dir, "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "Bob", p.Identity.Name)
	})

	t.Run("empty path", func(t *testing.T) {
		p, err := Load("")
		require.NoError(t, err)
		assert.NotEmpty(t, p.SystemPrompt())
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("identity: [unterminated"), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("name required", func(t *testing.T) {
		path := filepath.Join(dir, "anon.yaml")
		require.NoError(t, os.WriteFile(path, []byte("style:\n  tone: dry\n"), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})
}

package web

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplates(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)
	assert.NotNil(t, tmpl.Lookup(PageTemplate))
}

func TestStatic(t *testing.T) {
	for _, name := range []string{"/app.js", "/style.css"} {
		f, err := Static().Open(name)
		require.NoError(t, err, name)

		body, err := io.ReadAll(f)
		require.NoError(t, err)
		_ = f.Close()
		assert.NotEmpty(t, body, name)
	}
}

func TestAppScriptUsesTextContent(t *testing.T) {
	f, err := Static().Open("/app.js")
	require.NoError(t, err)
	defer f.Close()

	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.True(t, bytes.Contains(body, []byte("textContent")))
	assert.False(t, bytes.Contains(body, []byte("innerHTML")))
}

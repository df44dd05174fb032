package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplateFastPath(t *testing.T) {
	out, err := RenderTemplate("no markers here", nil)

	require.NoError(t, err)
	assert.Equal(t, "no markers here", out)
}

func TestRenderTemplateWithDefault(t *testing.T) {
	out, err := RenderTemplate(`Inquiry: {{default "[unknown]" .inquiry_id}}`, map[string]any{"inquiry_id": nil})

	require.NoError(t, err)
	assert.Equal(t, "Inquiry: [unknown]", out)
}

func TestRenderTemplateSubstitutes(t *testing.T) {
	out, err := RenderTemplate("Hello {{.name}}", map[string]any{"name": "Anna"})

	require.NoError(t, err)
	assert.Equal(t, "Hello Anna", out)
}

func TestFingerprintNormalizes(t *testing.T) {
	assert.Equal(t, Fingerprint("Holzbau  Kosten"), Fingerprint("holzbau kosten"))
	assert.NotEqual(t, Fingerprint("a"), Fingerprint("b"))
	assert.Len(t, Fingerprint("x"), 64)
}

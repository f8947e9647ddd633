package components_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/lifevault/core/email/templates"
	"github.com/dmitrymomot/lifevault/core/email/templates/components"
)

func TestLayout(t *testing.T) {
	t.Parallel()

	html, err := templates.Render(context.Background(), components.Layout("Code <1>",
		components.Header("Hello", "sub"),
		components.OTP("012345"),
		nil,
		components.Text("a & b"),
		components.TextSecondary("muted"),
		components.TextWarning("careful"),
		components.Footer("bye"),
	))
	require.NoError(t, err)

	assert.Contains(t, html, "<!DOCTYPE html>")
	assert.Contains(t, html, "<title>Code &lt;1&gt;</title>")
	assert.Contains(t, html, ">012345</p>")
	assert.Contains(t, html, "a &amp; b")
	assert.Contains(t, html, ">sub</p>")
	assert.Contains(t, html, "</html>")
}

func TestHeader_NoSubtitle(t *testing.T) {
	t.Parallel()

	html, err := templates.Render(context.Background(), components.Header("Only title", ""))
	require.NoError(t, err)
	assert.Equal(t, `<h1 style="margin:0 0 8px;font-size:22px;color:#111827;">Only title</h1>`, html)
}

package email_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/lifevault/core/email"
)

func validParams() email.SendEmailParams {
	return email.SendEmailParams{
		SendTo:   "user@example.com",
		Subject:  "Your sign-in code",
		BodyHTML: "<p>123456</p>",
		Tag:      "login-2fa",
	}
}

func TestSendEmailParams_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validParams().Validate())

	tests := []struct {
		name   string
		mutate func(*email.SendEmailParams)
	}{
		{"missing recipient", func(p *email.SendEmailParams) { p.SendTo = "" }},
		{"bad recipient", func(p *email.SendEmailParams) { p.SendTo = "not-an-address" }},
		{"missing subject", func(p *email.SendEmailParams) { p.Subject = " " }},
		{"missing body", func(p *email.SendEmailParams) { p.BodyHTML = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := validParams()
			tt.mutate(&p)
			assert.ErrorIs(t, p.Validate(), email.ErrInvalidParams)
		})
	}
}

func TestDevSender(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "mail")
	sender := email.NewDevSender(dir)

	require.NoError(t, sender.SendEmail(context.Background(), validParams()))
	require.NoError(t, sender.SendEmail(context.Background(), validParams()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	var html int
	for _, e := range entries {
		assert.Contains(t, e.Name(), "login-2fa")
		if strings.HasSuffix(e.Name(), ".html") {
			html++
			body, err := os.ReadFile(filepath.Join(dir, e.Name()))
			require.NoError(t, err)
			assert.Equal(t, "<p>123456</p>", string(body))
		}
	}
	assert.Equal(t, 2, html)

	err = sender.SendEmail(context.Background(), email.SendEmailParams{})
	assert.ErrorIs(t, err, email.ErrInvalidParams)
}

func TestMemorySender(t *testing.T) {
	t.Parallel()

	sender := email.NewMemorySender()
	_, ok := sender.Last()
	assert.False(t, ok)

	require.NoError(t, sender.SendEmail(context.Background(), validParams()))
	last, ok := sender.Last()
	require.True(t, ok)
	assert.Equal(t, "user@example.com", last.SendTo)

	boom := errors.New("smtp down")
	sender.FailWith(boom)
	assert.ErrorIs(t, sender.SendEmail(context.Background(), validParams()), boom)
	assert.Len(t, sender.Sent(), 1)
}

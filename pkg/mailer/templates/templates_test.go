package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	cases := []struct {
		name string
		data map[string]any
		want string
	}{
		{"verify_email", map[string]any{"Name": "Ada", "VerifyURL": "https://x/verify?token=abc", "ExpiresIn": "24 hours"}, "https://x/verify?token=abc"},
		{"reset_password", map[string]any{"Name": "Ada", "ResetURL": "https://x/reset?token=abc", "ExpiresIn": "1 hour"}, "https://x/reset?token=abc"},
		{"two_factor_code", map[string]any{"Name": "Ada", "Code": "123456", "ExpiresIn": "5 minutes"}, "123456"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			subject, html, err := Render(tc.name, tc.data)
			require.NoError(t, err)
			assert.NotEmpty(t, subject)
			assert.Contains(t, html, tc.want)
			assert.Contains(t, html, "Ada")
		})
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, _, err := Render("no_such_template", nil)
	assert.Error(t, err)
}

package templates

import (
	"bytes"
	"embed"
	"fmt"
	htmpl "html/template"
)

//go:embed *.tmpl
var FS embed.FS

var subjects = map[string]string{
	"verify_email":    "Verify your email address",
	"reset_password":  "Reset your password",
	"two_factor_code": "Your login code",
}

// Render executes the named embedded template with data and returns the
// subject and HTML body.
func Render(name string, data map[string]any) (subject, html string, err error) {
	subject, ok := subjects[name]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", name)
	}
	t, err := htmpl.ParseFS(FS, name+".tmpl")
	if err != nil {
		return "", "", err
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name+".tmpl", data); err != nil {
		return "", "", err
	}
	return subject, buf.String(), nil
}

package components

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// Layout renders the base HTML document around body.
func Layout(title string, body ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>%s</title></head>`+
			`<body style="margin:0;padding:0;background:#f4f5f7;font-family:Helvetica,Arial,sans-serif;">`+
			`<table role="presentation" width="100%%" cellpadding="0" cellspacing="0"><tr><td align="center" style="padding:32px 16px;">`+
			`<table role="presentation" width="560" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:8px;padding:32px;">`,
			templ.EscapeString(title)); err != nil {
			return err
		}
		for _, c := range body {
			if c == nil {
				continue
			}
			if _, err := io.WriteString(w, `<tr><td>`); err != nil {
				return err
			}
			if err := c.Render(ctx, w); err != nil {
				return err
			}
			if _, err := io.WriteString(w, `</td></tr>`); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</table></td></tr></table></body></html>`)
		return err
	})
}

// Header renders the main heading and an optional subtitle.
func Header(title, subtitle string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<h1 style="margin:0 0 8px;font-size:22px;color:#111827;">%s</h1>`, templ.EscapeString(title)); err != nil {
			return err
		}
		if subtitle == "" {
			return nil
		}
		_, err := fmt.Fprintf(w, `<p style="margin:0 0 16px;color:#6b7280;">%s</p>`, templ.EscapeString(subtitle))
		return err
	})
}

// Text renders a paragraph.
func Text(text string) templ.Component {
	return paragraph(text, "#111827", "")
}

// TextSecondary renders a muted paragraph.
func TextSecondary(text string) templ.Component {
	return paragraph(text, "#6b7280", "font-size:13px;")
}

// TextWarning renders a highlighted paragraph.
func TextWarning(text string) templ.Component {
	return paragraph(text, "#92400e", "background:#fef3c7;padding:12px;border-radius:4px;")
}

// OTP renders a one-time code in large monospaced digits.
func OTP(code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<p style="margin:24px 0;text-align:center;font-family:Menlo,Consolas,monospace;font-size:32px;letter-spacing:8px;font-weight:bold;color:#111827;">%s</p>`,
			templ.EscapeString(code))
		return err
	})
}

// Footer renders the closing line.
func Footer(text string) templ.Component {
	return paragraph(text, "#9ca3af", "font-size:12px;border-top:1px solid #e5e7eb;padding-top:16px;margin-top:24px;")
}

func paragraph(text, color, extra string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<p style="margin:0 0 12px;line-height:1.5;color:%s;%s">%s</p>`, color, extra, templ.EscapeString(text))
		return err
	})
}

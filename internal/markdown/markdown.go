// Package markdown renders user-written text (message bodies, room
// descriptions) to HTML.
package markdown

import (
	"bytes"
	"html/template"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// goldmark instances are safe for concurrent use once configured.
var (
	instance goldmark.Markdown
	once     sync.Once
)

func converter() goldmark.Markdown {
	once.Do(func() {
		// Raw HTML in the source is omitted; html.WithUnsafe is never set.
		instance = goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
			),
			goldmark.WithRendererOptions(
				html.WithHardWraps(),
			),
		)
	})
	return instance
}

// Render converts markdown source to HTML safe to embed in a page.
// On conversion failure the escaped source is returned.
func Render(source string) template.HTML {
	if source == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := converter().Convert([]byte(source), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(source)) //nolint:gosec // escaped above
	}
	return template.HTML(buf.String()) //nolint:gosec // goldmark drops raw HTML without WithUnsafe
}

// Package markup turns untrusted director text into html that is safe to morph into the page.
package markup

import (
	"bytes"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	// Raw html passes through goldmark so the sanitizer decides what survives, not the markdown renderer.
	md = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithUnsafe()),
	)
	ugc       = bluemonday.UGCPolicy()
	fragments = fragmentPolicy()
)

func fragmentPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Globally()
	p.AllowDataAttributes()
	p.AllowElements("section", "header", "footer")
	return p
}

// Markdown renders src as sanitized html. Unknown tags are dropped but their text is kept.
func Markdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(ugc.SanitizeBytes(buf.Bytes()))
}

// SanitizeFragment strips scripts and event handler attributes from a drawer fragment, keeping id, class and data-*.
func SanitizeFragment(src []byte) []byte {
	return fragments.SanitizeBytes(src)
}

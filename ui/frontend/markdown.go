package frontend

import (
	"bytes"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	md = goldmark.New(goldmark.WithExtensions(extension.GFM))

	// agent output is untrusted
	mdPolicy = bluemonday.UGCPolicy()
)

// markdown renders an agent response as sanitized HTML.
func markdown(input string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(input), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(input))
	}
	return template.HTML(mdPolicy.SanitizeBytes(buf.Bytes()))
}

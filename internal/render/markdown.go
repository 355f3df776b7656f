// Package render turns post content into HTML fragments.
package render

import (
	"bytes"
	"html"
	"html/template"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// The goldmark instance is shared; its configuration never changes and
// Convert keeps per-call state.
var (
	markdownInstance goldmark.Markdown
	markdownOnce     sync.Once
)

func getMarkdown() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownInstance = goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
			),
			// Raw HTML stays disabled (no WithUnsafe): posts are user input.
			goldmark.WithRendererOptions(
				gmhtml.WithHardWraps(),
			),
		)
	})
	return markdownInstance
}

// Plain escapes text and keeps its line breaks.
func Plain(text string) template.HTML {
	escaped := html.EscapeString(text)
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}

// Markdown renders text as GitHub-flavoured markdown. It falls back to Plain
// if conversion fails.
func Markdown(text string) template.HTML {
	if text == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := getMarkdown().Convert([]byte(text), &buf); err != nil {
		return Plain(text)
	}
	return template.HTML(buf.String())
}

// Content picks Markdown or Plain.
func Content(text string, markdown bool) template.HTML {
	if markdown {
		return Markdown(text)
	}
	return Plain(text)
}

package format

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	markdownHint = regexp.MustCompile("(?m)(^#{1,6}\\s|\\*\\*|__|```|`[^`\\n]+`|^\\s*[*+]\\s+\\S|^\\s*>\\s|\\[[^\\]\\n]+\\]\\([^)\\n]+\\))")
	blankRuns    = regexp.MustCompile(`\n{3,}`)
)

// PlainText strips markdown markup from s while keeping its line structure.
// Text without markup is returned as is.
func PlainText(s string) string {
	if !markdownHint.MatchString(s) {
		return s
	}
	src := []byte(s)
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))
	out := strings.Join(childBlocks(doc, src), "\n\n")
	return strings.TrimSpace(blankRuns.ReplaceAllString(out, "\n\n"))
}

func childBlocks(n ast.Node, src []byte) []string {
	var parts []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if s := blockText(c, src); s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

func blockText(n ast.Node, src []byte) string {
	switch n := n.(type) {
	case *ast.Heading, *ast.Paragraph, *ast.TextBlock:
		var b strings.Builder
		writeInline(&b, n, src)
		return strings.TrimSpace(b.String())
	case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
		var b strings.Builder
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(src))
		}
		return strings.TrimRight(b.String(), "\n")
	case *ast.List:
		var items []string
		num := n.Start
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			marker := "- "
			if n.IsOrdered() {
				marker = strconv.Itoa(num) + ". "
				num++
			}
			body := strings.Join(childBlocks(item, src), "\n")
			items = append(items, marker+strings.ReplaceAll(body, "\n", "\n  "))
		}
		return strings.Join(items, "\n")
	case *ast.ThematicBreak:
		return ""
	default:
		return strings.Join(childBlocks(n, src), "\n\n")
	}
}

func writeInline(b *strings.Builder, n ast.Node, src []byte) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Text:
			b.Write(c.Segment.Value(src))
			if c.SoftLineBreak() || c.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(c.Value)
		case *ast.AutoLink:
			b.Write(c.URL(src))
		case *ast.RawHTML:
			for i := 0; i < c.Segments.Len(); i++ {
				seg := c.Segments.At(i)
				b.Write(seg.Value(src))
			}
		default:
			writeInline(b, c, src)
		}
	}
}

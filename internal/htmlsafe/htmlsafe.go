// Package htmlsafe prepares model output for Telegram's HTML parse mode,
// which accepts only a handful of tags and rejects the whole message on
// anything else.
package htmlsafe

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var allowed = map[string]bool{
	"b": true, "strong": true, "i": true, "em": true, "u": true, "ins": true,
	"s": true, "strike": true, "del": true, "code": true, "pre": true,
	"blockquote": true, "tg-spoiler": true, "a": true,
}

// Escape escapes text for an HTML message body.
func Escape(s string) string { return html.EscapeString(s) }

// Sanitize keeps supported tags and escapes everything else. Unsupported
// elements are unwrapped to their text; <br> becomes a newline. Plain text
// comes back escaped but otherwise unchanged.
func Sanitize(s string) string {
	if !strings.Contains(s, "<") {
		return Escape(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return Escape(s)
	}
	var b strings.Builder
	render(&b, doc.Find("body").First())
	return b.String()
}

func render(b *strings.Builder, sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, c *goquery.Selection) {
		switch name := goquery.NodeName(c); {
		case name == "#text":
			b.WriteString(Escape(c.Text()))
		case name == "br":
			b.WriteByte('\n')
		case name == "a":
			href, _ := c.Attr("href")
			if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") && !strings.HasPrefix(href, "tg://") {
				render(b, c)
				return
			}
			b.WriteString(`<a href="` + Escape(href) + `">`)
			render(b, c)
			b.WriteString("</a>")
		case allowed[name]:
			b.WriteString("<" + name + ">")
			render(b, c)
			b.WriteString("</" + name + ">")
		case strings.HasPrefix(name, "#"):
			// comments, doctype
		default:
			render(b, c)
		}
	})
}

// Blockquote wraps already-safe HTML in a quote block.
func Blockquote(inner string) string {
	return "<blockquote>" + inner + "</blockquote>"
}

// Text strips all markup, for places that cannot render HTML.
func Text(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return doc.Find("body").Text()
}

package web

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// noticeMarkdown renders the operator notice. Raw HTML in the source is
// dropped by goldmark's default renderer before sanitizing.
var noticeMarkdown = goldmark.New(goldmark.WithExtensions(extension.Strikethrough, extension.Linkify))

// noticePolicy admits paragraphs, emphasis, inline code, lists and http(s)
// or mailto links. Everything else is stripped with its markup.
var noticePolicy = newNoticePolicy()

func newNoticePolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "strong", "em", "del", "code", "ul", "ol", "li")
	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https", "mailto")
	p.RequireParseableURLs(true)
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// RenderNotice converts operator-supplied markdown to the restricted HTML
// shown under the status. Empty input renders nothing.
func RenderNotice(src string) string {
	if src == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := noticeMarkdown.Convert([]byte(src), &buf); err != nil {
		return noticePolicy.Sanitize(src)
	}
	return noticePolicy.Sanitize(buf.String())
}

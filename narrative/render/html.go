// Package render turns parsed narrative summaries into display markup.
package render

import (
	"html"
	"strings"

	"policydesk-backend/narrative"
)

// HTML renders a parsed summary as semantic HTML. Section titles become h3
// headings, bullet items become list entries and bold spans become strong tags.
func HTML(summary narrative.Summary) string {
	var b strings.Builder
	for _, block := range summary.Blocks {
		switch block.Kind {
		case narrative.KindSection:
			writeSection(&b, block)
		case narrative.KindBullet:
			b.WriteString("<ul><li>")
			writeSpans(&b, block.Spans)
			b.WriteString("</li></ul>\n")
		case narrative.KindParagraph:
			b.WriteString("<p>")
			writeSpans(&b, block.Spans)
			b.WriteString("</p>\n")
		case narrative.KindBlank:
			// nothing to render
		}
	}
	return b.String()
}

func writeSection(b *strings.Builder, block narrative.Block) {
	b.WriteString("<h3>")
	if block.TitleBold {
		b.WriteString("<strong>")
		b.WriteString(html.EscapeString(block.Title))
		b.WriteString("</strong>")
	} else {
		b.WriteString(html.EscapeString(block.Title))
	}
	b.WriteString("</h3>\n")

	if len(block.Lead) > 0 {
		b.WriteString("<p>")
		writeSpans(b, block.Lead)
		b.WriteString("</p>\n")
	}

	if len(block.Items) > 0 {
		b.WriteString("<ul>")
		for _, item := range block.Items {
			b.WriteString("<li>")
			writeSpans(b, item)
			b.WriteString("</li>")
		}
		b.WriteString("</ul>\n")
	}
}

func writeSpans(b *strings.Builder, spans []narrative.Span) {
	for _, span := range spans {
		escaped := strings.ReplaceAll(html.EscapeString(span.Text), "\n", "<br>\n")
		if span.Bold {
			b.WriteString("<strong>")
			b.WriteString(escaped)
			b.WriteString("</strong>")
			continue
		}
		b.WriteString(escaped)
	}
}

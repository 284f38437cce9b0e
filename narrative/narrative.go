// Package narrative parses the plain-text summary convention produced by the
// extraction provider: blank-line-delimited blocks, [Subheader] section titles,
// **bold** spans and • bullet lines.
package narrative

import "strings"

// BlockKind identifies how a block should be presented.
type BlockKind int

const (
	KindParagraph BlockKind = iota
	KindSection
	KindBullet
	KindBlank
)

func (k BlockKind) String() string {
	switch k {
	case KindParagraph:
		return "paragraph"
	case KindSection:
		return "section"
	case KindBullet:
		return "bullet"
	case KindBlank:
		return "blank"
	default:
		return "unknown"
	}
}

// Span is a run of text with a single style.
type Span struct {
	Text string
	Bold bool
}

// Block is one blank-line-delimited unit of a summary.
type Block struct {
	Kind BlockKind

	// Section fields. Title holds the subheader without brackets; TitleBold
	// marks the **[Title]** form.
	Title     string
	TitleBold bool
	Lead      []Span
	Items     [][]Span

	// Paragraph and Bullet content.
	Spans []Span

	raw string
}

// Raw returns the verbatim source text of the block.
func (b Block) Raw() string { return b.raw }

// Summary is a parsed narrative summary.
type Summary struct {
	Blocks []Block

	source string
}

// Source returns the exact text the summary was parsed from.
func (s Summary) Source() string { return s.source }

// Parse splits text into blocks on blank lines and classifies each one.
// Parse followed by Source reproduces the input byte for byte.
func Parse(text string) Summary {
	segments := strings.Split(text, "\n\n")
	blocks := make([]Block, 0, len(segments))
	for _, segment := range segments {
		blocks = append(blocks, classify(segment))
	}
	return Summary{Blocks: blocks, source: text}
}

func classify(segment string) Block {
	trimmed := strings.TrimSpace(segment)
	if trimmed == "" {
		return Block{Kind: KindBlank, raw: segment}
	}

	lines := strings.Split(segment, "\n")
	if title, bold, ok := sectionTitle(lines[0]); ok {
		return parseSection(segment, lines[1:], title, bold)
	}

	if strings.HasPrefix(trimmed, "•") {
		item := strings.TrimSpace(strings.TrimPrefix(trimmed, "•"))
		return Block{Kind: KindBullet, Spans: splitSpans(item), raw: segment}
	}

	return Block{Kind: KindParagraph, Spans: splitSpans(segment), raw: segment}
}

// sectionTitle recognizes "[Title]" and "**[Title]**" header lines.
func sectionTitle(line string) (string, bool, bool) {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "**[") && strings.HasSuffix(trimmed, "]**") && len(trimmed) > 6 {
		title := trimmed[3 : len(trimmed)-3]
		if strings.TrimSpace(title) != "" {
			return title, true, true
		}
	}
	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") && len(trimmed) > 2 {
		title := trimmed[1 : len(trimmed)-1]
		if strings.TrimSpace(title) != "" {
			return title, false, true
		}
	}
	return "", false, false
}

func parseSection(segment string, body []string, title string, bold bool) Block {
	var leadLines []string
	var items [][]Span
	for _, line := range body {
		lineTrimmed := strings.TrimSpace(line)
		if strings.HasPrefix(lineTrimmed, "•") {
			item := strings.TrimSpace(strings.TrimPrefix(lineTrimmed, "•"))
			items = append(items, splitSpans(item))
			continue
		}
		leadLines = append(leadLines, line)
	}

	var lead []Span
	if len(leadLines) > 0 {
		leadText := strings.TrimSpace(strings.Join(leadLines, "\n"))
		if leadText != "" {
			lead = splitSpans(leadText)
		}
	}

	return Block{
		Kind:      KindSection,
		Title:     title,
		TitleBold: bold,
		Lead:      lead,
		Items:     items,
		raw:       segment,
	}
}

// splitSpans splits on "**" pairs; odd split indexes are bold runs.
func splitSpans(text string) []Span {
	parts := strings.Split(text, "**")
	spans := make([]Span, 0, len(parts))
	for i, part := range parts {
		if part == "" {
			continue
		}
		spans = append(spans, Span{Text: part, Bold: i%2 == 1})
	}
	return spans
}

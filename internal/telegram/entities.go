package telegram

import (
	"strings"

	"github.com/gotd/td/telegram/message/styling"
)

// Style of a message segment.
type Style int

const (
	Plain Style = iota
	Bold
	Italic
	Strike
	Code
	Pre
	Link
)

// Segment is a run of text with one style. Arg carries the language of a
// Pre block or the target of a Link.
type Segment struct {
	Style Style
	Text  string
	Arg   string
}

// delimiters are tried in order at every position, longest first so that
// ``` is not read as three inline code markers.
var delimiters = []struct {
	marker string
	style  Style
}{
	{"```", Pre},
	{"**", Bold},
	{"__", Italic},
	{"~~", Strike},
	{"`", Code},
}

// ParseMarkdown splits text into styled segments. It understands **bold**,
// __italic__, ~~strike~~, `code`, ```pre``` blocks with an optional
// language line and [text](url) links. Styles do not nest and an unclosed
// marker is kept as literal text.
func ParseMarkdown(text string) []Segment {
	var (
		out   []Segment
		plain strings.Builder
	)
	flush := func() {
		if plain.Len() > 0 {
			out = append(out, Segment{Style: Plain, Text: plain.String()})
			plain.Reset()
		}
	}

	for i := 0; i < len(text); {
		if seg, n, ok := parseAt(text[i:]); ok {
			flush()
			out = append(out, seg)
			i += n
			continue
		}
		plain.WriteByte(text[i])
		i++
	}
	flush()
	return out
}

// parseAt tries to read one styled segment at the start of s and returns
// it with the number of bytes consumed.
func parseAt(s string) (Segment, int, bool) {
	if strings.HasPrefix(s, "[") {
		return parseLink(s)
	}
	for _, d := range delimiters {
		if !strings.HasPrefix(s, d.marker) {
			continue
		}
		rest := s[len(d.marker):]
		end := strings.Index(rest, d.marker)
		if end <= 0 {
			return Segment{}, 0, false
		}
		body := rest[:end]
		n := len(d.marker)*2 + end
		if d.style == Pre {
			lang, code := splitLanguage(body)
			return Segment{Style: Pre, Text: code, Arg: lang}, n, true
		}
		return Segment{Style: d.style, Text: body}, n, true
	}
	return Segment{}, 0, false
}

func parseLink(s string) (Segment, int, bool) {
	closeText := strings.Index(s, "](")
	if closeText <= 1 {
		return Segment{}, 0, false
	}
	label := s[1:closeText]
	if strings.ContainsAny(label, "[\n") {
		return Segment{}, 0, false
	}
	rest := s[closeText+2:]
	closeURL := strings.IndexByte(rest, ')')
	if closeURL <= 0 {
		return Segment{}, 0, false
	}
	url := rest[:closeURL]
	if strings.ContainsAny(url, " \n") {
		return Segment{}, 0, false
	}
	return Segment{Style: Link, Text: label, Arg: url}, closeText + 2 + closeURL + 1, true
}

// splitLanguage separates a leading language line from a pre block.
func splitLanguage(body string) (lang, code string) {
	nl := strings.IndexByte(body, '\n')
	if nl < 0 {
		return "", body
	}
	first := body[:nl]
	if first == "" || strings.ContainsAny(first, " \t") {
		return "", strings.TrimPrefix(body, "\n")
	}
	return first, body[nl+1:]
}

// FormatMessage converts text to styled text options for the sender.
func FormatMessage(text string) []styling.StyledTextOption {
	segments := ParseMarkdown(text)
	opts := make([]styling.StyledTextOption, 0, len(segments))
	for _, s := range segments {
		switch s.Style {
		case Bold:
			opts = append(opts, styling.Bold(s.Text))
		case Italic:
			opts = append(opts, styling.Italic(s.Text))
		case Strike:
			opts = append(opts, styling.Strike(s.Text))
		case Code:
			opts = append(opts, styling.Code(s.Text))
		case Pre:
			opts = append(opts, styling.Pre(s.Text, s.Arg))
		case Link:
			opts = append(opts, styling.TextURL(s.Text, s.Arg))
		default:
			opts = append(opts, styling.Plain(s.Text))
		}
	}
	return opts
}

package normalizer

import (
	"html"
	"regexp"
	"strings"
)

var (
	boldItalicPattern = regexp.MustCompile(`'''''(.+?)'''''`)
	boldPattern       = regexp.MustCompile(`'''(.+?)'''`)
	italicPattern     = regexp.MustCompile(`''(.+?)''`)

	externalLinkPattern = regexp.MustCompile(`\[((?:https?:)?//[^\s\]]+)(?:\s+([^\]]*))?\]`)

	lineBreakTag = regexp.MustCompile(`(?i)<br\s*/?>`)
	nowikiTag    = regexp.MustCompile(`(?is)<nowiki>(.*?)</nowiki>`)
	htmlTag      = regexp.MustCompile(`</?[a-zA-Z][a-zA-Z0-9]*(?:\s[^<>]*)?/?>`)
	spaceRun     = regexp.MustCompile(`[ \t]{2,}`)
)

// droppedLinkPrefixes are link namespaces whose links carry no inline text.
var droppedLinkPrefixes = []string{"file:", "image:", "media:", "category:"}

// convertInline rewrites wiki inline markup on a single line as Markdown:
// bold and italic quotes, internal and external links, and HTML tags.
// Text inside <nowiki> is kept literally.
func convertInline(s string) string {
	if s == "" {
		return s
	}

	locs := nowikiTag.FindAllStringSubmatchIndex(s, -1)
	if len(locs) == 0 {
		return convertSegment(s)
	}

	var sb strings.Builder

	last := 0
	for _, loc := range locs {
		sb.WriteString(convertSegment(s[last:loc[0]]))
		sb.WriteString(html.UnescapeString(s[loc[2]:loc[3]]))
		last = loc[1]
	}

	sb.WriteString(convertSegment(s[last:]))

	return sb.String()
}

func convertSegment(s string) string {
	s = convertInternalLinks(s)
	s = externalLinkPattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := externalLinkPattern.FindStringSubmatch(m)
		url, label := sub[1], strings.TrimSpace(sub[2])

		if label == "" {
			return url
		}

		return "[" + label + "](" + url + ")"
	})

	s = boldItalicPattern.ReplaceAllString(s, "***$1***")
	s = boldPattern.ReplaceAllString(s, "**$1**")
	s = italicPattern.ReplaceAllString(s, "*$1*")

	s = lineBreakTag.ReplaceAllString(s, " ")
	s = htmlTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")

	return s
}

// plainInline converts inline markup and then drops emphasis markers,
// for contexts such as infobox values where Markdown emphasis is noise.
func plainInline(s string) string {
	s = convertInline(s)
	s = strings.ReplaceAll(s, "***", "")
	s = strings.ReplaceAll(s, "**", "")

	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// convertInternalLinks replaces [[target|label]] with its display text,
// tracking bracket depth so captions holding links are handled whole.
func convertInternalLinks(s string) string {
	if !strings.Contains(s, "[[") {
		return s
	}

	var sb strings.Builder

	sb.Grow(len(s))

	for i := 0; i < len(s); {
		if !strings.HasPrefix(s[i:], "[[") {
			sb.WriteByte(s[i])
			i++

			continue
		}

		end := matchLinkEnd(s, i)
		if end < 0 {
			// Unclosed link: keep the rest verbatim.
			sb.WriteString(s[i:])
			break
		}

		sb.WriteString(renderLink(s[i+2 : end-2]))
		i = end
	}

	return sb.String()
}

// matchLinkEnd returns the index just past the "]]" closing the "[[" at start, or -1.
func matchLinkEnd(s string, start int) int {
	depth := 0

	for i := start; i < len(s)-1; {
		switch s[i : i+2] {
		case "[[":
			depth++
			i += 2
		case "]]":
			depth--
			i += 2

			if depth == 0 {
				return i
			}
		default:
			i++
		}
	}

	return -1
}

func renderLink(inner string) string {
	target := inner
	label := ""

	parts := splitTopLevel(inner, "|")
	if len(parts) > 1 {
		target = parts[0]
		label = parts[len(parts)-1]
	}

	lower := strings.ToLower(strings.TrimSpace(target))
	for _, prefix := range droppedLinkPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return ""
		}
	}

	if label = strings.TrimSpace(label); label != "" {
		return convertInternalLinks(label)
	}

	target = strings.TrimPrefix(strings.TrimSpace(target), ":")
	if i := strings.IndexByte(target, '#'); i == 0 {
		target = target[1:]
	}

	return target
}

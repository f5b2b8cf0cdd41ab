// Package whatsapp talks to the Evolution API gateway: outbound text
// delivery with human pacing, message segmentation, markdown
// flattening, and the inbound event socket.
package whatsapp

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxSegment is the gateway-friendly segment size.
const DefaultMaxSegment = 200

// Segment splits text into delivery-sized chunks. Preference order:
// paragraph breaks (the literal two-character sequence \n\n the
// composer may emit, then real blank lines), sentence boundaries, word
// breaks. A single word longer than maxLen is hard-split. Every
// returned segment is non-empty, whitespace-collapsed, and at most
// maxLen characters.
func Segment(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultMaxSegment
	}
	if utf8.RuneCountInString(text) <= maxLen {
		if t := collapse(text); t != "" {
			return []string{t}
		}
		return nil
	}

	parts := strings.Split(text, `\n\n`)
	if len(parts) == 1 {
		parts = strings.Split(text, "\n\n")
	}

	acc := segmentAccumulator{maxLen: maxLen}
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if utf8.RuneCountInString(part) <= maxLen {
			acc.add(part)
			continue
		}
		acc.flush()
		for _, sentence := range splitSentences(part) {
			if utf8.RuneCountInString(sentence) <= maxLen {
				acc.add(sentence)
				continue
			}
			acc.flush()
			for _, word := range strings.Fields(sentence) {
				for utf8.RuneCountInString(word) > maxLen {
					acc.flush()
					runes := []rune(word)
					acc.add(string(runes[:maxLen]))
					acc.flush()
					word = string(runes[maxLen:])
				}
				acc.add(word)
			}
		}
	}
	acc.flush()

	segments := make([]string, 0, len(acc.out))
	for _, s := range acc.out {
		if c := collapse(s); c != "" {
			segments = append(segments, c)
		}
	}
	if len(segments) == 0 {
		if c := collapse(text); c != "" {
			return []string{c}
		}
		return nil
	}
	return segments
}

type segmentAccumulator struct {
	maxLen int
	cur    string
	out    []string
}

// add appends a chunk to the current segment, starting a new one when
// the joined length would exceed the limit. Chunks are joined with a
// single space, matching the final whitespace collapse.
func (a *segmentAccumulator) add(chunk string) {
	switch {
	case a.cur == "":
		a.cur = chunk
	case utf8.RuneCountInString(a.cur)+1+utf8.RuneCountInString(chunk) > a.maxLen:
		a.flush()
		a.cur = chunk
	default:
		a.cur += " " + chunk
	}
}

func (a *segmentAccumulator) flush() {
	if a.cur != "" {
		a.out = append(a.out, a.cur)
		a.cur = ""
	}
}

// splitSentences breaks text after terminal punctuation followed by
// whitespace.
func splitSentences(s string) []string {
	var out []string
	runes := []rune(s)
	start := 0
	for i := 0; i < len(runes); i++ {
		if runes[i] != '.' && runes[i] != '!' && runes[i] != '?' {
			continue
		}
		j := i + 1
		for j < len(runes) && (runes[j] == '.' || runes[j] == '!' || runes[j] == '?') {
			j++
		}
		if j >= len(runes) || !unicode.IsSpace(runes[j]) {
			i = j - 1
			continue
		}
		if t := strings.TrimSpace(string(runes[start:j])); t != "" {
			out = append(out, t)
		}
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if start < len(runes) {
		if t := strings.TrimSpace(string(runes[start:])); t != "" {
			out = append(out, t)
		}
	}
	return out
}

var multiSpace = regexp.MustCompile(`\s+`)

// collapse flattens escaped and real newlines to spaces and squeezes
// whitespace runs, matching the invariant that concatenated segments
// reproduce the whitespace-normalized input.
func collapse(s string) string {
	s = strings.ReplaceAll(s, `\n\n`, " ")
	s = strings.ReplaceAll(s, `\n`, " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(multiSpace.ReplaceAllString(s, " "))
}

package render

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	bulletMarker     = "▪"
	maxBullets       = 8
	sentencesPerPara = 3
)

var (
	spaceRun      = regexp.MustCompile(`\s+`)
	splitDigitRun = regexp.MustCompile(`(\d)\s+(\d)`)
)

// AutoFormat turns raw extracted source text (for example from a PDF) into a
// markdown scaffold: ▪ lines become a bullet summary and the remaining sentences
// are grouped into short paragraphs.
func AutoFormat(raw string) string {
	lines := cleanLines(raw)
	if len(lines) == 0 {
		return ""
	}

	var bullets, other []string
	for _, line := range lines {
		if strings.HasPrefix(line, bulletMarker) {
			bullets = append(bullets, strings.TrimSpace(strings.TrimLeft(line, bulletMarker)))
		} else {
			other = append(other, line)
		}
	}

	joined := spaceRun.ReplaceAllString(strings.Join(other, " "), " ")
	joined = splitDigitRun.ReplaceAllString(joined, "$1$2")
	paragraphs := chunkSentences(splitSentences(joined), sentencesPerPara)

	var parts []string
	if len(bullets) > 0 {
		parts = append(parts, "## Key points")
		if len(bullets) > maxBullets {
			bullets = bullets[:maxBullets]
		}
		for _, b := range bullets {
			parts = append(parts, "- "+b)
		}
	}
	if len(paragraphs) > 0 {
		parts = append(parts, "## Details")
		parts = append(parts, paragraphs...)
	}

	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n\n"))
}

func cleanLines(raw string) []string {
	text := strings.ReplaceAll(raw, "\r", "\n")
	text = strings.ReplaceAll(text, "\u00a0", " ")
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// splitSentences breaks after . ! or ? when whitespace is followed by a letter,
// digit or Hangul syllable.
func splitSentences(text string) []string {
	runes := []rune(text)
	var out []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if runes[i] != '.' && runes[i] != '!' && runes[i] != '?' {
			continue
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j == i+1 || j >= len(runes) || !sentenceStart(runes[j]) {
			continue
		}
		out = append(out, string(runes[start:i+1]))
		start = j
		i = j - 1
	}
	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return out
}

func sentenceStart(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || (r >= '가' && r <= '힣')
}

func chunkSentences(sentences []string, size int) []string {
	var paragraphs, current []string
	for _, s := range sentences {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		current = append(current, s)
		if len(current) >= size {
			paragraphs = append(paragraphs, strings.Join(current, " "))
			current = nil
		}
	}
	if len(current) > 0 {
		paragraphs = append(paragraphs, strings.Join(current, " "))
	}
	return paragraphs
}

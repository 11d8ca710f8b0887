// Package analytics computes reading statistics for extracted text and
// applies user find/replace edits.
package analytics

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/adverant/nexus/ocrsum/internal/errors"
)

// wordsPerMinute is the reading speed behind ReadingTimeMinutes.
const wordsPerMinute = 200

var (
	sentenceSplit  = regexp.MustCompile(`[.!?]+`)
	paragraphSplit = regexp.MustCompile(`\n\s*\n`)
)

// Stats summarizes a text
type Stats struct {
	Words               int `json:"words"`
	Sentences           int `json:"sentences"`
	Paragraphs          int `json:"paragraphs"`
	Characters          int `json:"characters"`
	CharactersNoSpaces  int `json:"charactersNoSpaces"`
	AvgWordsPerSentence int `json:"avgWordsPerSentence"`
	ReadingTimeMinutes  int `json:"readingTime"`
}

// Compute returns statistics for the trimmed text. Characters are counted in
// runes.
func Compute(text string) Stats {
	text = strings.TrimSpace(text)

	stats := Stats{
		Words:      len(strings.Fields(text)),
		Sentences:  countNonBlank(sentenceSplit.Split(text, -1)),
		Paragraphs: countNonBlank(paragraphSplit.Split(text, -1)),
		Characters: len([]rune(text)),
		CharactersNoSpaces: len([]rune(strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, text))),
	}

	if stats.Sentences > 0 {
		stats.AvgWordsPerSentence = int(math.Round(float64(stats.Words) / float64(stats.Sentences)))
	}
	stats.ReadingTimeMinutes = int(math.Ceil(float64(stats.Words) / wordsPerMinute))
	return stats
}

func countNonBlank(parts []string) int {
	n := 0
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}

// ConfidenceLabel grades an engine confidence on the 0-100 scale.
func ConfidenceLabel(confidence float64) string {
	switch {
	case confidence >= 90:
		return "Excellent"
	case confidence >= 70:
		return "Good"
	case confidence >= 50:
		return "Fair"
	default:
		return "Poor"
	}
}

// FindReplace replaces every match of pattern (a regular expression) with
// replacement. Either one empty leaves the text unchanged. The replacement
// may reference the match as $& and groups as $1..$99; $$ is a literal $.
func FindReplace(text, pattern, replacement string) (string, error) {
	if pattern == "" || replacement == "" {
		return text, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", errors.NewValidationError("invalid search pattern: " + err.Error())
	}
	return re.ReplaceAllString(text, replacementTemplate(replacement, re.NumSubexp())), nil
}

// replacementTemplate rewrites $& and $n references into regexp.Expand
// syntax. A $ that names no existing group stays literal.
func replacementTemplate(replacement string, groups int) string {
	var b strings.Builder
	for i := 0; i < len(replacement); i++ {
		c := replacement[i]
		if c != '$' {
			b.WriteByte(c)
			continue
		}
		if i+1 == len(replacement) {
			b.WriteString("$$")
			continue
		}

		next := replacement[i+1]
		switch {
		case next == '$':
			b.WriteString("$$")
			i++
		case next == '&':
			b.WriteString("${0}")
			i++
		case isDigit(next):
			n, width := int(next-'0'), 1
			if i+2 < len(replacement) && isDigit(replacement[i+2]) {
				if nn := n*10 + int(replacement[i+2]-'0'); nn >= 1 && nn <= groups {
					n, width = nn, 2
				}
			}
			if n >= 1 && n <= groups {
				b.WriteString("${" + strconv.Itoa(n) + "}")
				i += width
			} else {
				b.WriteString("$$")
			}
		default:
			b.WriteString("$$")
		}
	}
	return b.String()
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

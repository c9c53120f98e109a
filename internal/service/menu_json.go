package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/tablebite/ordering/internal/models"
)

var (
	// ErrNoJSONArray is returned when a completion contains no array literal.
	ErrNoJSONArray = errors.New("no JSON array in completion")
	// ErrNoValidMenuItems is returned when every parsed item was rejected.
	ErrNoValidMenuItems = errors.New("no valid menu items in completion")
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// generatedItem accepts the loose shapes models produce: numeric or string ids
// and prices, and ingredients as a string or a list.
type generatedItem struct {
	ID          any      `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       any      `json:"price"`
	Image       string   `json:"image"`
	Ingredients any      `json:"ingredients"`
	Category    string   `json:"category"`
	Dietary     []string `json:"dietary"`
	SpiceLevel  *float64 `json:"spiceLevel"`
}

// extractJSONArray returns the first balanced array literal, preferring one
// inside a fenced code block.
func extractJSONArray(text string) (string, bool) {
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		if arr, ok := firstArray(m[1]); ok {
			return arr, true
		}
	}

	return firstArray(text)
}

// firstArray scans from the first '[' to its matching ']', skipping brackets
// inside single- or double-quoted strings.
func firstArray(text string) (string, bool) {
	start := strings.IndexByte(text, '[')
	if start < 0 {
		return "", false
	}

	depth := 0

	var quote byte

	for i := start; i < len(text); i++ {
		c := text[i]

		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}

			continue
		}

		switch c {
		case '"', '\'':
			quote = c
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	return "", false
}

// parseMenuJSON decodes raw strictly, then retries once after normalizeJSON.
func parseMenuJSON(raw string) ([]generatedItem, error) {
	var items []generatedItem

	strictErr := json.Unmarshal([]byte(raw), &items)
	if strictErr == nil {
		return items, nil
	}

	if err := json.Unmarshal([]byte(normalizeJSON(raw)), &items); err != nil {
		return nil, fmt.Errorf("decode menu JSON: %w", strictErr)
	}

	return items, nil
}

// normalizeJSON rewrites common model mistakes: single-quoted strings, unquoted
// object keys and trailing commas. It works on tokens outside string literals and
// is best effort; text that is not close to JSON stays invalid.
func normalizeJSON(s string) string {
	var b strings.Builder

	b.Grow(len(s) + 16)

	var last byte // last significant byte written outside a string

	for i := 0; i < len(s); {
		c := s[i]

		switch {
		case c == '"':
			end := skipDoubleQuoted(s, i)
			b.WriteString(s[i:end])
			last, i = '"', end
		case c == '\'':
			content, end := readSingleQuoted(s, i)
			quoted, _ := json.Marshal(content)
			b.Write(quoted)
			last, i = '"', end
		case c == ',':
			j := skipSpace(s, i+1)
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				i++

				continue
			}

			b.WriteByte(c)
			last = c
			i++
		case isIdentStart(c) && (last == '{' || last == ','):
			j := i
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}

			if k := skipSpace(s, j); k < len(s) && s[k] == ':' {
				b.WriteByte('"')
				b.WriteString(s[i:j])
				b.WriteByte('"')
			} else {
				b.WriteString(s[i:j])
			}

			last, i = 'a', j
		default:
			b.WriteByte(c)

			if !isSpace(c) {
				last = c
			}

			i++
		}
	}

	return b.String()
}

func skipDoubleQuoted(s string, start int) int {
	for j := start + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '"':
			return j + 1
		}
	}

	return len(s)
}

func readSingleQuoted(s string, start int) (string, int) {
	var b strings.Builder

	for j := start + 1; j < len(s); j++ {
		c := s[j]
		if c == '\'' {
			return b.String(), j + 1
		}

		if c == '\\' && j+1 < len(s) {
			j++

			switch s[j] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(s[j])
			}

			continue
		}

		b.WriteByte(c)
	}

	return b.String(), len(s)
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}

	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// toMenuItems drops items without a name or a positive price, rounds prices to
// cents and assigns ids to items whose id is missing or already taken.
func toMenuItems(generated []generatedItem) []models.MenuItem {
	out := make([]models.MenuItem, 0, len(generated))
	used := make(map[int]bool, len(generated))

	for _, g := range generated {
		name := strings.TrimSpace(g.Name)
		price, ok := toFloat(g.Price)

		if name == "" || !ok || price <= 0 {
			continue
		}

		item := models.MenuItem{
			Name:        name,
			Description: strings.TrimSpace(g.Description),
			Price:       roundCents(price),
			Image:       strings.TrimSpace(g.Image),
			Ingredients: ingredientsText(g.Ingredients),
			Category:    strings.TrimSpace(g.Category),
			Dietary:     g.Dietary,
		}

		if g.SpiceLevel != nil && *g.SpiceLevel >= 0 && *g.SpiceLevel <= models.MaxSpiceLevel {
			item.SpiceLevel = spice(int(*g.SpiceLevel))
		}

		if id, ok := toFloat(g.ID); ok && id > 0 && id == math.Trunc(id) && !used[int(id)] {
			item.ID = int(id)
			used[item.ID] = true
		}

		out = append(out, item)
	}

	next := 1

	for i := range out {
		if out[i].ID != 0 {
			continue
		}

		for used[next] {
			next++
		}

		out[i].ID = next
		used[next] = true
	}

	return out
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(t), "$"), 64)

		return f, err == nil
	default:
		return 0, false
	}
}

func ingredientsText(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		parts := make([]string, 0, len(t))

		for _, p := range t {
			if s, ok := p.(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, strings.TrimSpace(s))
			}
		}

		return strings.Join(parts, ", ")
	default:
		return ""
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

package filter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matheuskafuri/feedview/internal/api"
	"github.com/matheuskafuri/feedview/internal/config"
)

// ErrParse wraps every condition expression error.
var ErrParse = errors.New("invalid filter expression")

var fieldAliases = map[string]string{
	"feed":     api.FieldFeedName,
	"category": api.FieldFeedCategory,
	"cat":      api.FieldFeedCategory,
	"title":    api.FieldArticleTitle,
	"type":     api.FieldFeedType,
	"after":    api.FieldPublishedAfter,
	"before":   api.FieldPublishedBefore,
	"read":     api.FieldIsRead,
	"fav":      api.FieldIsFavorite,
	"hidden":   api.FieldIsHidden,
	"later":    api.FieldIsReadLater,
	"images":   api.FieldIsImageModeFeed,
}

var multiSelect = map[string]bool{
	api.FieldFeedName:     true,
	api.FieldFeedCategory: true,
	api.FieldFeedType:     true,
}

var booleanFields = map[string]bool{
	api.FieldIsRead:          true,
	api.FieldIsFavorite:      true,
	api.FieldIsHidden:        true,
	api.FieldIsReadLater:     true,
	api.FieldIsImageModeFeed: true,
}

// ParseConditions parses a terminal filter expression such as
//
//	feed=Go,Rust and !title~release or read=false
//
// Conditions are field=value[,value], field~text (contains), field==text
// (exact) or field/regex/. A leading ! negates; "and"/"or" connect rows and
// "and" is implied between adjacent rows.
func ParseConditions(expr string) ([]api.Condition, error) {
	return parseAt(expr, time.Now())
}

func parseAt(expr string, now time.Time) ([]api.Condition, error) {
	tokens, err := tokenize(expr)
	if err != nil {
		return nil, err
	}

	var (
		out   []api.Condition
		logic string
	)
	for _, tok := range tokens {
		switch strings.ToLower(tok) {
		case "and", "&&":
			if len(out) == 0 || logic != "" {
				return nil, fmt.Errorf("%w: unexpected %q", ErrParse, tok)
			}
			logic = "and"
			continue
		case "or", "||":
			if len(out) == 0 || logic != "" {
				return nil, fmt.Errorf("%w: unexpected %q", ErrParse, tok)
			}
			logic = "or"
			continue
		}

		c, err := parseTerm(tok, now)
		if err != nil {
			return nil, err
		}
		if len(out) > 0 {
			if logic == "" {
				logic = "and"
			}
			c.Logic = logic
		}
		c.ID = int64(len(out) + 1)
		out = append(out, c)
		logic = ""
	}
	if logic != "" {
		return nil, fmt.Errorf("%w: dangling %q", ErrParse, logic)
	}
	return out, nil
}

func parseTerm(tok string, now time.Time) (api.Condition, error) {
	var c api.Condition
	if strings.HasPrefix(tok, "!") {
		c.Negate = true
		tok = tok[1:]
	}

	i := strings.IndexAny(tok, "=~/")
	if i <= 0 {
		return c, fmt.Errorf("%w: %q has no operator", ErrParse, tok)
	}
	name, rest := strings.ToLower(tok[:i]), tok[i:]
	field, ok := fieldAliases[name]
	if !ok {
		field = name
		if !isKnownField(field) {
			return c, fmt.Errorf("%w: unknown field %q", ErrParse, name)
		}
	}
	c.Field = field

	var value string
	switch {
	case strings.HasPrefix(rest, "=="):
		c.Operator, value = api.OpExact, rest[2:]
	case strings.HasPrefix(rest, "~"):
		c.Operator, value = api.OpContains, rest[1:]
	case strings.HasPrefix(rest, "/"):
		if len(rest) < 2 || !strings.HasSuffix(rest, "/") {
			return c, fmt.Errorf("%w: unterminated regex in %q", ErrParse, tok)
		}
		c.Operator, value = api.OpRegex, rest[1:len(rest)-1]
	default:
		value = rest[1:]
	}
	value = unquote(value)
	if value == "" {
		return c, fmt.Errorf("%w: %q has no value", ErrParse, tok)
	}

	switch {
	case field == api.FieldArticleTitle:
		if c.Operator == "" {
			c.Operator = api.OpContains
		}
		c.Value = value
	case c.Operator != "":
		return c, fmt.Errorf("%w: operator not supported for %s", ErrParse, field)
	case multiSelect[field]:
		for _, v := range strings.Split(value, ",") {
			if v = strings.TrimSpace(v); v != "" {
				c.Values = append(c.Values, v)
			}
		}
	case booleanFields[field]:
		b, err := parseBool(value)
		if err != nil {
			return c, err
		}
		c.Value = b
	case field == api.FieldPublishedAfter || field == api.FieldPublishedBefore:
		d, err := parseDate(value, now)
		if err != nil {
			return c, err
		}
		c.Value = d
	}
	return c, nil
}

func isKnownField(f string) bool {
	for _, v := range fieldAliases {
		if v == f {
			return true
		}
	}
	return false
}

func parseBool(s string) (string, error) {
	switch strings.ToLower(s) {
	case "true", "yes", "y", "1":
		return "true", nil
	case "false", "no", "n", "0":
		return "false", nil
	}
	return "", fmt.Errorf("%w: %q is not a boolean", ErrParse, s)
}

// parseDate accepts 2006-01-02 or a relative duration like 7d meaning
// "that long ago".
func parseDate(s string, now time.Time) (string, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Format("2006-01-02"), nil
	}
	d, err := config.ParseDuration(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q is neither a date nor a duration", ErrParse, s)
	}
	return now.Add(-d).Format("2006-01-02"), nil
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// tokenize splits on whitespace, keeping double-quoted runs together.
func tokenize(s string) ([]string, error) {
	var (
		tokens []string
		b      strings.Builder
		quoted bool
	)
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			b.WriteRune(r)
		case !quoted && (r == ' ' || r == '\t' || r == '\n'):
			if b.Len() > 0 {
				tokens = append(tokens, b.String())
				b.Reset()
			}
		default:
			b.WriteRune(r)
		}
	}
	if quoted {
		return nil, fmt.Errorf("%w: unterminated quote", ErrParse)
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens, nil
}

// Describe renders conditions back into the expression syntax.
func Describe(conds []api.Condition) string {
	var parts []string
	for i, c := range conds {
		if i > 0 && c.Logic != "" {
			parts = append(parts, c.Logic)
		}
		var b strings.Builder
		if c.Negate {
			b.WriteByte('!')
		}
		b.WriteString(shortName(c.Field))
		switch c.Operator {
		case api.OpContains:
			b.WriteString("~" + quoteIfNeeded(c.Value))
		case api.OpExact:
			b.WriteString("==" + quoteIfNeeded(c.Value))
		case api.OpRegex:
			b.WriteString("/" + c.Value + "/")
		default:
			v := c.Value
			if len(c.Values) > 0 {
				v = strings.Join(c.Values, ",")
			}
			b.WriteString("=" + quoteIfNeeded(v))
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, " ")
}

func shortName(field string) string {
	for k, v := range fieldAliases {
		if v == field && k != "cat" {
			return k
		}
	}
	return field
}

func quoteIfNeeded(s string) string {
	if strings.ContainsAny(s, " \t") {
		return `"` + s + `"`
	}
	return s
}

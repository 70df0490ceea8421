// Package pattern builds slug candidates from naming patterns such as ":title" or
// ":category :title". Every ":field" token is replaced by the value of that column and the
// result is transliterated to lowercase ASCII.
package pattern

import (
	"regexp"
	"strings"
	"unicode"

	goslug "github.com/gosimple/slug"
	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"slugwiki/app/internal/sluggable"
)

var (
	tokenRegex   = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)`)
	invalidRunes = regexp.MustCompile(`[^a-z0-9]+`)
)

// Substitutor is the default sluggable.Substitutor.
type Substitutor struct{}

var _ sluggable.Substitutor = Substitutor{}

// New returns the default substitutor.
func New() Substitutor {
	return Substitutor{}
}

// Generate replaces the tokens of pattern with entity values and slugifies the text.
func (Substitutor) Generate(pattern string, entity sluggable.Entity, replacement string) (string, error) {
	if entity == nil {
		return "", eris.New("entity is required")
	}

	text, err := Expand(pattern, entity)
	if err != nil {
		return "", err
	}

	slug := Slugify(text, replacement)
	if slug == "" {
		return "", eris.Errorf("pattern %q produced an empty slug", pattern)
	}

	return slug, nil
}

// Expand substitutes every ":field" token of pattern. Unknown fields are an error.
func Expand(pattern string, entity sluggable.Entity) (string, error) {
	var expandErr error
	expanded := tokenRegex.ReplaceAllStringFunc(pattern, func(token string) string {
		if expandErr != nil {
			return ""
		}
		value, err := entity.Get(token[1:])
		if err != nil {
			expandErr = eris.Wrapf(err, "expanding token %s", token)
			return ""
		}
		return sluggable.FormatValue(value)
	})
	if expandErr != nil {
		return "", expandErr
	}

	return expanded, nil
}

// Slugify removes accents, transliterates non-Latin scripts, lowercases text and joins
// the remaining [a-z0-9] runs with replacement. Text without any letter or digit
// slugifies to "".
func Slugify(text, replacement string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}

	folded = goslug.Make(folded)
	folded = invalidRunes.ReplaceAllString(folded, replacement)
	if replacement != "" {
		folded = strings.Trim(folded, replacement)
	}

	return folded
}

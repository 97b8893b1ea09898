package importer

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/bilgisen/autowriter/internal/utils"
)

const maxKeywordLength = 200

// Input is one keyword as submitted or fetched
type Input struct {
	Text     string `json:"text" validate:"required,max=200"`
	Priority int    `json:"priority" validate:"min=0,max=1000"`
}

// Parser cleans, validates and de-duplicates keyword inputs
type Parser struct {
	htmlTagRegex *regexp.Regexp
}

func NewParser() *Parser {
	return &Parser{
		htmlTagRegex: regexp.MustCompile(`<[^>]*>`),
	}
}

// CleanText removes HTML tags and normalizes whitespace
func (p *Parser) CleanText(input string) string {
	cleaned := p.htmlTagRegex.ReplaceAllString(input, " ")
	cleaned = html.UnescapeString(cleaned)
	return strings.Join(strings.Fields(cleaned), " ")
}

// Validate checks a cleaned input
func (p *Parser) Validate(in Input) error {
	if in.Text == "" {
		return fmt.Errorf("missing keyword text")
	}
	if utf8.RuneCountInString(in.Text) > maxKeywordLength {
		return fmt.Errorf("keyword longer than %d characters", maxKeywordLength)
	}
	if in.Priority < 0 {
		return fmt.Errorf("negative priority %d", in.Priority)
	}
	return nil
}

// Parsed is one accepted keyword with its content hash
type Parsed struct {
	Input
	Hash string
}

// Parse cleans and validates items in order. A text repeated within the
// batch keeps its first occurrence with the highest priority seen.
func (p *Parser) Parse(items []Input) ([]Parsed, []error) {
	var valid []Parsed
	var errs []error
	index := make(map[string]int)

	for i, item := range items {
		cleaned := Input{Text: p.CleanText(item.Text), Priority: item.Priority}
		if err := p.Validate(cleaned); err != nil {
			errs = append(errs, fmt.Errorf("item %d: %w", i, err))
			continue
		}

		hash := utils.KeywordHash(cleaned.Text)
		if at, dup := index[hash]; dup {
			valid[at].Priority = max(valid[at].Priority, cleaned.Priority)
			continue
		}
		index[hash] = len(valid)
		valid = append(valid, Parsed{Input: cleaned, Hash: hash})
	}
	return valid, errs
}

package services

import (
	"regexp"
	"strings"

	types "github.com/fanlume/fanlume-backend/internal/domain"
)

const patternConfidence = 0.9

type patternRule struct {
	Key      string
	Category types.MemoryCategory
	Patterns []*regexp.Regexp
}

// factPatterns is the fast-path extraction table: one rule per fact key,
// each with locale variants. The first matching pattern per key wins.
var factPatterns = []patternRule{
	{
		Key:      "name",
		Category: types.MemoryCategoryPersonal,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bmy name is ([A-Z][a-z]+)\b`),
			regexp.MustCompile(`(?i)\bcall me ([A-Z][a-z]+)\b`),
			regexp.MustCompile(`(?i)\bi'?m ([A-Z][a-z]+) by the way\b`),
			regexp.MustCompile(`(?i)\bje m'appelle ([A-Z][a-zé]+)\b`),
			regexp.MustCompile(`(?i)\bme llamo ([A-Z][a-zé]+)\b`),
		},
	},
	{
		Key:      "age",
		Category: types.MemoryCategoryPersonal,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bi'?m (\d{2}) years old\b`),
			regexp.MustCompile(`(?i)\bi am (\d{2})\b`),
			regexp.MustCompile(`(?i)\bj'ai (\d{2}) ans\b`),
			regexp.MustCompile(`(?i)\btengo (\d{2}) años\b`),
		},
	},
	{
		Key:      "job",
		Category: types.MemoryCategoryPersonal,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bi work as an? ([a-z ]{3,30}?)(?:\.|,|!|$)`),
			regexp.MustCompile(`(?i)\bi'?m an? ([a-z]+(?: [a-z]+)?) by (?:trade|profession)\b`),
			regexp.MustCompile(`(?i)\bmy job is ([a-z ]{3,30}?)(?:\.|,|!|$)`),
			regexp.MustCompile(`(?i)\bje travaille comme ([a-zé ]{3,30}?)(?:\.|,|!|$)`),
		},
	},
	{
		Key:      "location",
		Category: types.MemoryCategoryPersonal,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bi live in ([A-Z][a-zA-Z ]{2,30}?)(?:\.|,|!|$)`),
			regexp.MustCompile(`(?i)\bi'?m from ([A-Z][a-zA-Z ]{2,30}?)(?:\.|,|!|$)`),
			regexp.MustCompile(`(?i)\bj'habite à ([A-Z][a-zA-Zé ]{2,30}?)(?:\.|,|!|$)`),
			regexp.MustCompile(`(?i)\bvivo en ([A-Z][a-zA-Zé ]{2,30}?)(?:\.|,|!|$)`),
		},
	},
	{
		Key:      "birthday",
		Category: types.MemoryCategoryEvent,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bmy birthday is (?:on )?([a-z]+ \d{1,2}(?:st|nd|rd|th)?)\b`),
			regexp.MustCompile(`(?i)\bmon anniversaire est le (\d{1,2} [a-zé]+)\b`),
		},
	},
	{
		Key:      "traveling",
		Category: types.MemoryCategoryEvent,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bi'?m traveling to ([A-Z][a-zA-Z ]{2,30}?)(?:\.|,|!|$)`),
			regexp.MustCompile(`(?i)\bi'?m on a trip (?:to|in) ([A-Z][a-zA-Z ]{2,30}?)(?:\.|,|!|$)`),
		},
	},
}

type patternFact struct {
	Key      string
	Category types.MemoryCategory
	Value    string
}

// extractPatternFacts runs the fast-path table over the concatenated
// message text. At most one fact per key is produced.
func extractPatternFacts(text string) []patternFact {
	var out []patternFact
	for _, rule := range factPatterns {
		for _, re := range rule.Patterns {
			m := re.FindStringSubmatch(text)
			if len(m) < 2 {
				continue
			}
			value := strings.TrimSpace(m[1])
			if value == "" {
				continue
			}
			out = append(out, patternFact{Key: rule.Key, Category: rule.Category, Value: value})
			break
		}
	}
	return out
}

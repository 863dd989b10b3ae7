package services

import (
	"strings"
	"testing"

	types "github.com/fanlume/fanlume-backend/internal/domain"
)

func TestExtractPatternFactsLocaleVariants(t *testing.T) {
	facts := extractPatternFacts("Hey! My name is Lucas and I'm 27 years old. I live in Lyon.")

	byKey := map[string]patternFact{}
	for _, f := range facts {
		byKey[f.Key] = f
	}

	if got := byKey["name"]; got.Value != "Lucas" || got.Category != types.MemoryCategoryPersonal {
		t.Fatalf("name fact wrong: %+v", got)
	}
	if got := byKey["age"]; got.Value != "27" {
		t.Fatalf("age fact wrong: %+v", got)
	}
	if got := byKey["location"]; got.Value != "Lyon" {
		t.Fatalf("location fact wrong: %+v", got)
	}
}

func TestExtractPatternFactsFirstMatchPerKeyWins(t *testing.T) {
	facts := extractPatternFacts("my name is Anna. call me Bea")
	count := 0
	for _, f := range facts {
		if f.Key == "name" {
			count++
			if f.Value != "Anna" {
				t.Fatalf("expected first match to win, got %q", f.Value)
			}
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one name fact, got %d", count)
	}
}

func TestExtractPatternFactsFrench(t *testing.T) {
	facts := extractPatternFacts("bonjour, je m'appelle Chloé et j'ai 24 ans")
	byKey := map[string]string{}
	for _, f := range facts {
		byKey[f.Key] = f.Value
	}
	if byKey["name"] != "Chloé" || byKey["age"] != "24" {
		t.Fatalf("french patterns failed: %v", byKey)
	}
}

func TestParseExtractedFactsStripsCodeFences(t *testing.T) {
	raw := "```json\n[{\"category\":\"personal\",\"key\":\"Job\",\"value\":\"nurse\",\"confidence\":0.8}]\n```"
	facts, err := parseExtractedFacts(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(facts) != 1 || facts[0].Key != "job" || facts[0].Value != "nurse" {
		t.Fatalf("unexpected facts: %+v", facts)
	}
}

func TestParseExtractedFactsFiltersInvalidEntries(t *testing.T) {
	raw := `[
		{"category":"personal","key":"name","value":"Ana","confidence":0.9},
		{"category":"personal","key":"age","value":"30","confidence":0.3},
		{"category":"nonsense","key":"x","value":"y","confidence":0.9},
		{"category":"event","key":"","value":"tomorrow","confidence":0.9}
	]`
	facts, err := parseExtractedFacts(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(facts) != 1 || facts[0].Key != "name" {
		t.Fatalf("expected only the valid fact, got %+v", facts)
	}
}

func TestParseExtractedFactsRejectsMalformedWholesale(t *testing.T) {
	if _, err := parseExtractedFacts("sorry, I cannot help with that"); err == nil {
		t.Fatal("expected error for non-JSON response")
	}
	if _, err := parseExtractedFacts(`[{"category":"personal",`); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}

func TestParseExtractedFactsEmptyArray(t *testing.T) {
	facts, err := parseExtractedFacts("[]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(facts) != 0 {
		t.Fatalf("expected no facts, got %+v", facts)
	}
}

func TestSortedKeysIsStable(t *testing.T) {
	keys := sortedKeys(map[string]string{"b": "1", "a": "2", "c": "3"})
	if strings.Join(keys, ",") != "a,b,c" {
		t.Fatalf("unexpected order: %v", keys)
	}
}

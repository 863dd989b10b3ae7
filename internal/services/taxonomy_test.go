package services

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultTaxonomyCompiles(t *testing.T) {
	compiled, err := DefaultTaxonomy().Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(compiled.Languages) == 0 || len(compiled.Tones) == 0 {
		t.Fatal("compiled tables empty")
	}
	for _, key := range []string{"traveling", "sick", "busy_period", "visiting"} {
		if !compiled.TransientMemoryKeys[key] {
			t.Fatalf("transient key %q missing", key)
		}
	}
	if len(compiled.HighIntentKeywords["en"]) == 0 {
		t.Fatal("english high-intent keywords missing")
	}
}

func TestLoadTaxonomyEmptyPathReturnsDefaults(t *testing.T) {
	tax, err := LoadTaxonomy("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(tax.Topics) == 0 || len(tax.FreeRequestPhrases) == 0 {
		t.Fatal("defaults missing")
	}
}

func TestLoadTaxonomyOverridesOnlyPresentTables(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taxonomy.yaml")
	override := `
high_intent_keywords:
  de: ["kaufen", "preis"]
transient_memory_keys: ["traveling", "moving"]
`
	if err := os.WriteFile(path, []byte(override), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	tax, err := LoadTaxonomy(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(tax.HighIntentKeywords) != 1 || tax.HighIntentKeywords["de"][0] != "kaufen" {
		t.Fatalf("high-intent table not replaced: %v", tax.HighIntentKeywords)
	}
	if len(tax.TransientMemoryKeys) != 2 {
		t.Fatalf("transient keys not replaced: %v", tax.TransientMemoryKeys)
	}
	// Untouched tables keep their defaults.
	if len(tax.Topics) == 0 || len(tax.Languages) == 0 {
		t.Fatal("unrelated tables lost their defaults")
	}
}

func TestLoadTaxonomyMissingFileErrors(t *testing.T) {
	if _, err := LoadTaxonomy(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCompileRejectsBadPattern(t *testing.T) {
	tax := DefaultTaxonomy()
	tax.Languages = append(tax.Languages, LanguagePatterns{
		Language: "xx", Patterns: []string{`(`},
	})
	if _, err := tax.Compile(); err == nil {
		t.Fatal("expected compile error for invalid pattern")
	}
}

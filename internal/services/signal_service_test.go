package services

import (
	"reflect"
	"testing"
	"time"

	types "github.com/fanlume/fanlume-backend/internal/domain"
)

func TestDetectLanguageRequiresMinimumHits(t *testing.T) {
	tax := mustCompiledTaxonomy(t)

	if lang, ok := detectLanguage(tax, "hi"); ok {
		t.Fatalf("expected no detection for a single ambiguous word, got %q", lang)
	}

	lang, ok := detectLanguage(tax, "hello, thanks for the pics, you are the best")
	if !ok || lang != "en" {
		t.Fatalf("expected en, got %q (ok=%v)", lang, ok)
	}

	lang, ok = detectLanguage(tax, "bonjour, merci pour la photo, je suis content")
	if !ok || lang != "fr" {
		t.Fatalf("expected fr, got %q (ok=%v)", lang, ok)
	}
}

func TestDetectTopics(t *testing.T) {
	tax := mustCompiledTaxonomy(t)
	found := detectTopics(tax, "went to the gym then watched a movie on netflix")
	set := map[string]bool{}
	for _, topic := range found {
		set[topic] = true
	}
	if !set["fitness"] || !set["movies"] {
		t.Fatalf("expected fitness and movies, got %v", found)
	}
}

func TestMergeTopicsIsIdempotentAndCapped(t *testing.T) {
	existing := []string{"fitness", "travel"}
	detected := []string{"travel", "music", "art"}

	first := mergeTopics(existing, detected)
	second := mergeTopics(first, detected)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("merge not idempotent: %v vs %v", first, second)
	}
	if first[0] != "fitness" || first[1] != "travel" {
		t.Fatalf("existing topics must stay in front: %v", first)
	}

	many := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"}
	capped := mergeTopics(nil, many)
	if len(capped) != 10 {
		t.Fatalf("expected cap of 10, got %d", len(capped))
	}
}

func TestDetectToneThreshold(t *testing.T) {
	tax := mustCompiledTaxonomy(t)

	// One word match scores 1, below the commit threshold.
	if tone, ok := detectTone(tax, []string{"you are beautiful"}); ok {
		t.Fatalf("expected no tone on score 1, got %q", tone)
	}

	// One emoji scores 2 and commits.
	tone, ok := detectTone(tax, []string{"❤️"})
	if !ok || tone != types.Tone("romantic") {
		t.Fatalf("expected romantic, got %q (ok=%v)", tone, ok)
	}

	tone, ok = detectTone(tax, []string{"i love you, you are gorgeous"})
	if !ok || tone != types.Tone("romantic") {
		t.Fatalf("expected romantic from two word hits, got %q (ok=%v)", tone, ok)
	}
}

func TestActivityLevelMapping(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	msgsOnDays := func(days ...int) []*types.Message {
		var out []*types.Message
		for _, d := range days {
			out = append(out, &types.Message{SentAt: now.AddDate(0, 0, -d)})
		}
		return out
	}

	cases := []struct {
		name string
		msgs []*types.Message
		want types.ActivityLevel
	}{
		{"seven distinct days", msgsOnDays(0, 1, 2, 3, 4, 5, 6), types.ActivityDaily},
		{"three distinct days", msgsOnDays(0, 2, 4), types.ActivityWeekly},
		{"one day", msgsOnDays(3), types.ActivityOccasional},
		{"nothing recent", msgsOnDays(9, 12), types.ActivityInactive},
		{"same day repeated", msgsOnDays(1, 1, 1), types.ActivityOccasional},
	}
	for _, tc := range cases {
		if got := activityLevel(tc.msgs, now); got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}

func TestSpendingTierThresholds(t *testing.T) {
	cases := []struct {
		spent float64
		want  types.SpendingTier
	}{
		{0, types.SpendingTierFree},
		{999.99, types.SpendingTierFree},
		{1000, types.SpendingTierRegular},
		{9999.99, types.SpendingTierRegular},
		{10000, types.SpendingTierWhale},
	}
	for _, tc := range cases {
		if got := spendingTier(tc.spent); got != tc.want {
			t.Fatalf("spent=%.2f: got %q want %q", tc.spent, got, tc.want)
		}
	}
}

func TestTopicsRoundTrip(t *testing.T) {
	topics := []string{"fitness", "music"}
	if got := decodeTopics(encodeTopics(topics)); !reflect.DeepEqual(got, topics) {
		t.Fatalf("round trip mismatch: %v", got)
	}
	if got := decodeTopics(nil); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

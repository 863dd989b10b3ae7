package services

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	types "github.com/fanlume/fanlume-backend/internal/domain"
)

// Taxonomy holds every keyword/pattern table the engine matches against.
// The compiled defaults ship with the binary; deployments can override
// any table from a YAML file without redeploying.
type Taxonomy struct {
	Languages           []LanguagePatterns  `yaml:"languages"`
	Topics              map[string][]string `yaml:"topics"`
	Tones               []TonePatterns      `yaml:"tones"`
	HighIntentKeywords  map[string][]string `yaml:"high_intent_keywords"`
	FreeRequestPhrases  []string            `yaml:"free_request_phrases"`
	TransientMemoryKeys []string            `yaml:"transient_memory_keys"`
}

type LanguagePatterns struct {
	Language string   `yaml:"language"`
	Patterns []string `yaml:"patterns"`
}

type TonePatterns struct {
	Tone   types.Tone `yaml:"tone"`
	Words  []string   `yaml:"words"`
	Emojis []string   `yaml:"emojis"`
}

// CompiledTaxonomy is the regex-compiled form consumed by the extractors.
type CompiledTaxonomy struct {
	Languages           []compiledLanguage
	Topics              map[string][]string
	Tones               []compiledTone
	HighIntentKeywords  map[string][]string
	FreeRequestPhrases  []string
	TransientMemoryKeys map[string]bool
}

type compiledLanguage struct {
	Language string
	Patterns []*regexp.Regexp
}

type compiledTone struct {
	Tone   types.Tone
	Words  []*regexp.Regexp
	Emojis []string
}

func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		Languages: []LanguagePatterns{
			{Language: "en", Patterns: []string{
				`\b(the|and|you|your|for|with|what|have|this|that)\b`,
				`\b(hello|thanks|please|love|want)\b`,
			}},
			{Language: "fr", Patterns: []string{
				`\b(le|la|les|une|des|est|avec|pour|mais|dans)\b`,
				`\b(bonjour|merci|je|tu|vous|suis)\b`,
			}},
			{Language: "es", Patterns: []string{
				`\b(el|los|las|una|por|para|con|pero|este|esta)\b`,
				`\b(hola|gracias|quiero|eres|soy)\b`,
			}},
			{Language: "de", Patterns: []string{
				`\b(der|die|das|und|ich|du|nicht|ein|eine|mit)\b`,
				`\b(hallo|danke|bitte|liebe)\b`,
			}},
		},
		Topics: map[string][]string{
			"fitness":   {"gym", "workout", "fitness", "muscle", "training"},
			"travel":    {"travel", "trip", "vacation", "beach", "flight"},
			"gaming":    {"game", "gaming", "playstation", "xbox", "twitch"},
			"music":     {"music", "song", "concert", "playlist", "band"},
			"food":      {"food", "cooking", "restaurant", "recipe", "dinner"},
			"fashion":   {"outfit", "fashion", "lingerie", "dress", "style"},
			"movies":    {"movie", "film", "netflix", "series", "cinema"},
			"sports":    {"football", "soccer", "basketball", "tennis", "match"},
			"pets":      {"dog", "cat", "puppy", "kitten", "pet"},
			"art":       {"art", "painting", "drawing", "tattoo", "photography"},
			"lifestyle": {"daily", "routine", "morning", "coffee", "weekend"},
		},
		Tones: []TonePatterns{
			{Tone: types.Tone("romantic"), Words: []string{
				`\b(love|miss you|beautiful|gorgeous|darling|sweetheart)\b`,
				`\b(amour|je t'aime|belle)\b`,
			}, Emojis: []string{"❤️", "😍", "💕", "🥰", "💖"}},
			{Tone: types.Tone("playful"), Words: []string{
				`\b(haha|lol|lmao|hehe|funny|joke)\b`,
			}, Emojis: []string{"😂", "🤣", "😜", "😛", "🙈"}},
			{Tone: types.Tone("explicit"), Words: []string{
				`\b(sexy|hot|naughty|nude|naked)\b`,
			}, Emojis: []string{"🍑", "🍆", "💦", "🔥", "😈"}},
			{Tone: types.Tone("casual"), Words: []string{
				`\b(hey|sup|cool|nice|ok|okay|yeah)\b`,
			}, Emojis: []string{"👍", "🙂", "😎"}},
			{Tone: types.Tone("demanding"), Words: []string{
				`\b(now|send|give me|i want|answer|why won't)\b`,
			}, Emojis: []string{"😤", "😠", "🙄"}},
		},
		HighIntentKeywords: map[string][]string{
			"en": {"buy", "price", "how much", "unlock", "subscribe", "purchase", "pay", "custom video", "tip"},
			"fr": {"acheter", "prix", "combien", "débloquer", "abonner", "payer"},
			"es": {"comprar", "precio", "cuánto", "desbloquear", "suscribir", "pagar"},
		},
		FreeRequestPhrases: []string{
			"for free", "send me free", "free pic", "free video", "free content",
			"without paying", "can i see for free", "show me for free",
			"gratuit", "gratuitement", "sans payer", "photo gratuite",
		},
		TransientMemoryKeys: []string{"traveling", "sick", "busy_period", "visiting"},
	}
}

// LoadTaxonomy returns the defaults overlaid with any tables present in
// the YAML file at path. An empty path means defaults only.
func LoadTaxonomy(path string) (Taxonomy, error) {
	tax := DefaultTaxonomy()
	if path == "" {
		return tax, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return tax, fmt.Errorf("read taxonomy file: %w", err)
	}
	var override Taxonomy
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return tax, fmt.Errorf("parse taxonomy file: %w", err)
	}
	if len(override.Languages) > 0 {
		tax.Languages = override.Languages
	}
	if len(override.Topics) > 0 {
		tax.Topics = override.Topics
	}
	if len(override.Tones) > 0 {
		tax.Tones = override.Tones
	}
	if len(override.HighIntentKeywords) > 0 {
		tax.HighIntentKeywords = override.HighIntentKeywords
	}
	if len(override.FreeRequestPhrases) > 0 {
		tax.FreeRequestPhrases = override.FreeRequestPhrases
	}
	if len(override.TransientMemoryKeys) > 0 {
		tax.TransientMemoryKeys = override.TransientMemoryKeys
	}
	return tax, nil
}

func (t Taxonomy) Compile() (*CompiledTaxonomy, error) {
	out := &CompiledTaxonomy{
		Topics:              t.Topics,
		HighIntentKeywords:  t.HighIntentKeywords,
		FreeRequestPhrases:  t.FreeRequestPhrases,
		TransientMemoryKeys: make(map[string]bool, len(t.TransientMemoryKeys)),
	}
	for _, key := range t.TransientMemoryKeys {
		out.TransientMemoryKeys[key] = true
	}
	for _, lang := range t.Languages {
		cl := compiledLanguage{Language: lang.Language}
		for _, p := range lang.Patterns {
			re, err := regexp.Compile(`(?i)` + p)
			if err != nil {
				return nil, fmt.Errorf("language pattern %q: %w", p, err)
			}
			cl.Patterns = append(cl.Patterns, re)
		}
		out.Languages = append(out.Languages, cl)
	}
	for _, tone := range t.Tones {
		ct := compiledTone{Tone: tone.Tone, Emojis: tone.Emojis}
		for _, p := range tone.Words {
			re, err := regexp.Compile(`(?i)` + p)
			if err != nil {
				return nil, fmt.Errorf("tone pattern %q: %w", p, err)
			}
			ct.Words = append(ct.Words, re)
		}
		out.Tones = append(out.Tones, ct)
	}
	return out, nil
}

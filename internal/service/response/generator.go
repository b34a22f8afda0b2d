package response

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/zhouzirui/mannmitra/backend/internal/analysis/triage"
)

// DefaultCulturalProbability is the share of replies that get a cultural addendum.
const DefaultCulturalProbability = 0.30

// Supported locales for cultural phrases.
const (
	LocaleEnglish = "english"
	LocaleHindi   = "hindi"
)

var adaptiveReplies = map[triage.Sentiment]string{
	triage.Sad:      "I'm sorry you're feeling down. Remember, it's okay to have tough days.",
	triage.Anxious:  "Take a deep breath. You're doing your best, and that's enough.",
	triage.Positive: "That's wonderful to hear! Keep up the great vibes!",
	triage.Neutral:  "I'm here to listen. Tell me more.",
}

var culturalPools = map[string][]string{
	LocaleHindi: {
		"ज़िंदगी एक सफर है, मंज़िल नहीं।",
		"हर अंधेरा सुबह की निशानी है।",
		"दिल से जो निकले, वो असर रखता है।",
		"मुश्किलों से घबराना नहीं, ये तो जिंदगी की पहचान है।",
		"हर सुबह एक नई उम्मीद लेकर आती है।",
	},
	LocaleEnglish: {
		"Every storm runs out of rain.",
		"This too shall pass.",
		"The darkest hour is just before the dawn.",
		"Keep your face always toward the sunshine—and shadows will fall behind you.",
		"Tough times never last, but tough people do.",
	},
}

var moodPhrases = map[string]map[triage.Sentiment][]string{
	LocaleHindi: {
		triage.Sad: {
			"ज़िन्दगी की मुश्किलें भी वक़्त की तरह गुज़र जाती हैं। 🌸",
			"हर अंधेरी रात के बाद सवेरा ज़रूर आता है। ☀️",
		},
		triage.Anxious: {
			"धैर्य रखो, जैसे बरसात के बाद इंद्रधनुष आता है। 🌈",
			"साँस लो गहरी, और मन को शांति दो। 🌬️",
		},
	},
	LocaleEnglish: {
		triage.Sad: {
			"Just like the monsoon, heavy times will also pass. 🌧️",
			"Every storm eventually runs out of rain. ⛅",
		},
		triage.Anxious: {
			"Breathe in, breathe out — calm follows chaos. 🌿",
			"Remember, mountains are climbed one step at a time. 🏔️",
		},
	},
}

// Generator turns a sentiment into a supportive reply.
type Generator struct {
	mu          sync.Mutex
	rng         *rand.Rand
	probability float64
	matchMood   bool
}

// Option customises a Generator.
type Option func(*Generator)

// WithSource swaps the random source, mainly for seeded tests.
func WithSource(src rand.Source) Option {
	return func(g *Generator) {
		g.rng = rand.New(src)
	}
}

// WithProbability overrides the cultural addendum probability.
func WithProbability(p float64) Option {
	return func(g *Generator) {
		if p < 0 {
			p = 0
		}
		if p > 1 {
			p = 1
		}
		g.probability = p
	}
}

// WithMoodMatching draws the addendum from the sentiment's own proverbs when
// the locale has some, falling back to the general pool otherwise.
func WithMoodMatching(enabled bool) Option {
	return func(g *Generator) {
		g.matchMood = enabled
	}
}

// NewGenerator builds a Generator seeded from the wall clock.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		probability: DefaultCulturalProbability,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Base returns the canned sentence for a sentiment.
func Base(sentiment triage.Sentiment) string {
	if reply, ok := adaptiveReplies[sentiment]; ok {
		return reply
	}
	return adaptiveReplies[triage.Neutral]
}

// Respond returns the canned reply, sometimes followed by a cultural phrase
// from the locale's pool.
func (g *Generator) Respond(sentiment triage.Sentiment, locale string) string {
	reply := Base(sentiment)

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.rng.Float64() >= g.probability {
		return reply
	}
	pool := Pool(locale)
	if g.matchMood {
		if phrases := moodPhrases[normalizeLocale(locale)][sentiment]; len(phrases) > 0 {
			pool = phrases
		}
	}
	return reply + " " + pool[g.rng.Intn(len(pool))]
}

// Pool returns the cultural phrase pool for locale, defaulting to English.
func Pool(locale string) []string {
	return culturalPools[normalizeLocale(locale)]
}

func normalizeLocale(locale string) string {
	switch strings.ToLower(strings.TrimSpace(locale)) {
	case LocaleHindi, "hi", "hi-in":
		return LocaleHindi
	default:
		return LocaleEnglish
	}
}

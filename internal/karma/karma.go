// Package karma validates reactions and classifies them as karma votes.
package karma

import (
	"errors"
	"unicode"

	"github.com/forPelevin/gomoji"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/go-relay-backend/internal/registry"
)

// ErrInvalidReaction is returned when a reaction is not exactly one emoji.
var ErrInvalidReaction = errors.New("karma: reaction must be a single emoji")

// None means the reaction does not count as a vote.
const None registry.Vote = 0

var positive = set("❤", "👍", "🔥", "👏", "😍", "🥰", "🤩", "⭐", "💯", "🎉",
	"🌟", "💪", "✨", "🙏", "💖", "💓", "💞", "💕", "♥", "😊")

var negative = set("👎", "💩", "🤮")

// Validate checks that reaction holds exactly one emoji and nothing else.
// Forms that differ only by presentation selectors or skin tone modifiers
// are the same emoji, so "❤️" is accepted like "❤".
func Validate(reaction string) error {
	key := Normalize(reaction)
	if key == "" {
		return ErrInvalidReaction
	}
	if single(reaction, key) || single(key, key) {
		return nil
	}
	return ErrInvalidReaction
}

// single reports whether s holds one emoji whose normalized form is key.
func single(s, key string) bool {
	found := gomoji.CollectAll(s)
	return len(found) == 1 && Normalize(found[0].Character) == key
}

// Classify maps reaction to a vote. Presentation selectors and skin tone
// modifiers are ignored, so "❤️" and "👍🏽" count like their bare forms.
func Classify(reaction string) registry.Vote {
	key := Normalize(reaction)
	if _, ok := positive[key]; ok {
		return registry.VoteUp
	}
	if _, ok := negative[key]; ok {
		return registry.VoteDown
	}
	return None
}

// Normalize returns the NFC form of s without variation selectors or skin
// tone modifiers.
func Normalize(s string) string {
	t := transform.Chain(norm.NFC, runes.Remove(runes.Predicate(isDecoration)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func isDecoration(r rune) bool {
	return unicode.Is(unicode.Variation_Selector, r) || (r >= 0x1F3FB && r <= 0x1F3FF)
}

func set(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, s := range items {
		m[Normalize(s)] = struct{}{}
	}
	return m
}

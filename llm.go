package glottoguess

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// Candidate pairs a primary name with its glottocode for the disambiguation
// prompt.
type Candidate struct {
	Name       string `json:"name"`
	Glottocode string `json:"glottocode"`
}

// Disambiguator selects one glottocode from a candidate set for a language
// name. An empty result means "no suitable match", which is a valid outcome.
type Disambiguator interface {
	Disambiguate(ctx context.Context, language string, candidates []Candidate) (string, error)
}

// Candidates resolves filter output into prompt candidates, preserving order.
// Unknown ids are skipped.
func (c *Catalog) Candidates(ids []string) []Candidate {
	out := make([]Candidate, 0, len(ids))
	for _, id := range ids {
		if e, ok := c.Get(id); ok {
			out = append(out, Candidate{Name: e.Name, Glottocode: e.ID})
		}
	}
	return out
}

// disambiguatorRole is the system prompt shared by all providers.
const disambiguatorRole = "You are an experienced linguist at a prestigious university. " +
	"You work very carefully and do not want to make mistakes, as they might harm your reputation."

// buildDisambiguationTask renders the user prompt: candidates as JSON plus
// matching instructions.
func buildDisambiguationTask(language string, candidates []Candidate) (string, error) {
	cand, err := json.Marshal(candidates)
	if err != nil {
		return "", fmt.Errorf("encoding candidates: %w", err)
	}

	lang := capitalize(language)
	return fmt.Sprintf(
		"<candidates> is a JSON file containing information about languages and their glottocodes. "+
			"Each entry in <candidates> has attributes name, which is the name of a language, "+
			"and glottocode, which is a unique identifier for the language published by Glottolog. "+
			"<candidates>%s</candidates> "+
			"Find the correct glottocode for the language named %s in <candidates>. "+
			"First, search for an exact match for %s in the name attribute of <candidates>. "+
			"If no exact match is found, look for alternative spellings for %s. "+
			"Then, try to match any alternative spelling to the entries in <candidates>. "+
			"If no suitable match is found, return an empty result. "+
			"Return the Glottocode as plain text without additional text or comments.",
		cand, lang, lang, lang), nil
}

// checkGuess reports whether a model response is usable: either empty (no
// match found) or one of the offered candidate glottocodes. Anything else is
// a hallucinated identifier and is discarded.
func checkGuess(guess string, candidates []Candidate) bool {
	if guess == "" {
		return true
	}
	for _, c := range candidates {
		if c.Glottocode == guess {
			return true
		}
	}
	return false
}

// capitalize uppercases the first rune and lowercases the rest, after
// trimming whitespace.
func capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

package glottoguess

import (
	"context"
	"errors"

	"github.com/agnivade/levenshtein"
)

// NameRecord is the recorded name set for one glottocode: the primary name
// plus alternates grouped by the provider that recorded them.
type NameRecord struct {
	Name     string
	AltNames map[string][]string
}

// RecordSource resolves the name record for a glottocode. Implementations
// return ErrRecordNotFound when no record exists for the identifier; any
// other failure is surfaced unchanged. A deterministic in-memory source is
// sufficient for tests.
type RecordSource interface {
	NameRecord(ctx context.Context, id string) (*NameRecord, error)
}

// maxFuzzyDistance caps VerifyOptions.FuzzyDistance so typo tolerance cannot
// degenerate into matching unrelated names.
const maxFuzzyDistance = 3

// VerifyOptions configures name verification.
type VerifyOptions struct {
	// FuzzyDistance is the maximum edit distance tolerated between the
	// normalized supplied name and a normalized recorded name
	// (0 = exact normalized match only).
	FuzzyDistance int
}

// Verifier checks whether a language name is among the recorded names of a
// glottocode. The record source is consulted first because alternate-name
// completeness may lag the locally cached catalog.
type Verifier struct {
	catalog *Catalog
	source  RecordSource
}

// NewVerifier creates a verifier. source may be nil, in which case only the
// locally cached names are consulted.
func NewVerifier(catalog *Catalog, source RecordSource) *Verifier {
	return &Verifier{catalog: catalog, source: source}
}

// Verify reports whether name matches the primary name or any alternate name
// recorded for the glottocode, under case-, diacritic-, and
// punctuation-tolerant normalization.
//
// A false result means "found but does not match" and is a valid outcome. An
// identifier that resolves neither locally nor externally yields
// *UnknownIdentifierError instead.
func (v *Verifier) Verify(ctx context.Context, name, id string, opts ...VerifyOptions) (bool, error) {
	options := VerifyOptions{}
	if len(opts) > 0 {
		options = opts[0]
	}
	if options.FuzzyDistance > maxFuzzyDistance {
		options.FuzzyDistance = maxFuzzyDistance
	}

	entry, inCatalog := v.catalog.Get(id)

	recorded, err := v.recordedNames(ctx, id, entry, inCatalog)
	if err != nil {
		return false, err
	}

	target := normalizeName(name)
	for _, rn := range recorded {
		candidate := normalizeName(rn)
		if candidate == target {
			return true, nil
		}
		if options.FuzzyDistance > 0 &&
			levenshtein.ComputeDistance(target, candidate) <= options.FuzzyDistance {
			return true, nil
		}
	}
	return false, nil
}

// recordedNames resolves the name set for id: the external record when one
// exists, otherwise the local catalog entry.
func (v *Verifier) recordedNames(ctx context.Context, id string, entry Entry, inCatalog bool) ([]string, error) {
	if v.source != nil {
		rec, err := v.source.NameRecord(ctx, id)
		switch {
		case err == nil:
			names := []string{rec.Name}
			for _, group := range rec.AltNames {
				names = append(names, group...)
			}
			return names, nil
		case errors.Is(err, ErrRecordNotFound):
			// Fall through to the local catalog.
		default:
			return nil, err
		}
	}

	if !inCatalog {
		return nil, &UnknownIdentifierError{ID: id}
	}
	return append([]string{entry.Name}, entry.AltNames...), nil
}

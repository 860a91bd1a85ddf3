package glottoguess

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRecordSource is a deterministic in-memory RecordSource.
type fakeRecordSource struct {
	records map[string]*NameRecord
	err     error
	calls   int
}

func (f *fakeRecordSource) NameRecord(_ context.Context, id string) (*NameRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return rec, nil
}

func frenchRecordSource() *fakeRecordSource {
	return &fakeRecordSource{records: map[string]*NameRecord{
		"stan1290": {
			Name: "French",
			AltNames: map[string][]string{
				"multitree": {"français", "Französisch"},
				"hhbib":     {"Standard French"},
			},
		},
	}}
}

func TestVerifyPrimaryName(t *testing.T) {
	v := NewVerifier(NewCatalogFromEntries(testEntries()), frenchRecordSource())

	ok, err := v.Verify(context.Background(), "French", "stan1290")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyIsCaseInsensitive(t *testing.T) {
	v := NewVerifier(NewCatalogFromEntries(testEntries()), frenchRecordSource())

	upper, err := v.Verify(context.Background(), "FRENCH", "stan1290")
	require.NoError(t, err)
	lower, err := v.Verify(context.Background(), "French", "stan1290")
	require.NoError(t, err)
	assert.Equal(t, lower, upper)
	assert.True(t, upper)
}

func TestVerifyDiacriticTolerance(t *testing.T) {
	v := NewVerifier(NewCatalogFromEntries(testEntries()), frenchRecordSource())

	// The recorded alternate is "français"; the plain-ASCII spelling matches.
	ok, err := v.Verify(context.Background(), "Francais", "stan1290")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyNonMatchingNameIsFalseNotError(t *testing.T) {
	v := NewVerifier(NewCatalogFromEntries(testEntries()), frenchRecordSource())

	ok, err := v.Verify(context.Background(), "Basque", "stan1290")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyUnknownIdentifier(t *testing.T) {
	v := NewVerifier(NewCatalogFromEntries(testEntries()), frenchRecordSource())

	ok, err := v.Verify(context.Background(), "French", "none9999")
	require.Error(t, err)
	assert.False(t, ok)

	var unknownErr *UnknownIdentifierError
	assert.True(t, errors.As(err, &unknownErr), "want UnknownIdentifierError, got %v", err)
	assert.Equal(t, "none9999", unknownErr.ID)
}

func TestVerifyFallsBackToCatalogWhenRecordMissing(t *testing.T) {
	// The source knows nothing, but the catalog carries the entry and one
	// alternate name.
	src := &fakeRecordSource{records: map[string]*NameRecord{}}
	v := NewVerifier(NewCatalogFromEntries(testEntries()), src)

	ok, err := v.Verify(context.Background(), "français", "stan1290")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, src.calls)
}

func TestVerifyWithoutSourceUsesCatalogOnly(t *testing.T) {
	v := NewVerifier(NewCatalogFromEntries(testEntries()), nil)

	ok, err := v.Verify(context.Background(), "French", "stan1290")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyPropagatesExternalFailures(t *testing.T) {
	src := &fakeRecordSource{err: &ExternalServiceError{Service: "glottolog records", Err: errors.New("boom")}}
	v := NewVerifier(NewCatalogFromEntries(testEntries()), src)

	_, err := v.Verify(context.Background(), "French", "stan1290")
	require.Error(t, err)

	var svcErr *ExternalServiceError
	assert.True(t, errors.As(err, &svcErr), "transport failures must surface, got %v", err)
}

func TestVerifyFuzzyDistance(t *testing.T) {
	v := NewVerifier(NewCatalogFromEntries(testEntries()), frenchRecordSource())

	// One edit away from "french".
	ok, err := v.Verify(context.Background(), "Frrench", "stan1290")
	require.NoError(t, err)
	assert.False(t, ok, "exact matching is the default")

	ok, err = v.Verify(context.Background(), "Frrench", "stan1290", VerifyOptions{FuzzyDistance: 1})
	require.NoError(t, err)
	assert.True(t, ok)

	// The cap keeps absurd distances from matching everything.
	ok, err = v.Verify(context.Background(), "Telugu", "stan1290", VerifyOptions{FuzzyDistance: 50})
	require.NoError(t, err)
	assert.False(t, ok)
}

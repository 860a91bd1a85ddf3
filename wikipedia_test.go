package glottoguess

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frenchWikitext = `{{Infobox language
| name       = French
| pronunciation = {{IPA|fr|fʁɑ̃sɛ|}}
| states     = [[France]]
| iso3       = fra
| glotto     = stan1290
| glottorefname = Standard French
| glotto2    = pari1240
}}
French is a Romance language.`

// newWikiServer serves both the search and the parse actions of the MediaWiki
// API, recording which page titles got fetched.
func newWikiServer(t *testing.T, titles []string, wikitext map[string]string) (*httptest.Server, *[]string) {
	t.Helper()
	var fetched []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("action") {
		case "query":
			fmt.Fprint(w, `{"query":{"search":[`)
			for i, title := range titles {
				if i > 0 {
					fmt.Fprint(w, ",")
				}
				fmt.Fprintf(w, `{"title":%q}`, title)
			}
			fmt.Fprint(w, `]}}`)
		case "parse":
			page := r.URL.Query().Get("page")
			fetched = append(fetched, page)
			fmt.Fprintf(w, `{"parse":{"title":%q,"wikitext":{"*":%q}}}`, page, wikitext[page])
		default:
			t.Errorf("unexpected action %q", r.URL.Query().Get("action"))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &fetched
}

func newFakeWikiLookup(srv *httptest.Server) *WikiLookup {
	return NewWikiLookup(WithWikiAPIURL(srv.URL), WithWikiRateLimit(1000))
}

func TestWikiSearchFiltersIrrelevantPages(t *testing.T) {
	srv, _ := newWikiServer(t, []string{
		"French language",
		"Languages of France",
		"French (programming language)",
		"France",
		"Old French language",
	}, nil)
	lookup := newFakeWikiLookup(srv)

	pages, err := lookup.Search(context.Background(), "french")
	require.NoError(t, err)

	titles := make([]string, 0, len(pages))
	for _, p := range pages {
		titles = append(titles, p.Title)
	}
	assert.Equal(t, []string{"French language", "Old French language"}, titles)
	assert.Less(t, pages[0].Relevance, pages[1].Relevance, "search order carries over")
	assert.Equal(t, "French", pages[0].Name)
}

func TestWikiGuessesExtractsCodesInRelevanceOrder(t *testing.T) {
	srv, fetched := newWikiServer(t,
		[]string{"French language", "France", "Old French language"},
		map[string]string{
			"French language":     frenchWikitext,
			"Old French language": "{{Infobox language\n| glotto = oldf1239\n}}",
		})
	lookup := newFakeWikiLookup(srv)

	codes, err := lookup.Guesses(context.Background(), "French", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"stan1290", "pari1240", "oldf1239"}, codes)
	assert.Equal(t, []string{"French language", "Old French language"}, *fetched,
		"filtered-out pages are never fetched")
}

func TestWikiGuessesOnlyPrimary(t *testing.T) {
	srv, _ := newWikiServer(t,
		[]string{"French language"},
		map[string]string{"French language": frenchWikitext})
	lookup := newFakeWikiLookup(srv)

	codes, err := lookup.Guesses(context.Background(), "French", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"stan1290"}, codes, "glotto2 is not a primary parameter")
}

func TestWikiGuessGlottocode(t *testing.T) {
	srv, _ := newWikiServer(t,
		[]string{"French language"},
		map[string]string{"French language": frenchWikitext})
	lookup := newFakeWikiLookup(srv)

	code, err := lookup.GuessGlottocode(context.Background(), "French")
	require.NoError(t, err)
	assert.Equal(t, "stan1290", code)
}

func TestWikiEmptyResultIsNotAnError(t *testing.T) {
	srv, _ := newWikiServer(t,
		[]string{"Klingon language"},
		map[string]string{"Klingon language": "A constructed language with no infobox."})
	lookup := newFakeWikiLookup(srv)

	code, err := lookup.GuessGlottocode(context.Background(), "Klingon")
	require.NoError(t, err)
	assert.Equal(t, "", code)
}

func TestWikiServerErrorIsExternal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	lookup := newFakeWikiLookup(srv)

	_, err := lookup.Guesses(context.Background(), "French", true)
	require.Error(t, err)

	var svcErr *ExternalServiceError
	assert.True(t, errors.As(err, &svcErr), "want ExternalServiceError, got %v", err)
}

func TestExtractGlottocodes(t *testing.T) {
	guesses := extractGlottocodes(frenchWikitext)
	assert.Equal(t, []GlottocodeGuess{
		{Code: "stan1290", Primary: true},
		{Code: "pari1240", Primary: false},
	}, guesses, "glottorefname carries a name, not a code, and is skipped")

	assert.Empty(t, extractGlottocodes("no infobox here"))
}

package glottoguess

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	wikiDefaultAPIURL  = "https://en.wikipedia.org/w/api.php"
	wikiSearchLimit    = 10
	wikiDefaultRPS     = 2
	wikiLimiterBurst   = 5
	wikiFetchRetries   = 3
	wikiRequestTimeout = 15 * time.Second
)

// infoboxGlottoRe extracts infobox parameters named glotto, glotto1, glotto2,
// … together with their glottocode values from page wikitext.
var infoboxGlottoRe = regexp.MustCompile(`(?mi)^\s*\|\s*(glotto\w*)\s*=\s*([a-z][a-z0-9]{3,})`)

// GlottocodeGuess is one glottocode extracted from an encyclopedic page.
// Primary marks the page's main glottocode parameter (glotto or glotto1).
type GlottocodeGuess struct {
	Code    string
	Primary bool
}

// PageGuess is an encyclopedic page considered relevant to a language name,
// ordered by search relevance (lower is more relevant).
type PageGuess struct {
	Name      string
	Title     string
	Relevance int
	Codes     []GlottocodeGuess
}

// WikiLookup resolves language names to glottocode guesses via the MediaWiki
// API, independently of the geographic path.
type WikiLookup struct {
	client  *http.Client
	apiURL  string
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// WikiOption configures a WikiLookup.
type WikiOption func(*WikiLookup)

// WithWikiHTTPClient sets the HTTP client used for API calls.
func WithWikiHTTPClient(client *http.Client) WikiOption {
	return func(w *WikiLookup) { w.client = client }
}

// WithWikiAPIURL overrides the MediaWiki API endpoint (used by tests).
func WithWikiAPIURL(apiURL string) WikiOption {
	return func(w *WikiLookup) { w.apiURL = apiURL }
}

// WithWikiLogger sets the logger. The default discards everything.
func WithWikiLogger(logger zerolog.Logger) WikiOption {
	return func(w *WikiLookup) { w.logger = logger }
}

// WithWikiRateLimit sets the request rate limit in requests per second.
func WithWikiRateLimit(rps float64) WikiOption {
	return func(w *WikiLookup) { w.limiter = rate.NewLimiter(rate.Limit(rps), wikiLimiterBurst) }
}

// NewWikiLookup creates a reference lookup against the English Wikipedia.
func NewWikiLookup(opts ...WikiOption) *WikiLookup {
	w := &WikiLookup{
		client:  &http.Client{Timeout: wikiRequestTimeout},
		apiURL:  wikiDefaultAPIURL,
		limiter: rate.NewLimiter(rate.Limit(wikiDefaultRPS), wikiLimiterBurst),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Search queries for pages about the given language, filters out
// programming-language and "languages of" pages, and returns the remainder in
// relevance order without fetching page content.
func (w *WikiLookup) Search(ctx context.Context, language string) ([]PageGuess, error) {
	language = capitalize(language)

	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {language + " language"},
		"srlimit":  {fmt.Sprint(wikiSearchLimit)},
		"format":   {"json"},
	}

	var result struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := w.getJSON(ctx, params, &result); err != nil {
		return nil, err
	}

	var pages []PageGuess
	for i, hit := range result.Query.Search {
		titleLower := strings.ToLower(hit.Title)
		if strings.Contains(titleLower, "programming language") {
			continue
		}
		// Keep pages clearly about one language, not plurals like
		// "Languages of France".
		if !strings.Contains(titleLower, "language") || strings.Contains(titleLower, "languages") {
			continue
		}
		pages = append(pages, PageGuess{Name: language, Title: hit.Title, Relevance: i})
	}
	return pages, nil
}

// Guesses returns the glottocodes found on relevant pages, most relevant
// first. With onlyPrimary set, only codes from glotto/glotto1 infobox
// parameters are reported. An empty result is a valid "found nothing".
func (w *WikiLookup) Guesses(ctx context.Context, language string, onlyPrimary bool) ([]string, error) {
	pages, err := w.Search(ctx, language)
	if err != nil {
		return nil, err
	}

	var codes []string
	seen := make(map[string]bool)
	for _, page := range pages {
		wikitext, err := w.pageWikitext(ctx, page.Title)
		if err != nil {
			return nil, err
		}
		for _, g := range extractGlottocodes(wikitext) {
			if g.Primary || !onlyPrimary {
				if !seen[g.Code] {
					seen[g.Code] = true
					codes = append(codes, g.Code)
				}
			}
		}
	}
	return codes, nil
}

// GuessGlottocode returns the primary glottocode of the most relevant page,
// or "" when no page carries one.
func (w *WikiLookup) GuessGlottocode(ctx context.Context, language string) (string, error) {
	codes, err := w.Guesses(ctx, language, true)
	if err != nil {
		return "", err
	}
	if len(codes) == 0 {
		return "", nil
	}
	return codes[0], nil
}

// pageWikitext fetches the raw wikitext of a page.
func (w *WikiLookup) pageWikitext(ctx context.Context, title string) (string, error) {
	params := url.Values{
		"action": {"parse"},
		"page":   {title},
		"prop":   {"wikitext"},
		"format": {"json"},
	}

	var result struct {
		Parse struct {
			Wikitext struct {
				Text string `json:"*"`
			} `json:"wikitext"`
		} `json:"parse"`
	}
	if err := w.getJSON(ctx, params, &result); err != nil {
		return "", err
	}
	return result.Parse.Wikitext.Text, nil
}

// extractGlottocodes pulls glottocode infobox parameters out of wikitext.
func extractGlottocodes(wikitext string) []GlottocodeGuess {
	var out []GlottocodeGuess
	for _, m := range infoboxGlottoRe.FindAllStringSubmatch(wikitext, -1) {
		param := strings.ToLower(m[1])
		out = append(out, GlottocodeGuess{
			Code:    m[2],
			Primary: param == "glotto" || param == "glotto1",
		})
	}
	return out
}

// getJSON performs a rate-limited API call with retries and decodes the JSON
// response.
func (w *WikiLookup) getJSON(ctx context.Context, params url.Values, out any) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return &ExternalServiceError{Service: "wikipedia", Err: err}
	}

	reqURL := w.apiURL + "?" + params.Encode()

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := w.client.Do(req)
		if err != nil {
			return fmt.Errorf("HTTP GET %s: %w", reqURL, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("HTTP GET %s: status %d", reqURL, resp.StatusCode)
		}
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading %s: %w", reqURL, err)
		}
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), wikiFetchRetries), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return &ExternalServiceError{Service: "wikipedia", Err: err}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &ExternalServiceError{Service: "wikipedia", Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

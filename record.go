package glottoguess

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"gopkg.in/ini.v1"
)

// glottologTreeURL is the per-identifier record source: one md.ini per
// languoid, addressed by its ancestor path in the Glottolog tree.
const glottologTreeURL = "https://raw.githubusercontent.com/glottolog/glottolog/master/languoids/tree"

// GlottologRecords fetches name records from the Glottolog languoid tree.
// It implements RecordSource.
type GlottologRecords struct {
	catalog *Catalog
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// RecordOption configures a GlottologRecords source.
type RecordOption func(*GlottologRecords)

// WithRecordHTTPClient sets the HTTP client used for record fetches.
func WithRecordHTTPClient(client *http.Client) RecordOption {
	return func(g *GlottologRecords) { g.client = client }
}

// WithRecordBaseURL overrides the record tree URL (used by tests).
func WithRecordBaseURL(url string) RecordOption {
	return func(g *GlottologRecords) { g.baseURL = strings.TrimSuffix(url, "/") }
}

// WithRecordLogger sets the logger. The default discards everything.
func WithRecordLogger(logger zerolog.Logger) RecordOption {
	return func(g *GlottologRecords) { g.logger = logger }
}

// WithRecordRateLimit sets the request rate limit in requests per second.
func WithRecordRateLimit(rps float64) RecordOption {
	return func(g *GlottologRecords) { g.limiter = rate.NewLimiter(rate.Limit(rps), recordLimiterBurst) }
}

const (
	recordLimiterBurst   = 5
	recordDefaultRPS     = 2
	recordFetchRetries   = 3
	recordRequestTimeout = 15 * time.Second
)

// NewGlottologRecords creates a record source backed by the Glottolog tree.
// The catalog supplies the ancestor chain each record URL is built from.
func NewGlottologRecords(catalog *Catalog, opts ...RecordOption) *GlottologRecords {
	g := &GlottologRecords{
		catalog: catalog,
		client:  &http.Client{Timeout: recordRequestTimeout},
		baseURL: glottologTreeURL,
		limiter: rate.NewLimiter(rate.Limit(recordDefaultRPS), recordLimiterBurst),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NameRecord fetches and parses the md.ini record for a glottocode. It
// returns ErrRecordNotFound when the identifier has no record (unknown to the
// catalog, or absent upstream) and *ExternalServiceError on transport
// failures.
func (g *GlottologRecords) NameRecord(ctx context.Context, id string) (*NameRecord, error) {
	ancestors, err := g.catalog.Ancestors(id)
	if err != nil {
		// No ancestor path means no record URL can exist for this id.
		return nil, ErrRecordNotFound
	}
	url := g.baseURL + "/" + strings.Join(ancestors, "/") + "/md.ini"

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, &ExternalServiceError{Service: "glottolog records", Err: err}
	}

	body, err := g.fetch(ctx, url)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			g.logger.Debug().Str("glottocode", id).Str("url", url).Msg("record not found upstream")
			return nil, ErrRecordNotFound
		}
		return nil, &ExternalServiceError{Service: "glottolog records", Err: err}
	}

	rec, err := parseRecordINI(body)
	if err != nil {
		return nil, &ExternalServiceError{Service: "glottolog records", Err: fmt.Errorf("parsing %s: %w", url, err)}
	}
	return rec, nil
}

// fetch retrieves a record with retries. 404 is terminal; transient failures
// back off exponentially.
func (g *GlottologRecords) fetch(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := g.client.Do(req)
		if err != nil {
			return fmt.Errorf("HTTP GET %s: %w", url, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(ErrRecordNotFound)
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("HTTP GET %s: status %d", url, resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading %s: %w", url, err)
		}
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), recordFetchRetries), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return nil, err
	}
	return body, nil
}

// parseRecordINI extracts the primary name and grouped alternate names from
// an md.ini record. Alternate names are newline-separated within each
// provider key, configparser-style.
func parseRecordINI(data []byte) (*NameRecord, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		AllowPythonMultilineValues: true,
		IgnoreInlineComment:        true,
	}, data)
	if err != nil {
		return nil, err
	}

	rec := &NameRecord{
		Name:     f.Section("core").Key("name").String(),
		AltNames: make(map[string][]string),
	}
	if rec.Name == "" {
		return nil, errors.New("record has no core name")
	}

	for _, key := range f.Section("altnames").Keys() {
		var names []string
		for _, line := range strings.Split(key.String(), "\n") {
			if name := strings.TrimSpace(line); name != "" {
				names = append(names, name)
			}
		}
		if len(names) > 0 {
			rec.AltNames[key.Name()] = names
		}
	}
	return rec, nil
}

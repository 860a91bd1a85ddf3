package glottoguess

import (
	"archive/zip"
	"bytes"
	"compress/bzip2"
	"embed"
	"encoding/csv"
	"encoding/gob"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/golang/geo/s2"
	"github.com/rs/zerolog"
)

//go:embed glotto-cache
var cacheData embed.FS

const (
	// languoidURL is the Glottolog languoid export, a zip containing one CSV.
	languoidURL      = "https://cdstar.eva.mpg.de//bitstreams/EAEA0-2198-D710-AA36-0/glottolog_languoid.csv.zip"
	languoidZipName  = "glottolog_languoid.csv.zip"
	languoidCSVInZip = "languoid.csv"
	catalogCacheFile = "glotto-cache/languoids.dmp"
)

// Level classifies a catalog entry. LevelAll is only a filter token, never a
// stored level.
type Level string

const (
	LevelLanguage Level = "language"
	LevelDialect  Level = "dialect"
	LevelFamily   Level = "family"
	LevelAll      Level = "all"
)

// ParseLevel validates a level filter token. It returns *InvalidLevelError
// for anything outside the four recognized values.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case LevelLanguage, LevelDialect, LevelFamily, LevelAll:
		return Level(s), nil
	}
	return "", &InvalidLevelError{Level: s}
}

// Entry is one languoid in the catalog: a language, dialect, or family.
// Entries are immutable after the catalog is loaded.
type Entry struct {
	ID          string   // glottocode
	FamilyID    string   // glottocode of the top-level family, if any
	ParentID    string   // glottocode of the direct parent, if any
	Name        string   // primary name
	AltNames    []string // alternate names known locally (often empty; the full set lives in the per-identifier record)
	Level       Level
	ISOCode     string   // ISO 639-3 code, if any
	CountryIDs  []string // ISO country codes the languoid is spoken in
	HasLocation bool
	Latitude    float64
	Longitude   float64
}

// Config contains configuration options for catalog initialization.
type Config struct {
	DataDir    string // directory for downloaded raw data (default "./glotto-data")
	CacheDir   string // directory for cache files (default "./glotto-cache")
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Option is a functional option for configuring the catalog.
type Option func(*Config)

// WithDataDir sets the directory for downloaded raw data files.
func WithDataDir(dir string) Option {
	return func(c *Config) { c.DataDir = dir }
}

// WithCacheDir sets the directory for cache files.
func WithCacheDir(dir string) Option {
	return func(c *Config) { c.CacheDir = dir }
}

// WithHTTPClient sets the HTTP client used for the catalog download.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) { c.HTTPClient = client }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

func defaultConfig() *Config {
	return &Config{
		DataDir:    "./glotto-data",
		CacheDir:   "./glotto-cache",
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Logger:     zerolog.Nop(),
	}
}

// Catalog is the in-memory languoid catalog. It is loaded once and read-only
// afterward, so concurrent filter calls need no locking.
type Catalog struct {
	entries  []Entry
	byID     map[string]int
	children map[string][]int
	cells    []s2.CellID // leaf cell per entry; 0 when the entry has no location
	config   *Config
}

// NewCatalog loads the catalog, preferring the gob cache (filesystem first,
// then embedded data) and falling back to downloading and parsing the
// Glottolog export.
func NewCatalog(opts ...Option) (*Catalog, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	c := &Catalog{config: cfg}

	entries, err := loadCachedEntries()
	if err != nil || len(entries) == 0 {
		cfg.Logger.Debug().Err(err).Msg("catalog cache unavailable, downloading")
		zipPath := filepath.Join(cfg.DataDir, languoidZipName)
		if err := c.downloadLanguoids(zipPath); err != nil {
			return nil, fmt.Errorf("failed to download languoid data: %w", err)
		}
		entries, err = loadLanguoidZip(zipPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load languoid data: %w", err)
		}
		if err := storeEntries(cfg.CacheDir, entries); err != nil {
			cfg.Logger.Warn().Err(err).Msg("failed to store catalog cache")
		}
	}

	c.entries = entries
	c.buildIndexes()
	cfg.Logger.Info().Int("entries", len(c.entries)).Msg("catalog loaded")
	return c, nil
}

// NewCatalogFromEntries builds a catalog directly from entries. Intended for
// tests and embedded reference sets; concurrent test instances get fully
// independent catalogs.
func NewCatalogFromEntries(entries []Entry) *Catalog {
	c := &Catalog{entries: entries, config: defaultConfig()}
	c.buildIndexes()
	return c
}

func (c *Catalog) buildIndexes() {
	c.byID = make(map[string]int, len(c.entries))
	c.children = make(map[string][]int)
	c.cells = make([]s2.CellID, len(c.entries))
	for i, e := range c.entries {
		c.byID[e.ID] = i
		if e.ParentID != "" {
			c.children[e.ParentID] = append(c.children[e.ParentID], i)
		}
		if e.HasLocation {
			c.cells[i] = s2.CellIDFromLatLng(s2.LatLngFromDegrees(e.Latitude, e.Longitude))
		}
	}
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Entries returns all entries in catalog order. The caller must not modify
// the returned slice.
func (c *Catalog) Entries() []Entry {
	return c.entries
}

// Get returns the entry for a glottocode.
func (c *Catalog) Get(id string) (Entry, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Ancestors returns the parent chain of a glottocode ordered from the root
// family down to the glottocode itself. It returns *UnknownIdentifierError
// when the glottocode is not in the catalog.
func (c *Catalog) Ancestors(id string) ([]string, error) {
	if _, ok := c.byID[id]; !ok {
		return nil, &UnknownIdentifierError{ID: id}
	}
	var chain []string
	seen := make(map[string]bool)
	for cur := id; cur != "" && !seen[cur]; {
		seen[cur] = true
		chain = append(chain, cur)
		e, ok := c.Get(cur)
		if !ok {
			break
		}
		cur = e.ParentID
	}
	// Walked child-to-root; reverse into root-to-child order.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// Children returns the glottocodes whose parent is any of the given ids, in
// catalog order.
func (c *Catalog) Children(ids []string) []string {
	member := make(map[int]bool)
	for _, id := range ids {
		for _, i := range c.children[id] {
			member[i] = true
		}
	}
	out := make([]string, 0, len(member))
	for i, e := range c.entries {
		if member[i] {
			out = append(out, e.ID)
		}
	}
	return out
}

// Parents returns the distinct parent glottocodes of the given ids, in
// catalog order.
func (c *Catalog) Parents(ids []string) []string {
	member := make(map[int]bool)
	for _, id := range ids {
		if e, ok := c.Get(id); ok && e.ParentID != "" {
			if i, ok := c.byID[e.ParentID]; ok {
				member[i] = true
			}
		}
	}
	out := make([]string, 0, len(member))
	for i, e := range c.entries {
		if member[i] {
			out = append(out, e.ID)
		}
	}
	return out
}

// downloadLanguoids fetches the languoid zip if it is not already on disk.
func (c *Catalog) downloadLanguoids(zipPath string) error {
	if _, err := os.Stat(zipPath); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(zipPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	c.config.Logger.Info().Str("url", languoidURL).Msg("downloading languoid export")
	return downloadFile(c.config.HTTPClient, languoidURL, zipPath)
}

func downloadFile(client *http.Client, url, path string) error {
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("HTTP GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP GET %s: status %d", url, resp.StatusCode)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", path, err)
	}

	success := false
	defer func() {
		out.Close()
		if !success {
			os.Remove(path) // best-effort cleanup of partial file
		}
	}()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("writing file %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing file %s: %w", path, err)
	}
	success = true
	return nil
}

// loadLanguoidZip opens the downloaded export and parses the CSV it contains.
func loadLanguoidZip(zipPath string) ([]Entry, error) {
	rz, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("opening zip file: %w", err)
	}
	defer rz.Close()

	for _, f := range rz.File {
		if filepath.Base(f.Name) != languoidCSVInZip {
			continue
		}
		fi, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s in zip: %w", f.Name, err)
		}
		defer fi.Close()
		return parseLanguoidCSV(fi)
	}
	return nil, fmt.Errorf("%q not found in zip archive %s", languoidCSVInZip, zipPath)
}

// parseLanguoidCSV reads the languoid export. Columns are located by header
// name so column reordering upstream does not break the parse.
func parseLanguoidCSV(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"id", "name", "level"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("languoid CSV missing required column %q", required)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var entries []Entry
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV record: %w", err)
		}

		e := Entry{
			ID:       field(rec, "id"),
			FamilyID: field(rec, "family_id"),
			ParentID: field(rec, "parent_id"),
			Name:     field(rec, "name"),
			Level:    Level(field(rec, "level")),
			ISOCode:  field(rec, "iso639P3code"),
		}
		if e.ID == "" {
			continue
		}
		if countries := field(rec, "country_ids"); countries != "" {
			e.CountryIDs = strings.Fields(countries)
		}

		// Coordinates are optional; families typically have none. Records
		// with only one parseable coordinate are treated as unlocated
		// rather than pinned to a bogus axis.
		latStr, lngStr := field(rec, "latitude"), field(rec, "longitude")
		if latStr != "" && lngStr != "" {
			lat, errLat := strconv.ParseFloat(latStr, 64)
			lng, errLng := strconv.ParseFloat(lngStr, 64)
			if errLat == nil && errLng == nil {
				e.HasLocation = true
				e.Latitude = lat
				e.Longitude = lng
			}
		}

		entries = append(entries, e)
	}
	return entries, nil
}

// storeEntries saves the parsed catalog to the gob cache.
func storeEntries(cacheDir string, entries []Entry) error {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	b := new(bytes.Buffer)
	if err := gob.NewEncoder(b).Encode(entries); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cacheDir, filepath.Base(catalogCacheFile)), b.Bytes(), 0644)
}

func openOptionallyCachedFile(file string) (fs.File, error) {
	// Filesystem first so a freshly regenerated cache overrides embedded data.
	if fh, err := os.Open(file); err == nil {
		return fh, nil
	}
	return cacheData.Open(file)
}

func openOptionallyBzippedFile(file string) (io.Reader, func() error, error) {
	fh, err := openOptionallyCachedFile(file + ".bz2")
	if err != nil {
		fh, err = openOptionallyCachedFile(file)
		if err != nil {
			return nil, nil, fmt.Errorf("opening %s: %w", file, err)
		}
		return fh, fh.Close, nil
	}
	return bzip2.NewReader(fh), fh.Close, nil
}

func loadCachedEntries() ([]Entry, error) {
	fh, cleanup, err := openOptionallyBzippedFile(catalogCacheFile)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	var entries []Entry
	if err := gob.NewDecoder(fh).Decode(&entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// RegenerateCache reloads the catalog from the raw data files and rewrites
// the gob cache. The languoid zip must already exist in the data dir (or be
// downloadable).
//
// After running, compress the cache file with bzip2:
//
//	bzip2 -f glotto-cache/*.dmp
func RegenerateCache(opts ...Option) error {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	c := &Catalog{config: cfg}
	zipPath := filepath.Join(cfg.DataDir, languoidZipName)
	if err := c.downloadLanguoids(zipPath); err != nil {
		return fmt.Errorf("failed to download languoid data: %w", err)
	}
	entries, err := loadLanguoidZip(zipPath)
	if err != nil {
		return fmt.Errorf("failed to load languoid data: %w", err)
	}
	return storeEntries(cfg.CacheDir, entries)
}

// Validation thresholds for catalog integrity checks. Glottolog ships ~26K
// languoids; a much smaller count means a truncated download or parse bug.
const minEntryCount = 20000

// validationEntry defines a known languoid for functional validation.
type validationEntry struct {
	id        string
	wantName  string
	wantLevel Level
}

var knownEntries = []validationEntry{
	{"stan1290", "French", LevelLanguage},
	{"stan1293", "English", LevelLanguage},
	{"indo1319", "Indo-European", LevelFamily},
}

// ValidateCache loads the catalog and performs integrity and functional
// checks, returning an error if validation fails.
func ValidateCache(opts ...Option) error {
	c, err := NewCatalog(opts...)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	if c.Len() < minEntryCount {
		return fmt.Errorf("entry count too low: got %d, want >= %d", c.Len(), minEntryCount)
	}

	for _, tc := range knownEntries {
		e, ok := c.Get(tc.id)
		if !ok {
			return fmt.Errorf("known glottocode %q missing from catalog", tc.id)
		}
		if e.Name != tc.wantName {
			return fmt.Errorf("entry %q name = %q, want %q", tc.id, e.Name, tc.wantName)
		}
		if e.Level != tc.wantLevel {
			return fmt.Errorf("entry %q level = %q, want %q", tc.id, e.Level, tc.wantLevel)
		}
	}

	return nil
}

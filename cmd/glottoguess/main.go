// Command glottoguess maps natural-language names for human languages to
// Glottolog glottocodes.
//
// Two independent resolution paths are available: an encyclopedic lookup
// (wiki) and a geography-constrained candidate filter followed by LLM
// disambiguation (guess). A verification step (verify) checks a resolved
// glottocode against its recorded names.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/glottolabs/glottoguess"
)

type config struct {
	DataDir         string  `env:"GLOTTO_DATA_DIR" envDefault:"./glotto-data"`
	CacheDir        string  `env:"GLOTTO_CACHE_DIR" envDefault:"./glotto-cache"`
	OpenAIAPIKey    string  `env:"OPENAI_API_KEY"`
	AnthropicAPIKey string  `env:"ANTHROPIC_API_KEY"`
	LLMProvider     string  `env:"LLM_PROVIDER" envDefault:"openai"`
	LLMModel        string  `env:"LLM_MODEL"`
	RateLimitRPS    float64 `env:"RATE_LIMIT_RPS" envDefault:"1"`
	LogLevel        string  `env:"LOG_LEVEL" envDefault:"info"`
}

type app struct {
	cfg    config
	logger zerolog.Logger
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load() // .env is optional

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	a := &app{cfg: cfg, logger: logger}

	root := &cobra.Command{
		Use:           "glottoguess",
		Short:         "Map language names to Glottolog glottocodes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		a.candidatesCmd(),
		a.guessCmd(),
		a.wikiCmd(),
		a.verifyCmd(),
		a.updateCacheCmd(),
	)
	return root.Execute()
}

func (a *app) openCatalog() (*glottoguess.Catalog, error) {
	return glottoguess.NewCatalog(
		glottoguess.WithDataDir(a.cfg.DataDir),
		glottoguess.WithCacheDir(a.cfg.CacheDir),
		glottoguess.WithLogger(a.logger),
	)
}

// geoFlags are the shared geographic filter flags.
type geoFlags struct {
	lon       float64
	lat       float64
	buffer    float64
	level     string
	relatives bool
}

func (f *geoFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.lon, "lon", 0, "longitude of the search location (degrees)")
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "latitude of the search location (degrees)")
	cmd.Flags().Float64Var(&f.buffer, "buffer", 500, "search radius in kilometers")
	cmd.Flags().StringVar(&f.level, "level", "language", "catalog level filter: language, dialect, family, or all")
	cmd.Flags().BoolVar(&f.relatives, "relatives", false, "include parents and children of spatial hits")
	_ = cmd.MarkFlagRequired("lon")
	_ = cmd.MarkFlagRequired("lat")
}

func (a *app) filterCandidates(catalog *glottoguess.Catalog, f geoFlags) ([]string, error) {
	level, err := glottoguess.ParseLevel(f.level)
	if err != nil {
		return nil, err
	}
	region, err := glottoguess.BuildRegion(glottoguess.Point{Lon: f.lon, Lat: f.lat})
	if err != nil {
		return nil, err
	}
	return catalog.FilterCandidates(region, f.buffer, level,
		glottoguess.FilterOptions{IncludeRelatives: f.relatives})
}

func (a *app) candidatesCmd() *cobra.Command {
	var flags geoFlags
	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "List glottocodes near a location",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := a.openCatalog()
			if err != nil {
				return err
			}
			ids, err := a.filterCandidates(catalog, flags)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				fmt.Println("No candidates found.")
				return nil
			}
			for _, id := range ids {
				e, _ := catalog.Get(id)
				fmt.Printf("%s\t%s\t%s\n", e.ID, e.Level, e.Name)
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *app) disambiguator() (glottoguess.Disambiguator, error) {
	switch strings.ToLower(a.cfg.LLMProvider) {
	case "openai":
		if a.cfg.OpenAIAPIKey == "" {
			return nil, errors.New("OPENAI_API_KEY is not set")
		}
		opts := []glottoguess.OpenAIOption{
			glottoguess.WithOpenAILogger(a.logger),
			glottoguess.WithOpenAIRateLimit(a.cfg.RateLimitRPS),
		}
		if a.cfg.LLMModel != "" {
			opts = append(opts, glottoguess.WithOpenAIModel(a.cfg.LLMModel))
		}
		return glottoguess.NewOpenAIDisambiguator(a.cfg.OpenAIAPIKey, opts...), nil
	case "anthropic":
		if a.cfg.AnthropicAPIKey == "" {
			return nil, errors.New("ANTHROPIC_API_KEY is not set")
		}
		opts := []glottoguess.AnthropicOption{
			glottoguess.WithAnthropicLogger(a.logger),
			glottoguess.WithAnthropicRateLimit(a.cfg.RateLimitRPS),
		}
		if a.cfg.LLMModel != "" {
			opts = append(opts, glottoguess.WithAnthropicModel(a.cfg.LLMModel))
		}
		return glottoguess.NewAnthropicDisambiguator(a.cfg.AnthropicAPIKey, opts...), nil
	}
	return nil, fmt.Errorf("unsupported LLM provider %q: must be 'openai' or 'anthropic'", a.cfg.LLMProvider)
}

func (a *app) guessCmd() *cobra.Command {
	var flags geoFlags
	cmd := &cobra.Command{
		Use:   "guess <language>",
		Short: "Guess the glottocode for a language name near a location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			language := args[0]

			d, err := a.disambiguator()
			if err != nil {
				return err
			}
			catalog, err := a.openCatalog()
			if err != nil {
				return err
			}

			ids, err := a.filterCandidates(catalog, flags)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				fmt.Println("No candidates found; widen the buffer or check the location.")
				return nil
			}
			a.logger.Info().Int("candidates", len(ids)).Str("language", language).Msg("disambiguating")

			guess, err := d.Disambiguate(cmd.Context(), language, catalog.Candidates(ids))
			if err != nil {
				return err
			}
			if guess == "" {
				fmt.Println("No match among the candidates.")
				return nil
			}
			fmt.Println(guess)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *app) wikiCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "wiki <language>",
		Short: "Look up glottocode guesses from Wikipedia",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lookup := glottoguess.NewWikiLookup(
				glottoguess.WithWikiLogger(a.logger),
				glottoguess.WithWikiRateLimit(a.cfg.RateLimitRPS),
			)
			codes, err := lookup.Guesses(cmd.Context(), args[0], !all)
			if err != nil {
				return err
			}
			if len(codes) == 0 {
				fmt.Println("No glottocode found.")
				return nil
			}
			for _, code := range codes {
				fmt.Println(code)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "report non-primary glottocodes too")
	return cmd
}

func (a *app) verifyCmd() *cobra.Command {
	var fuzzy int
	cmd := &cobra.Command{
		Use:   "verify <language> <glottocode>",
		Short: "Check a glottocode against the recorded names for a language",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := a.openCatalog()
			if err != nil {
				return err
			}
			records := glottoguess.NewGlottologRecords(catalog,
				glottoguess.WithRecordLogger(a.logger),
				glottoguess.WithRecordRateLimit(a.cfg.RateLimitRPS),
			)
			verifier := glottoguess.NewVerifier(catalog, records)

			ok, err := verifier.Verify(cmd.Context(), args[0], args[1],
				glottoguess.VerifyOptions{FuzzyDistance: fuzzy})
			if err != nil {
				return err
			}
			if ok {
				fmt.Printf("%s is a recorded name for %s\n", args[0], args[1])
			} else {
				fmt.Printf("%s is NOT a recorded name for %s\n", args[0], args[1])
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&fuzzy, "fuzzy", 0, "max edit distance for typo tolerance (0 = exact)")
	return cmd
}

func (a *app) updateCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update-cache",
		Short: "Regenerate the catalog cache from the Glottolog export",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []glottoguess.Option{
				glottoguess.WithDataDir(a.cfg.DataDir),
				glottoguess.WithCacheDir(a.cfg.CacheDir),
				glottoguess.WithLogger(a.logger),
			}
			if err := glottoguess.RegenerateCache(opts...); err != nil {
				return err
			}
			if err := glottoguess.ValidateCache(opts...); err != nil {
				return err
			}
			fmt.Println("Cache regenerated successfully.")
			fmt.Println("Run 'bzip2 -f glotto-cache/*.dmp' to compress the cache files.")
			return nil
		},
	}
}

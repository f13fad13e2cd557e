// post-link-finder finds the permalinks of Instagram and Facebook posts
// exported from the Meta Content Library.
//
// Posts are looked up by text and author through an ordered chain of search
// providers: the Google Custom Search JSON API (with key rotation), search
// page scrapers, SearXNG and Google web search. Runs as a batch CLI over CSV
// files or as an HTTP MCP server.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/RenanCampista/post-link-finder/internal/engine"
	"github.com/RenanCampista/post-link-finder/internal/network"
	"github.com/anatolykoptev/go-kit/env"
	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/proxypool"
	"github.com/joho/godotenv"
)

var version = "dev"

const usage = `usage: post-link-finder <command> [flags]

commands:
  resolve   find the post URL of every row missing one
  format    map a Content Library export onto the network schema
  split     split a CSV into parts of PART_SIZE rows
  serve     run the MCP server
  version   print the version

Run "post-link-finder <command> -h" for the flags of a command.
`

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "loading .env: %v\n", err)
	}
	initLogging(env.Str("LOG_LEVEL", "info"))

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	var code int
	switch cmd {
	case "resolve":
		code = runResolve(args)
	case "format":
		code = runFormat(args)
	case "split":
		code = runSplit(args)
	case "serve":
		code = runServe(args)
	case "version":
		fmt.Println(version)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		code = 2
	}
	os.Exit(code)
}

func initLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// loadConfig reads the engine configuration from the environment.
func loadConfig() (engine.Config, error) {
	mode, err := network.ParseMode(env.Str("VALIDATION_MODE", ""))
	if err != nil {
		return engine.Config{}, err
	}
	fetchTimeout := env.Duration("FETCH_TIMEOUT", 20*time.Second)

	c := engine.Config{
		CSEID:               env.Str("CSE_ID", ""),
		CSEKeys:             cseKeys(),
		CSERequestLimit:     env.Int("CSE_REQUEST_LIMIT", 100),
		CSEQPS:              env.Float("CSE_QPS", 1),
		SearchLanguage:      env.Str("SEARCH_LANGUAGE", "pt-BR"),
		SimilarityThreshold: env.Float("SIMILARITY_THRESHOLD", 0.45),
		ValidationMode:      mode,
		ProviderOrder:       names(env.List("PROVIDER_ORDER", strings.Join(engine.DefaultProviderOrder, ","))),
		ScrapeTargets:       names(env.List("SCRAPE_TARGETS", strings.Join(engine.DefaultScrapeTargets, ","))),
		ScrapeDelayMin:      env.Duration("SCRAPE_DELAY_MIN", time.Second),
		ScrapeDelayMax:      env.Duration("SCRAPE_DELAY_MAX", 3*time.Second),
		SearxngURL:          env.Str("SEARXNG_URL", ""),
		FetchTimeout:        fetchTimeout,
		HTTPClient: &http.Client{
			Timeout: fetchTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}
	if err := c.Validate(); err != nil {
		return engine.Config{}, err
	}

	opts := []stealth.ClientOption{stealth.WithTimeout(int(fetchTimeout / time.Second))}
	if apiKey := env.Str("WEBSHARE_API_KEY", ""); apiKey != "" {
		pool, err := proxypool.NewWebshare(apiKey)
		if err != nil {
			slog.Warn("proxy pool init failed, running without proxy", slog.Any("error", err))
		} else {
			opts = append(opts, stealth.WithProxyPool(pool))
			slog.Info("proxy pool initialized", slog.Int("proxies", pool.Len()))
		}
	}
	bc, err := stealth.NewClient(opts...)
	if err != nil {
		slog.Warn("stealth client init failed, scraping with net/http", slog.Any("error", err))
	} else {
		c.BrowserClient = bc
		slog.Debug("stealth browser client initialized")
	}

	return c, nil
}

// cseKeys merges CSE_API_KEYS with the indexed NUM_KEYS / CSE_API_KEY_<i>
// layout (i from 0 to NUM_KEYS-1), dropping blanks and duplicates.
func cseKeys() []string {
	keys := env.List("CSE_API_KEYS", "")
	for i := range env.Int("NUM_KEYS", 0) {
		keys = append(keys, env.Str(fmt.Sprintf("CSE_API_KEY_%d", i), ""))
	}
	var out []string
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" && !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	return out
}

func names(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

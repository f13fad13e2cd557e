package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/RenanCampista/post-link-finder/internal/engine"
	"github.com/RenanCampista/post-link-finder/internal/finderserver"
	"github.com/RenanCampista/post-link-finder/internal/journal"
	"github.com/RenanCampista/post-link-finder/internal/network"
	"github.com/RenanCampista/post-link-finder/internal/posts"
	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func runResolve(args []string) int {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	netName := fs.String("network", "", "instagram or facebook")
	in := fs.String("in", "", "input CSV (more files may follow the flags)")
	out := fs.String("out", "", "output CSV (default <in>_with_urls.csv)")
	policyName := fs.String("policy", env.Str("UNRESOLVED_POLICY", string(posts.PolicyProfile)), "unresolved rows: profile, keep, drop or split")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	id, err := network.Parse(*netName)
	if err != nil {
		slog.Error("invalid network", slog.Any("error", err))
		return 2
	}
	policy, err := posts.ParsePolicy(*policyName)
	if err != nil {
		slog.Error("invalid policy", slog.Any("error", err))
		return 2
	}
	files := fs.Args()
	if *in != "" {
		files = append([]string{*in}, files...)
	}
	if len(files) == 0 {
		slog.Error("no input file, use -in")
		return 2
	}
	if *out != "" && len(files) > 1 {
		slog.Error("-out needs a single input file")
		return 2
	}

	c, err := loadConfig()
	if err != nil {
		slog.Error("configuration error", slog.Any("error", err))
		return 1
	}
	orch, err := engine.NewOrchestratorFromConfig(c)
	if err != nil {
		slog.Error("configuration error", slog.Any("error", err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := &posts.Batch{
		Spec:     id.Spec(),
		Resolver: orch,
		Policy:   policy,
		RunID:    uuid.NewString(),
	}
	if dsn := env.Str("JOURNAL_DSN", ""); dsn != "" {
		j, err := journal.Open(ctx, dsn)
		if err != nil {
			slog.Error("journal open failed", slog.Any("error", err))
			return 1
		}
		defer j.Close()
		b.Journal = j
	}

	slog.Info("starting resolve",
		slog.String("network", id.String()),
		slog.String("run_id", b.RunID),
		slog.String("providers", strings.Join(orch.Providers(), ",")),
		slog.String("policy", string(policy)),
	)

	start := time.Now()
	var total posts.Summary
	failed := false
	for _, path := range files {
		sum, err := b.RunFile(ctx, path, *out)
		if err != nil {
			slog.Error("file failed", slog.String("path", path), slog.Any("error", err))
			failed = true
			continue
		}
		total = addSummary(total, sum)
		if sum.Interrupted || sum.Exhausted {
			resolved, _ := posts.OutputPaths(path)
			if *out != "" {
				resolved = *out
			}
			slog.Warn("run stopped early, rerun on the output to resume", slog.String("output", resolved))
			break
		}
	}

	printSummary(total, orch, time.Since(start))
	slog.Debug("metrics\n" + engine.FormatMetrics())

	if failed || total.Interrupted || total.Exhausted {
		return 1
	}
	return 0
}

func addSummary(a, b posts.Summary) posts.Summary {
	a.Total += b.Total
	a.AlreadyFound += b.AlreadyFound
	a.AlreadyOpen += b.AlreadyOpen
	a.Found += b.Found
	a.NotFound += b.NotFound
	a.Pending += b.Pending
	a.Interrupted = a.Interrupted || b.Interrupted
	a.Exhausted = a.Exhausted || b.Exhausted
	return a
}

func printSummary(s posts.Summary, orch *engine.Orchestrator, elapsed time.Duration) {
	bold := color.New(color.Bold)
	bold.Println("\nSummary")
	fmt.Printf("  %s %d/%d posts with a URL (%d found now, %d already had one)\n",
		color.GreenString("found:"), s.Successes(), s.Total, s.Found, s.AlreadyFound)
	if s.NotFound > 0 {
		fmt.Printf("  %s %d\n", color.RedString("not found:"), s.NotFound)
	}
	if s.AlreadyOpen > 0 {
		fmt.Printf("  %s %d\n", color.YellowString("profile url only:"), s.AlreadyOpen)
	}
	if s.Pending > 0 {
		fmt.Printf("  %s %d\n", color.YellowString("pending:"), s.Pending)
	}

	stats := orch.Stats()
	providers := make([]string, 0, len(stats.SuccessByProvider))
	for name := range stats.SuccessByProvider {
		providers = append(providers, name)
	}
	slices.Sort(providers)
	for _, name := range providers {
		fmt.Printf("  %s %d\n", color.CyanString(name+":"), stats.SuccessByProvider[name])
	}
	for _, st := range orch.ProviderStates() {
		if st.Exhausted {
			fmt.Printf("  %s %s\n", color.RedString("exhausted:"), st.Name)
		}
	}

	switch {
	case s.Interrupted:
		fmt.Println(color.YellowString("  interrupted, progress saved"))
	case s.Exhausted:
		fmt.Println(color.RedString("  every search provider is exhausted, progress saved"))
	}
	fmt.Printf("  elapsed: %s\n", elapsed.Round(time.Second))
}

func runFormat(args []string) int {
	fs := flag.NewFlagSet("format", flag.ContinueOnError)
	netName := fs.String("network", "", "instagram or facebook")
	in := fs.String("in", "", "Content Library export CSV")
	out := fs.String("out", "", "output CSV (default <in>_formatted.csv)")
	minChars := fs.Int("min-chars", env.Int("MIN_TEXT_CHARS", posts.DefaultMinTextChars), "drop posts with shorter text")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	id, err := network.Parse(*netName)
	if err != nil {
		slog.Error("invalid network", slog.Any("error", err))
		return 2
	}
	if *in == "" {
		slog.Error("no input file, use -in")
		return 2
	}
	dst := *out
	if dst == "" {
		dst = strings.TrimSuffix(*in, filepath.Ext(*in)) + "_formatted.csv"
	}

	raw, err := posts.ReadFile(*in)
	if err != nil {
		slog.Error("read failed", slog.Any("error", err))
		return 1
	}
	cleaned, rep, err := posts.Clean(raw, *minChars)
	if err != nil {
		slog.Error("clean failed", slog.Any("error", err))
		return 1
	}
	formatted, err := posts.Format(cleaned, id.Spec())
	if err != nil {
		slog.Error("format failed", slog.Any("error", err))
		return 1
	}
	if err := formatted.WriteFile(dst); err != nil {
		slog.Error("write failed", slog.Any("error", err))
		return 1
	}
	slog.Info("formatted",
		slog.String("output", dst),
		slog.Int("read", rep.Read),
		slog.Int("duplicates", rep.Duplicates),
		slog.Int("too_short", rep.TooShort),
		slog.Int("kept", rep.Kept),
	)
	return 0
}

func runSplit(args []string) int {
	fs := flag.NewFlagSet("split", flag.ContinueOnError)
	in := fs.String("in", "", "CSV to split")
	size := fs.Int("size", env.Int("PART_SIZE", posts.DefaultPartSize), "rows per part")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *in == "" {
		slog.Error("no input file, use -in")
		return 2
	}
	files, err := posts.SplitFile(*in, *size)
	if err != nil {
		slog.Error("split failed", slog.Any("error", err))
		return 1
	}
	for _, f := range files {
		fmt.Println(f)
	}
	slog.Info("split done", slog.Int("parts", len(files)))
	return 0
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	port := fs.String("port", env.Str("MCP_PORT", "8893"), "HTTP port")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	c, err := loadConfig()
	if err != nil {
		slog.Error("configuration error", slog.Any("error", err))
		return 1
	}
	orch, err := engine.NewOrchestratorFromConfig(c)
	if err != nil {
		slog.Error("configuration error", slog.Any("error", err))
		return 1
	}

	slog.Info("starting post-link-finder",
		slog.String("port", *port),
		slog.String("providers", strings.Join(orch.Providers(), ",")),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "post-link-finder",
		Version: version,
	}, nil)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cache := engine.NewLookupCache(ctx,
		env.Duration("CACHE_TTL", 24*time.Hour),
		env.Int("CACHE_MAX_ENTRIES", 1000),
		env.Duration("CACHE_CLEANUP_INTERVAL", 5*time.Minute),
	)
	finderserver.RegisterTools(server, orch, cache)

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "post-link-finder",
		Version:      version,
		Port:         *port,
		WriteTimeout: 600 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
		return 1
	}
	return 0
}

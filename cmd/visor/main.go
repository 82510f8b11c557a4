// visor is the operator console for a video analytics backend. It keeps a
// live local buffer of AI results by polling the REST API and merging
// websocket pushes, and exposes both an interactive terminal UI and
// one-shot subcommands for scripting.
//
// Usage:
//
//	visor watch   [--config path] [--api url]
//	visor streams [list|create|start|stop|delete] [flags]
//	visor results [--stream id] [--level l] [--search text] [--sort key] [--asc]
//	visor stats
//	visor models
//	visor export  [--format json|csv] [--out path] [flags]
//	visor health
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/x/term"

	"github.com/visorlabs/visor/internal/api"
	"github.com/visorlabs/visor/internal/config"
	"github.com/visorlabs/visor/internal/export"
	"github.com/visorlabs/visor/internal/push"
	"github.com/visorlabs/visor/internal/query"
	"github.com/visorlabs/visor/internal/result"
	"github.com/visorlabs/visor/internal/session"
	"github.com/visorlabs/visor/internal/tui"
)

const commandTimeout = 15 * time.Second

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "watch":
		cmdWatch(os.Args[2:])
	case "streams":
		cmdStreams(os.Args[2:])
	case "results":
		cmdResults(os.Args[2:])
	case "stats":
		cmdStats(os.Args[2:])
	case "models":
		cmdModels(os.Args[2:])
	case "export":
		cmdExport(os.Args[2:])
	case "health":
		cmdHealth(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: visor <command> [flags]

Commands:
  watch     Open the interactive console
  streams   List and manage video streams
  results   Fetch and filter recent AI results
  stats     Show backend dashboard statistics
  models    List available AI models
  export    Write recent results to a file
  health    Check backend availability

Run 'visor <command> --help' for details on each command.
`)
}

// addCommonFlags registers the flags every subcommand shares and returns
// pointers consumed by loadConfig.
func addCommonFlags(fs *flag.FlagSet) (configPath, apiURL *string) {
	configPath = fs.String("config", "", "config file (default ~/.visor/config.yaml)")
	apiURL = fs.String("api", "", "backend base URL (overrides config)")
	return configPath, apiURL
}

func loadConfig(configPath, apiURL string) *config.Config {
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fatalf("loading config: %v", err)
	}
	if apiURL != "" {
		cfg.API.BaseURL = strings.TrimRight(apiURL, "/")
		cfg.Push.URL = config.DerivePushURL(cfg.API.BaseURL)
	}
	return cfg
}

func newClient(cfg *config.Config) *api.Client {
	return api.New(cfg.API.BaseURL, cfg.APIKey(), cfg.API.Timeout.Std())
}

func requireID(id string) {
	if id == "" {
		fatalf("missing required flag: -id")
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func cmdWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath, apiURL := addCommonFlags(fs)
	fs.Parse(args)

	if !term.IsTerminal(os.Stdout.Fd()) {
		fatalf("watch requires a terminal; use 'visor results' for scripted output")
	}

	cfg := loadConfig(*configPath, *apiURL)
	client := newClient(cfg)
	channel := push.New(cfg.Push.URL, cfg.Push.PingInterval.Std())
	sess := session.New(client, channel, cfg.Console.PollInterval.Std())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	sess.Start(ctx)
	defer sess.Close()

	if err := tui.Run(sess); err != nil {
		fatalf("console: %v", err)
	}
}

func cmdStreams(args []string) {
	sub := "list"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		sub, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet("streams "+sub, flag.ExitOnError)
	configPath, apiURL := addCommonFlags(fs)
	id := fs.String("id", "", "stream id")
	source := fs.String("source", "webcam", "source type: webcam, rtsp or file")
	sourcePath := fs.String("path", "", "source path or URL")
	models := fs.String("models", "object_detection", "comma-separated AI models")
	fs.Parse(args)

	client := newClient(loadConfig(*configPath, *apiURL))
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch sub {
	case "list":
		streams, err := client.FetchStreams(ctx)
		if err != nil {
			fatalf("fetching streams: %v", err)
		}
		if len(streams) == 0 {
			fmt.Println("No streams configured.")
			return
		}
		fmt.Printf("%-36s  %-8s  %-7s  %-8s  %s\n", "STREAM", "SOURCE", "STATE", "FRAMES", "MODELS")
		for _, s := range streams {
			state := "stopped"
			if s.IsRunning {
				state = "running"
			}
			fmt.Printf("%-36s  %-8s  %-7s  %-8d  %s\n",
				s.StreamID, s.Config.Source, state, s.FrameCount,
				strings.Join(s.Config.AIModels, ","))
		}
	case "create":
		created, err := client.CreateStream(ctx, result.StreamConfig{
			StreamID:   *id,
			Source:     *source,
			SourcePath: *sourcePath,
			AIModels:   strings.Split(*models, ","),
			IsActive:   true,
		})
		if err != nil {
			fatalf("creating stream: %v", err)
		}
		fmt.Printf("Created stream %s\n", created)
	case "start":
		requireID(*id)
		if err := client.StartStream(ctx, *id); err != nil {
			fatalf("starting stream: %v", err)
		}
		fmt.Printf("Started stream %s\n", *id)
	case "stop":
		requireID(*id)
		if err := client.StopStream(ctx, *id); err != nil {
			fatalf("stopping stream: %v", err)
		}
		fmt.Printf("Stopped stream %s\n", *id)
	case "delete":
		requireID(*id)
		if err := client.DeleteStream(ctx, *id); err != nil {
			fatalf("deleting stream: %v", err)
		}
		fmt.Printf("Deleted stream %s\n", *id)
	default:
		fatalf("unknown streams subcommand: %s (want list, create, start, stop or delete)", sub)
	}
}

func cmdResults(args []string) {
	fs := flag.NewFlagSet("results", flag.ExitOnError)
	configPath, apiURL := addCommonFlags(fs)
	stream := fs.String("stream", "", "filter by stream id")
	level := fs.String("level", "", "filter by alert level: info, warning or critical")
	model := fs.String("model", "", "filter by model name")
	search := fs.String("search", "", "free-text search")
	sortKey := fs.String("sort", "timestamp", "sort key: timestamp, confidence or alert_level")
	asc := fs.Bool("asc", false, "sort ascending instead of descending")
	limit := fs.Int("limit", 0, "maximum results to fetch (default from config)")
	fs.Parse(args)

	items := fetchFiltered(loadConfig(*configPath, *apiURL), *stream, *level, *model, *search, *sortKey, *asc, *limit)
	if len(items) == 0 {
		fmt.Println("No results.")
		return
	}
	fmt.Printf("%-20s  %-8s  %-24s  %-10s  %s\n", "TIME", "LEVEL", "MODEL", "CONF", "STREAM")
	for _, r := range items {
		fmt.Printf("%-20s  %-8s  %-24s  %-10.2f  %s\n",
			r.Timestamp.Format("2006-01-02 15:04:05"),
			r.AlertLevel, r.ModelName, r.Confidence, r.StreamID)
	}
}

// fetchFiltered pulls a snapshot from the backend and applies the local
// query engine to it, so one-shot commands filter exactly like the console.
func fetchFiltered(cfg *config.Config, stream, level, model, search, sortKey string, asc bool, limit int) []result.AIResult {
	client := newClient(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if limit <= 0 {
		limit = cfg.Console.ResultLimit
	}

	lvl := result.AlertLevel(level)
	if level != "" && !lvl.Valid() {
		fatalf("unknown alert level: %s", level)
	}
	key, ok := query.ParseSortKey(sortKey)
	if !ok {
		fatalf("unknown sort key: %s (want timestamp, confidence or alert_level)", sortKey)
	}

	items, _, err := client.FetchResults(ctx, api.ResultFilter{
		StreamID:   stream,
		Limit:      limit,
		AlertLevel: lvl,
	})
	if err != nil {
		fatalf("fetching results: %v", err)
	}

	dir := query.Descending
	if asc {
		dir = query.Ascending
	}
	return query.Apply(items, query.Filter{
		ModelName: model,
		Search:    search,
	}, key, dir)
}

func cmdStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath, apiURL := addCommonFlags(fs)
	asJSON := fs.Bool("json", false, "print raw JSON")
	fs.Parse(args)

	client := newClient(loadConfig(*configPath, *apiURL))
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	stats, err := client.FetchStats(ctx)
	if err != nil {
		fatalf("fetching stats: %v", err)
	}
	if *asJSON {
		printJSON(os.Stdout, stats)
		return
	}
	fmt.Printf("Streams:  %d active / %d total\n", stats.ActiveStreams, stats.TotalStreams)
	fmt.Printf("Results:  %d recent, %d alerts\n", stats.RecentResults, stats.Alerts)
	for level, n := range stats.AlertCounts {
		fmt.Printf("  %-10s %d\n", level, n)
	}
}

func cmdModels(args []string) {
	fs := flag.NewFlagSet("models", flag.ExitOnError)
	configPath, apiURL := addCommonFlags(fs)
	fs.Parse(args)

	client := newClient(loadConfig(*configPath, *apiURL))
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	models, err := client.FetchModels(ctx)
	if err != nil {
		fatalf("fetching models: %v", err)
	}
	fmt.Printf("%-24s  %-8s  %s\n", "MODEL", "VISION", "DESCRIPTION")
	for _, m := range models {
		vision := "no"
		if m.VisionEnabled {
			vision = "yes"
		}
		fmt.Printf("%-24s  %-8s  %s\n", m.Name, vision, m.Description)
	}
}

func cmdExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath, apiURL := addCommonFlags(fs)
	stream := fs.String("stream", "", "filter by stream id")
	level := fs.String("level", "", "filter by alert level")
	format := fs.String("format", "json", "output format: json or csv")
	out := fs.String("out", "", "output file (default stdout)")
	limit := fs.Int("limit", 0, "maximum results to fetch (default from config)")
	fs.Parse(args)

	items := fetchFiltered(loadConfig(*configPath, *apiURL), *stream, *level, "", "", "timestamp", false, *limit)

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			fatalf("creating %s: %v", *out, err)
		}
		defer f.Close()
		w = f
	}

	var err error
	switch *format {
	case "json":
		err = export.WriteJSON(w, items)
	case "csv":
		err = export.WriteCSV(w, items)
	default:
		fatalf("unknown format: %s (want json or csv)", *format)
	}
	if err != nil {
		fatalf("writing export: %v", err)
	}
	if *out != "" {
		fmt.Printf("Wrote %d results to %s\n", len(items), *out)
	}
}

func cmdHealth(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	configPath, apiURL := addCommonFlags(fs)
	fs.Parse(args)

	cfg := loadConfig(*configPath, *apiURL)
	client := newClient(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := client.Health(ctx); err != nil {
		fatalf("backend unreachable at %s: %v", cfg.API.BaseURL, err)
	}
	fmt.Printf("Backend healthy at %s\n", cfg.API.BaseURL)
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatalf("encoding JSON: %v", err)
	}
}

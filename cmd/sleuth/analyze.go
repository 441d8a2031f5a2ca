package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/pkg/browser"

	"github.com/sleuth/sleuth-agent/internal/cloud"
	"github.com/sleuth/sleuth-agent/internal/config"
	"github.com/sleuth/sleuth-agent/internal/intake"
	"github.com/sleuth/sleuth-agent/internal/logging"
	"github.com/sleuth/sleuth-agent/internal/render"
	"github.com/sleuth/sleuth-agent/internal/search"
	"github.com/sleuth/sleuth-agent/internal/session"
	"github.com/sleuth/sleuth-agent/internal/view"
)

const analyzeUsage = "usage: sleuth analyze [--open ENGINE] [--json] FILE"

var openURL = browser.OpenURL

// analyzeOptions is the parsed command line of the analyze subcommand.
type analyzeOptions struct {
	path   string
	engine search.Engine
	open   bool
	json   bool
}

func parseAnalyzeArgs(args []string, stderr io.Writer) (analyzeOptions, error) {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	engine := fs.String("open", "", "open the first frame's reverse image search (google, yandex, tineye, archive)")
	asJSON := fs.Bool("json", false, "print the rendered report as JSON")
	if err := fs.Parse(args); err != nil {
		return analyzeOptions{}, err
	}
	if fs.NArg() != 1 {
		return analyzeOptions{}, errors.New(analyzeUsage)
	}

	opts := analyzeOptions{path: fs.Arg(0), json: *asJSON}
	if *engine != "" {
		e, err := search.ParseEngine(*engine)
		if err != nil {
			return analyzeOptions{}, fmt.Errorf("%w: %q", err, *engine)
		}
		opts.engine = e
		opts.open = true
	}
	return opts, nil
}

func runAnalyze(args []string, stdout, stderr io.Writer) int {
	opts, err := parseAnalyzeArgs(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, err)
		}
		return 2
	}

	cfg, err := config.New()
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}

	logger := logging.NewTextLogger(stderr, cfg.LogLevel())
	client := newCloudClient(cfg, "", logger)
	renderer := render.New(cfg.PublicOrigin())

	frags, err := analyzeFile(context.Background(), client, renderer, opts.path, cfg.UploadTimeout(), logger)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	write := printReport
	if opts.json {
		write = printJSON
	}
	if err := write(stdout, frags); err != nil {
		fmt.Fprintf(stderr, "failed to write report: %v\n", err)
		return 1
	}

	if opts.open {
		u, ok := searchLink(frags, opts.engine)
		if !ok {
			fmt.Fprintln(stderr, "no frames to search")
			return 1
		}
		if err := openURL(u); err != nil {
			fmt.Fprintf(stderr, "failed to open browser: %v\n", err)
			return 1
		}
	}
	return 0
}

// analyzeFile runs one file through the same staging and submission path the
// agent uses.
func analyzeFile(ctx context.Context, client cloud.Client, renderer *render.Renderer, path string, timeout time.Duration, logger *slog.Logger) (render.Fragments, error) {
	candidate, err := intake.CandidateFromPath(path)
	if err != nil {
		return render.Fragments{}, err
	}

	orch := session.New(session.Config{
		Client:   client,
		Renderer: renderer,
		Router:   view.NewRouter(view.DefaultPanes()),
		Logger:   logger,
		Timeout:  timeout,
	})

	staged, err := orch.Stage(intake.OriginPicker, []intake.Candidate{candidate})
	if err != nil {
		return render.Fragments{}, err
	}
	logger = logging.WithVideo(logger, staged.Name, staged.MIMEType, staged.Size)
	logger.Info("uploading")

	out, err := orch.Submit(ctx)
	if err != nil {
		if out.Message != "" {
			return render.Fragments{}, fmt.Errorf("analysis failed: %s", out.Message)
		}
		return render.Fragments{}, err
	}
	return *out.Fragments, nil
}

func printReport(w io.Writer, frags render.Fragments) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	for _, row := range frags.Metadata {
		fmt.Fprintf(tw, "%s\t%s\n", row.Label, row.Value)
	}
	fmt.Fprintln(tw)

	fmt.Fprintf(tw, "%s\t[%s]\n", frags.Score.ScoreText, frags.Score.Tier)
	fmt.Fprintln(tw, frags.Score.ConfidenceText)
	for _, ind := range frags.Indicators {
		fmt.Fprintf(tw, "  %s\t(%s)\n", ind.Text, ind.Category)
	}

	for _, item := range frags.Gallery {
		fmt.Fprintln(tw)
		fmt.Fprintf(tw, "%s\t%s\n", item.Alt, item.Path)
		for _, link := range item.Links {
			fmt.Fprintf(tw, "  %s\t%s\n", link.Label, link.URL)
		}
	}

	return tw.Flush()
}

func printJSON(w io.Writer, frags render.Fragments) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(frags)
}

func searchLink(frags render.Fragments, engine search.Engine) (string, bool) {
	if len(frags.Gallery) == 0 {
		return "", false
	}
	for _, link := range frags.Gallery[0].Links {
		if link.Engine == engine {
			return link.URL, true
		}
	}
	return "", false
}

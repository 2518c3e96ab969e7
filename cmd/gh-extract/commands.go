package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/gh-extract/pkg/client"
	"github.com/Sternrassler/gh-extract/pkg/config"
	"github.com/Sternrassler/gh-extract/pkg/extract"
	"github.com/Sternrassler/gh-extract/pkg/logging"
	"github.com/Sternrassler/gh-extract/pkg/metrics"
	"github.com/Sternrassler/gh-extract/pkg/pagination"
	"github.com/Sternrassler/gh-extract/pkg/resource"
	"github.com/Sternrassler/gh-extract/pkg/sink"
)

// now is replaced in tests to pin --days-ago.
var now = time.Now

var errSinceConflict = errors.New("--since-date and --days-ago are mutually exclusive")

// rootFlags are shared by every export subcommand.
type rootFlags struct {
	configPath string
	apiURL     string
	redisURL   string
	logLevel   string
	logPretty  bool
	timeout    time.Duration

	output      string
	metricsFile string

	perPage   int
	state     string
	cutoff    string
	sinceDate string
	daysAgo   int
	badRows   string
}

// kindFlags are the Actions selectors of runs and jobs.
type kindFlags struct {
	workflow string
	runID    int64
	steps    bool
}

var kindHelp = map[resource.Kind]string{
	resource.KindIssues:           "Export issues, including pull requests",
	resource.KindComments:         "Export issue comments",
	resource.KindEvents:           "Export issue events",
	resource.KindCommits:          "Export commits of the default branch",
	resource.KindPulls:            "Export pull requests",
	resource.KindPullRequestFiles: "Export files changed by each pull request",
	resource.KindReviews:          "Export reviews of each pull request",
	resource.KindLabels:           "Export labels",
	resource.KindReleases:         "Export releases with their assets",
	resource.KindWorkflows:        "Export Actions workflows",
	resource.KindRuns:             "Export Actions workflow runs",
	resource.KindJobs:             "Export Actions jobs of workflow runs",
	resource.KindUsers:            "Export all users of the instance",
	resource.KindUsersDetailed:    "Export all users with their profile details (one extra request per user)",
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}

	root := &cobra.Command{
		Use:   "gh-extract",
		Short: "Export GitHub repository data as CSV",
		Long: `Walks a GitHub REST listing page by page and writes one CSV row per item.
Works against github.com and GitHub Enterprise Server.

Environment:
  GITHUB_API_TOKEN       required, a personal access token is fine
  GITHUB_API_URL         API root, e.g. https://github.example.com/api/v3/
  REDIS_URL              enables the page cache and shared rate limit state
  GH_EXTRACT_LOG_LEVEL   debug, info, warn or error`,
		Example:       "  gh-extract issues rust-lang/rust --days-ago 30 > issues.csv",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/gh-extract/config.toml)")
	pf.StringVar(&f.apiURL, "api-url", "", "API root URL, overrides GITHUB_API_URL")
	pf.StringVar(&f.redisURL, "redis-url", "", "Redis URL for the page cache, overrides REDIS_URL")
	pf.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&f.logPretty, "log-pretty", false, "human-readable logs on stderr")
	pf.DurationVar(&f.timeout, "timeout", 0, "per-request timeout, 0 disables it")
	pf.StringVarP(&f.output, "output", "o", "", "write CSV to this file instead of stdout")
	pf.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after the export")
	pf.IntVar(&f.perPage, "per-page", pagination.MaxPerPage, "page size, at most 100")
	pf.StringVar(&f.state, "state", "", "state filter for issues and pull requests: all, open, closed")
	pf.StringVar(&f.cutoff, "cutoff", "auto", "since cutoff: auto, server, last-item or filter")
	pf.StringVar(&f.sinceDate, "since-date", "", "only items changed after this RFC 3339 time")
	pf.IntVar(&f.daysAgo, "days-ago", 0, "only items changed in the last N days")
	pf.StringVar(&f.badRows, "bad-rows", "abort", "rows that cannot be encoded: abort the export or skip them with a warning")

	for _, kind := range resource.Kinds {
		root.AddCommand(newKindCmd(kind, f))
	}
	return root
}

func newKindCmd(kind resource.Kind, f *rootFlags) *cobra.Command {
	kf := &kindFlags{}

	cmd := &cobra.Command{
		Use:   string(kind) + " owner/repo",
		Short: kindHelp[kind],
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, kind, f, kf, args)
		},
	}
	if !kind.RepoScoped() {
		cmd.Use = string(kind)
		cmd.Args = cobra.NoArgs
	}

	switch kind {
	case resource.KindRuns:
		cmd.Flags().StringVar(&kf.workflow, "workflow", "", "only runs of this workflow id or file name, e.g. ci.yml")
	case resource.KindJobs:
		cmd.Flags().StringVar(&kf.workflow, "workflow", "", "only jobs of runs of this workflow id or file name")
		cmd.Flags().Int64Var(&kf.runID, "run-id", 0, "only jobs of this run")
		cmd.Flags().BoolVar(&kf.steps, "steps", false, "one row per job step")
	}
	return cmd
}

func runExport(cmd *cobra.Command, kind resource.Kind, f *rootFlags, kf *kindFlags, args []string) (err error) {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}
	logCfg := cfg.Logging()
	logCfg.Output = cmd.ErrOrStderr()
	logging.Setup(logCfg)

	opts, err := buildOptions(f, kf, args)
	if err != nil {
		return err
	}
	if err := opts.Validate(kind); err != nil {
		return err
	}

	rdb, err := cfg.Redis()
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	c, err := client.New(cfg.Client(rdb))
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer c.Close()

	out, closeOut, err := openOutput(cmd, f.output)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeOut(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()

	_, err = extract.New(c).Run(context.Background(), kind, opts, out)

	if f.metricsFile != "" {
		if merr := metrics.WriteTextfile(f.metricsFile); merr != nil {
			if err == nil {
				return merr
			}
			log.Warn().Err(merr).Msg("Metrics not written")
		}
	}
	return err
}

// loadConfig layers flags that were set explicitly over file and environment.
func loadConfig(cmd *cobra.Command, f *rootFlags) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("api-url") {
		cfg.APIURL = f.apiURL
	}
	if flags.Changed("redis-url") {
		cfg.RedisURL = f.redisURL
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if flags.Changed("log-pretty") {
		cfg.LogPretty = f.logPretty
	}
	if flags.Changed("timeout") {
		cfg.Timeout = f.timeout
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func buildOptions(f *rootFlags, kf *kindFlags, args []string) (extract.Options, error) {
	var opts extract.Options

	if len(args) > 0 {
		owner, repo, err := parseRepository(args)
		if err != nil {
			return opts, err
		}
		opts.Owner, opts.Repo = owner, repo
	}

	since, err := resolveSince(f.sinceDate, f.daysAgo, now())
	if err != nil {
		return opts, err
	}
	mode, err := pagination.ParseMode(f.cutoff)
	if err != nil {
		return opts, err
	}
	policy, err := sink.ParseRowPolicy(f.badRows)
	if err != nil {
		return opts, err
	}

	opts.Since = since
	opts.Cutoff = mode
	opts.RowPolicy = policy
	opts.Params = pagination.Params{
		PerPage: f.perPage,
		State:   pagination.State(strings.ToLower(f.state)),
	}
	opts.Workflow = kf.workflow
	opts.RunID = kf.runID
	opts.Steps = kf.steps
	return opts, nil
}

// parseRepository accepts "owner/repo" or "owner" "repo".
func parseRepository(args []string) (string, string, error) {
	if len(args) == 2 {
		return args[0], args[1], nil
	}
	owner, repo, ok := strings.Cut(args[0], "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("repository must be owner/repo, got %q", args[0])
	}
	return owner, repo, nil
}

// resolveSince turns --since-date or --days-ago into a threshold. Neither
// yields the zero time.
func resolveSince(sinceDate string, daysAgo int, at time.Time) (time.Time, error) {
	switch {
	case sinceDate != "" && daysAgo != 0:
		return time.Time{}, errSinceConflict
	case sinceDate != "":
		t, err := time.Parse(time.RFC3339, sinceDate)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse --since-date: %w", err)
		}
		return t.UTC(), nil
	case daysAgo < 0:
		return time.Time{}, fmt.Errorf("--days-ago must not be negative (got %d)", daysAgo)
	case daysAgo > 0:
		return at.UTC().AddDate(0, 0, -daysAgo), nil
	default:
		return time.Time{}, nil
	}
}

func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return file, file.Close, nil
}

package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/gh-extract/pkg/pagination"
	"github.com/Sternrassler/gh-extract/pkg/resource"
	"github.com/Sternrassler/gh-extract/pkg/sink"
)

var (
	// ErrMissingRepository is returned when a repository kind has no owner or name.
	ErrMissingRepository = errors.New("owner and repository are required")

	// ErrInvalidOptions is returned for options that do not apply to the kind.
	ErrInvalidOptions = errors.New("invalid options")
)

// Source fetches API pages and documents. *client.Client implements it.
type Source interface {
	pagination.Fetcher

	// Get fetches a single document by absolute URL.
	Get(ctx context.Context, url string) ([]byte, error)

	// BaseURL is the API root entrypoints are joined to.
	BaseURL() string
}

// Options selects what one export covers.
type Options struct {
	Owner string
	Repo  string

	// Since is the optional lower time bound. Zero exports everything.
	Since time.Time

	// Params carries page size and state. Sort order and filters are set per kind.
	Params pagination.Params

	// Cutoff overrides the kind's default since mode.
	Cutoff pagination.Mode

	RowPolicy sink.RowPolicy

	// Workflow restricts runs and jobs to one workflow id or file name.
	Workflow string

	// RunID exports the jobs of a single run.
	RunID int64

	// Steps emits one jobs row per step.
	Steps bool
}

// Repository returns "owner/repo".
func (o Options) Repository() string {
	if o.Owner == "" && o.Repo == "" {
		return ""
	}
	return o.Owner + "/" + o.Repo
}

// Validate checks the options for kind before any request is made.
func (o Options) Validate(kind resource.Kind) error {
	if err := o.Params.Validate(); err != nil {
		return err
	}
	if kind.RepoScoped() && (o.Owner == "" || o.Repo == "") {
		return fmt.Errorf("%w for %s", ErrMissingRepository, kind)
	}
	if o.Workflow != "" && kind != resource.KindRuns && kind != resource.KindJobs {
		return fmt.Errorf("%w: workflow applies to runs and jobs only", ErrInvalidOptions)
	}
	if o.RunID != 0 && kind != resource.KindJobs {
		return fmt.Errorf("%w: run id applies to jobs only", ErrInvalidOptions)
	}
	if o.RunID < 0 {
		return fmt.Errorf("%w: run id must be positive", ErrInvalidOptions)
	}
	if o.RunID != 0 && o.Workflow != "" {
		return fmt.Errorf("%w: run id and workflow are mutually exclusive", ErrInvalidOptions)
	}
	if o.Steps && kind != resource.KindJobs {
		return fmt.Errorf("%w: steps apply to jobs only", ErrInvalidOptions)
	}
	return nil
}

// Summary reports what an export did.
type Summary struct {
	Kind       resource.Kind
	Repository string

	// Stats adds up every walk of the export, parents included.
	Stats pagination.Stats

	Rows     int
	Skipped  int
	Duration time.Duration
}

// Extractor runs exports against a Source.
type Extractor struct {
	src    Source
	logger zerolog.Logger
}

// New creates an extractor.
func New(src Source) *Extractor {
	return &Extractor{
		src:    src,
		logger: log.With().Str("component", "extract").Logger(),
	}
}

// Run exports kind to out as CSV. The header is written even when the listing
// is empty. Rows written before a failure are flushed before the error is
// returned.
func (e *Extractor) Run(ctx context.Context, kind resource.Kind, opts Options, out io.Writer) (Summary, error) {
	summary := Summary{Kind: kind}
	if kind.RepoScoped() {
		summary.Repository = opts.Repository()
	}
	if err := opts.Validate(kind); err != nil {
		return summary, err
	}

	r := &run{
		src:    e.src,
		base:   e.src.BaseURL(),
		opts:   opts,
		scope:  resource.Scope{Repository: summary.Repository},
		logger: e.logger.With().Str("kind", string(kind)).Logger(),
	}

	r.logger.Info().
		Str("repository", summary.Repository).
		Time("since", opts.Since).
		Str("cutoff", opts.Cutoff.String()).
		Msg("Export started")

	started := time.Now()
	err := e.dispatch(ctx, r, kind, out)
	summary.Stats = r.stats
	summary.Rows = r.rows
	summary.Skipped = r.skipped
	summary.Duration = time.Since(started)

	if err != nil {
		return summary, fmt.Errorf("export %s: %w", kind, err)
	}

	r.logger.Info().
		Int("pages", summary.Stats.Pages).
		Int("items", summary.Stats.Items).
		Int("rows", summary.Rows).
		Int("skipped_rows", summary.Skipped).
		Bool("stopped_early", summary.Stats.StoppedEarly).
		Dur("duration", summary.Duration).
		Msg("Export finished")

	return summary, nil
}

func (e *Extractor) dispatch(ctx context.Context, r *run, kind resource.Kind, out io.Writer) error {
	switch kind {
	case resource.KindIssues:
		return exportFlat(ctx, r, resource.Issues, out)
	case resource.KindComments:
		return exportFlat(ctx, r, resource.Comments, out)
	case resource.KindEvents:
		return exportFlat(ctx, r, resource.Events, out)
	case resource.KindCommits:
		return exportFlat(ctx, r, resource.Commits, out)
	case resource.KindPulls:
		return exportFlat(ctx, r, resource.Pulls, out)
	case resource.KindLabels:
		return exportFlat(ctx, r, resource.Labels, out)
	case resource.KindReleases:
		return exportFlat(ctx, r, resource.Releases, out)
	case resource.KindWorkflows:
		return exportFlat(ctx, r, resource.Workflows, out)
	case resource.KindUsers:
		return exportFlat(ctx, r, resource.Users, out)
	case resource.KindPullRequestFiles:
		return exportPullFiles(ctx, r, out)
	case resource.KindReviews:
		return exportReviews(ctx, r, out)
	case resource.KindRuns:
		return exportRuns(ctx, r, out)
	case resource.KindJobs:
		if r.opts.Steps {
			return exportJobs(ctx, r, resource.JobSteps, out)
		}
		return exportJobs(ctx, r, resource.Jobs, out)
	case resource.KindUsersDetailed:
		return exportUsersDetailed(ctx, r, out)
	default:
		return fmt.Errorf("unsupported resource kind %q", kind)
	}
}

// run is the state of one export.
type run struct {
	src    Source
	base   string
	opts   Options
	scope  resource.Scope
	logger zerolog.Logger

	stats   pagination.Stats
	rows    int
	skipped int
}

type flusher interface {
	Flush() error
	Written() int
	Skipped() int
}

// finish flushes the sink and records its counters. A walk error wins over a
// flush error.
func (r *run) finish(w flusher, walkErr error) error {
	flushErr := w.Flush()
	r.rows = w.Written()
	r.skipped = w.Skipped()
	if walkErr != nil {
		return walkErr
	}
	return flushErr
}

// walkInto walks one listing of def and writes every mapped record to w.
func walkInto[T, R any](ctx context.Context, r *run, def resource.Definition[T, R], w *sink.CSV[R], scope resource.Scope, vars map[string]string) error {
	entry, err := entryURL(r, def, vars)
	if err != nil {
		return err
	}
	stats, err := def.Walker(r.src, r.opts.Since, r.opts.Cutoff).Walk(ctx, entry, func(item T) error {
		for _, rec := range def.Map(scope, item) {
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
	r.stats.Add(stats)
	return err
}

func entryURL[T, R any](r *run, def resource.Definition[T, R], vars map[string]string) (string, error) {
	if !r.opts.Since.IsZero() && !def.SupportsSince(r.opts.Cutoff) {
		r.logger.Warn().
			Str("listing", string(def.Kind)).
			Str("cutoff", def.Mode(r.opts.Cutoff).String()).
			Msg("Listing ignores the since threshold")
	}
	return def.Entrypoint(r.opts.Owner, r.opts.Repo, r.opts.Params, r.opts.Since, vars).URL(r.base)
}

// exportFlat is a single walk straight into the sink.
func exportFlat[T, R any](ctx context.Context, r *run, def resource.Definition[T, R], out io.Writer) error {
	w, err := sink.NewCSV[R](out, r.opts.RowPolicy)
	if err != nil {
		return err
	}
	return r.finish(w, walkInto(ctx, r, def, w, r.scope, nil))
}

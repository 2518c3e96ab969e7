package extract

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	gh "github.com/google/go-github/v80/github"

	"github.com/Sternrassler/gh-extract/pkg/pagination"
	"github.com/Sternrassler/gh-extract/pkg/resource"
	"github.com/Sternrassler/gh-extract/pkg/sink"
)

// exportRuns walks the runs of one workflow, or of every workflow in listing
// order.
func exportRuns(ctx context.Context, r *run, out io.Writer) error {
	w, err := sink.NewCSV[resource.RunRecord](out, r.opts.RowPolicy)
	if err != nil {
		return err
	}

	workflows, err := r.workflowIDs(ctx)
	if err != nil {
		return r.finish(w, err)
	}
	for _, id := range workflows {
		if err := walkInto(ctx, r, resource.Runs, w, r.scope, map[string]string{"workflow_id": id}); err != nil {
			return r.finish(w, fmt.Errorf("runs of workflow %s: %w", id, err))
		}
	}
	return r.finish(w, nil)
}

// exportJobs collects the run ids first, then walks the jobs of each run.
// def is resource.Jobs or resource.JobSteps.
func exportJobs[R any](ctx context.Context, r *run, def resource.Definition[*gh.WorkflowJob, R], out io.Writer) error {
	w, err := sink.NewCSV[R](out, r.opts.RowPolicy)
	if err != nil {
		return err
	}

	runs, err := r.runIDs(ctx)
	if err != nil {
		return r.finish(w, err)
	}
	r.logger.Debug().Int("runs", len(runs)).Msg("Collected run ids")

	for _, id := range runs {
		vars := map[string]string{"run_id": strconv.FormatInt(id, 10)}
		if err := walkInto(ctx, r, def, w, r.scope, vars); err != nil {
			return r.finish(w, fmt.Errorf("jobs of run %d: %w", id, err))
		}
	}
	return r.finish(w, nil)
}

// workflowIDs returns the --workflow selection, or every workflow id.
func (r *run) workflowIDs(ctx context.Context) ([]string, error) {
	if r.opts.Workflow != "" {
		return []string{r.opts.Workflow}, nil
	}

	entry, err := entryURL(r, resource.Workflows, nil)
	if err != nil {
		return nil, err
	}
	walker := resource.Workflows.Walker(r.src, time.Time{}, pagination.ModeAuto)
	ids, stats, err := pagination.Collect(ctx, walker, entry, func(wf *gh.Workflow) string {
		return strconv.FormatInt(wf.GetID(), 10)
	})
	r.stats.Add(stats)
	if err != nil {
		return nil, fmt.Errorf("collect workflows: %w", err)
	}
	return ids, nil
}

// runIDs returns the --run-id selection, or the ids of every run of the
// selected workflows under the since cutoff. The list is held in memory.
func (r *run) runIDs(ctx context.Context) ([]int64, error) {
	if r.opts.RunID != 0 {
		return []int64{r.opts.RunID}, nil
	}

	workflows, err := r.workflowIDs(ctx)
	if err != nil {
		return nil, err
	}

	var ids []int64
	for _, workflow := range workflows {
		entry, err := entryURL(r, resource.Runs, map[string]string{"workflow_id": workflow})
		if err != nil {
			return nil, err
		}
		walker := resource.Runs.Walker(r.src, r.opts.Since, r.opts.Cutoff)
		runs, stats, err := pagination.Collect(ctx, walker, entry, func(run *gh.WorkflowRun) int64 {
			return run.GetID()
		})
		r.stats.Add(stats)
		if err != nil {
			return nil, fmt.Errorf("collect runs of workflow %s: %w", workflow, err)
		}
		ids = append(ids, runs...)
	}
	return ids, nil
}

// exportPullFiles walks the pull listing under the since cutoff and, for each
// pull request, the pages of its changed files.
func exportPullFiles(ctx context.Context, r *run, out io.Writer) error {
	w, err := sink.NewCSV[resource.PullFileRecord](out, r.opts.RowPolicy)
	if err != nil {
		return err
	}

	entry, err := entryURL(r, resource.Pulls, nil)
	if err != nil {
		return r.finish(w, err)
	}
	walker := resource.Pulls.Walker(r.src, r.opts.Since, r.opts.Cutoff)
	stats, err := walker.Walk(ctx, entry, func(pr *gh.PullRequest) error {
		number := pr.GetNumber()
		if err := walkInto(ctx, r, resource.PullFiles, w, r.pullScope(number), pullVars(number)); err != nil {
			return fmt.Errorf("files of pull request %d: %w", number, err)
		}
		return nil
	})
	r.stats.Add(stats)
	return r.finish(w, err)
}

// exportReviews collects the pull numbers under the since cutoff first, then
// walks the reviews of each pull request.
func exportReviews(ctx context.Context, r *run, out io.Writer) error {
	w, err := sink.NewCSV[resource.ReviewRecord](out, r.opts.RowPolicy)
	if err != nil {
		return err
	}

	entry, err := entryURL(r, resource.Pulls, nil)
	if err != nil {
		return r.finish(w, err)
	}
	walker := resource.Pulls.Walker(r.src, r.opts.Since, r.opts.Cutoff)
	numbers, stats, err := pagination.Collect(ctx, walker, entry, (*gh.PullRequest).GetNumber)
	r.stats.Add(stats)
	if err != nil {
		return r.finish(w, fmt.Errorf("collect pull requests: %w", err))
	}

	for _, number := range numbers {
		if err := walkInto(ctx, r, resource.Reviews, w, r.pullScope(number), pullVars(number)); err != nil {
			return r.finish(w, fmt.Errorf("reviews of pull request %d: %w", number, err))
		}
	}
	return r.finish(w, nil)
}

func (r *run) pullScope(number int) resource.Scope {
	return resource.Scope{Repository: r.scope.Repository, PullRequestNumber: number}
}

func pullVars(number int) map[string]string {
	return map[string]string{"number": strconv.Itoa(number)}
}

// exportUsersDetailed walks the account listing and fetches each account's
// own document for the profile columns.
func exportUsersDetailed(ctx context.Context, r *run, out io.Writer) error {
	w, err := sink.NewCSV[resource.UserDetailedRecord](out, r.opts.RowPolicy)
	if err != nil {
		return err
	}

	entry, err := entryURL(r, resource.Users, nil)
	if err != nil {
		return r.finish(w, err)
	}
	walker := resource.Users.Walker(r.src, r.opts.Since, r.opts.Cutoff)
	stats, err := walker.Walk(ctx, entry, func(u *gh.User) error {
		detail, err := r.userDetail(ctx, u)
		if err != nil {
			return err
		}
		for _, rec := range resource.UsersDetailed.Map(r.scope, detail) {
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
	r.stats.Add(stats)
	return r.finish(w, err)
}

func (r *run) userDetail(ctx context.Context, u *gh.User) (*gh.User, error) {
	detailURL := u.GetURL()
	if detailURL == "" {
		if u.GetLogin() == "" {
			return nil, fmt.Errorf("user %d has neither url nor login", u.GetID())
		}
		detailURL = r.base + "/users/" + url.PathEscape(u.GetLogin())
	}

	body, err := r.src.Get(ctx, detailURL)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", u.GetLogin(), err)
	}
	detail, err := resource.DecodeUser(body)
	if err != nil {
		return nil, &pagination.DecodeError{URL: detailURL, Err: err}
	}
	return detail, nil
}

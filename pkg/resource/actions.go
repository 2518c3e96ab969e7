package resource

import (
	"time"

	gh "github.com/google/go-github/v80/github"

	"github.com/Sternrassler/gh-extract/pkg/pagination"
)

// WorkflowRecord is one Actions workflow.
type WorkflowRecord struct {
	ID         *int64     `csv:"id"`
	NodeID     *string    `csv:"node_id"`
	Name       *string    `csv:"name"`
	Path       *string    `csv:"path"`
	State      *string    `csv:"state"`
	CreatedAt  *time.Time `csv:"created_at"`
	UpdatedAt  *time.Time `csv:"updated_at"`
	URL        *string    `csv:"url"`
	HTMLURL    *string    `csv:"html_url"`
	BadgeURL   *string    `csv:"badge_url"`
	Repository string     `csv:"repository"`
}

// RunRecord is one workflow run.
type RunRecord struct {
	ID           *int64     `csv:"id"`
	WorkflowID   *int64     `csv:"workflow_id"`
	NodeID       *string    `csv:"node_id"`
	Name         *string    `csv:"name"`
	DisplayTitle *string    `csv:"display_title"`
	HeadBranch   *string    `csv:"head_branch"`
	HeadSHA      *string    `csv:"head_sha"`
	RunNumber    *int       `csv:"run_number"`
	RunAttempt   *int       `csv:"run_attempt"`
	Event        *string    `csv:"event"`
	Status       *string    `csv:"status"`
	Conclusion   *string    `csv:"conclusion"`
	ActorID      *int64     `csv:"actor_id"`
	ActorLogin   *string    `csv:"actor_login"`
	CreatedAt    *time.Time `csv:"created_at"`
	UpdatedAt    *time.Time `csv:"updated_at"`
	RunStartedAt *time.Time `csv:"run_started_at"`
	URL          *string    `csv:"url"`
	HTMLURL      *string    `csv:"html_url"`
	Repository   string     `csv:"repository"`
}

// JobFields are the job columns shared by job and step rows.
type JobFields struct {
	ID           *int64     `csv:"id"`
	RunID        *int64     `csv:"run_id"`
	NodeID       *string    `csv:"node_id"`
	Name         *string    `csv:"name"`
	WorkflowName *string    `csv:"workflow_name"`
	HeadBranch   *string    `csv:"head_branch"`
	HeadSHA      *string    `csv:"head_sha"`
	Status       *string    `csv:"status"`
	Conclusion   *string    `csv:"conclusion"`
	RunAttempt   *int64     `csv:"run_attempt"`
	RunnerName   *string    `csv:"runner_name"`
	CreatedAt    *time.Time `csv:"created_at"`
	StartedAt    *time.Time `csv:"started_at"`
	CompletedAt  *time.Time `csv:"completed_at"`
	URL          *string    `csv:"url"`
	HTMLURL      *string    `csv:"html_url"`
	Repository   string     `csv:"repository"`
}

// JobRecord is one job with its steps rendered as JSON text.
type JobRecord struct {
	JobFields
	Steps string `csv:"steps"`
}

// StepRecord is one job step, repeating the job columns.
type StepRecord struct {
	JobFields
	StepName        *string    `csv:"step_name"`
	StepStatus      *string    `csv:"step_status"`
	StepConclusion  *string    `csv:"step_conclusion"`
	StepNumber      int64      `csv:"step_number"`
	StepStartedAt   *time.Time `csv:"step_started_at"`
	StepCompletedAt *time.Time `csv:"step_completed_at"`
}

// stepJSON is the shape of one step inside JobRecord.Steps.
type stepJSON struct {
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	Conclusion  string     `json:"conclusion,omitempty"`
	Number      int64      `json:"number"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Workflows lists the repository's workflows.
var Workflows = Definition[*gh.Workflow, WorkflowRecord]{
	Kind:   KindWorkflows,
	Path:   "/repos/{owner}/{repo}/actions/workflows",
	Tune:   pageOnly,
	Decode: decodeWrapped(func(w *gh.Workflows) []*gh.Workflow { return w.Workflows }),
	Map: func(s Scope, w *gh.Workflow) []WorkflowRecord {
		return one(WorkflowRecord{
			ID:         w.ID,
			NodeID:     w.NodeID,
			Name:       w.Name,
			Path:       w.Path,
			State:      w.State,
			CreatedAt:  timePtr(w.CreatedAt),
			UpdatedAt:  timePtr(w.UpdatedAt),
			URL:        w.URL,
			HTMLURL:    w.HTMLURL,
			BadgeURL:   w.BadgeURL,
			Repository: s.Repository,
		})
	},
}

// Runs lists the runs of the workflow named by the {workflow_id} variable, which
// may be a numeric id or a workflow file name. Runs come newest first.
var Runs = Definition[*gh.WorkflowRun, RunRecord]{
	Kind:        KindRuns,
	Path:        "/repos/{owner}/{repo}/actions/workflows/{workflow_id}/runs",
	Tune:        pageOnly,
	DefaultMode: pagination.ModeLastItem,
	Decode:      decodeWrapped(func(r *gh.WorkflowRuns) []*gh.WorkflowRun { return r.WorkflowRuns }),
	Map: func(s Scope, r *gh.WorkflowRun) []RunRecord {
		return one(RunRecord{
			ID:           r.ID,
			WorkflowID:   r.WorkflowID,
			NodeID:       r.NodeID,
			Name:         r.Name,
			DisplayTitle: r.DisplayTitle,
			HeadBranch:   r.HeadBranch,
			HeadSHA:      r.HeadSHA,
			RunNumber:    r.RunNumber,
			RunAttempt:   r.RunAttempt,
			Event:        r.Event,
			Status:       r.Status,
			Conclusion:   r.Conclusion,
			ActorID:      userID(r.Actor),
			ActorLogin:   userLogin(r.Actor),
			CreatedAt:    timePtr(r.CreatedAt),
			UpdatedAt:    timePtr(r.UpdatedAt),
			RunStartedAt: timePtr(r.RunStartedAt),
			URL:          r.URL,
			HTMLURL:      r.HTMLURL,
			Repository:   s.Repository,
		})
	},
	Timestamp: func(r *gh.WorkflowRun) time.Time {
		return firstTime(r.CreatedAt)
	},
}

// Jobs lists every attempt's jobs of the run named by the {run_id} variable.
var Jobs = Definition[*gh.WorkflowJob, JobRecord]{
	Kind:   KindJobs,
	Path:   "/repos/{owner}/{repo}/actions/runs/{run_id}/jobs",
	Tune:   allJobs,
	Decode: decodeJobs,
	Map: func(s Scope, j *gh.WorkflowJob) []JobRecord {
		steps := make([]stepJSON, 0, len(j.Steps))
		for i, st := range j.Steps {
			steps = append(steps, stepJSON{
				Name:        st.GetName(),
				Status:      st.GetStatus(),
				Conclusion:  st.GetConclusion(),
				Number:      stepNumber(st, i),
				StartedAt:   timePtr(st.StartedAt),
				CompletedAt: timePtr(st.CompletedAt),
			})
		}
		return one(JobRecord{
			JobFields: jobFields(s, j),
			Steps:     jsonText(steps),
		})
	},
}

// JobSteps lists the same jobs as Jobs, one row per step.
var JobSteps = Definition[*gh.WorkflowJob, StepRecord]{
	Kind:   KindJobs,
	Path:   Jobs.Path,
	Tune:   allJobs,
	Decode: decodeJobs,
	Map:    ExpandSteps,
}

// ExpandSteps denormalizes a job into one row per step. A job without steps
// yields no rows.
func ExpandSteps(s Scope, j *gh.WorkflowJob) []StepRecord {
	fields := jobFields(s, j)
	out := make([]StepRecord, 0, len(j.Steps))
	for i, st := range j.Steps {
		out = append(out, StepRecord{
			JobFields:       fields,
			StepName:        st.Name,
			StepStatus:      st.Status,
			StepConclusion:  st.Conclusion,
			StepNumber:      stepNumber(st, i),
			StepStartedAt:   timePtr(st.StartedAt),
			StepCompletedAt: timePtr(st.CompletedAt),
		})
	}
	return out
}

var decodeJobs = decodeWrapped(func(j *gh.Jobs) []*gh.WorkflowJob { return j.Jobs })

func allJobs(p pagination.Params) pagination.Params {
	p = pageOnly(p)
	p.Filter = "all"
	return p
}

func stepNumber(st *gh.TaskStep, index int) int64 {
	if st.Number != nil && *st.Number > 0 {
		return *st.Number
	}
	return int64(index + 1)
}

func jobFields(s Scope, j *gh.WorkflowJob) JobFields {
	return JobFields{
		ID:           j.ID,
		RunID:        j.RunID,
		NodeID:       j.NodeID,
		Name:         j.Name,
		WorkflowName: j.WorkflowName,
		HeadBranch:   j.HeadBranch,
		HeadSHA:      j.HeadSHA,
		Status:       j.Status,
		Conclusion:   j.Conclusion,
		RunAttempt:   j.RunAttempt,
		RunnerName:   j.RunnerName,
		CreatedAt:    timePtr(j.CreatedAt),
		StartedAt:    timePtr(j.StartedAt),
		CompletedAt:  timePtr(j.CompletedAt),
		URL:          j.URL,
		HTMLURL:      j.HTMLURL,
		Repository:   s.Repository,
	}
}

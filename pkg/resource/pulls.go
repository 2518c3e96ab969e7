package resource

import (
	"time"

	gh "github.com/google/go-github/v80/github"

	"github.com/Sternrassler/gh-extract/pkg/pagination"
)

// PullRecord is one pull request.
type PullRecord struct {
	ID                 *int64     `csv:"id"`
	NodeID             *string    `csv:"node_id"`
	URL                *string    `csv:"url"`
	HTMLURL            *string    `csv:"html_url"`
	Number             *int       `csv:"number"`
	State              *string    `csv:"state"`
	Title              *string    `csv:"title"`
	Body               *string    `csv:"body"`
	UserID             *int64     `csv:"user_id"`
	UserLogin          *string    `csv:"user_login"`
	Labels             string     `csv:"labels"`
	AssigneeID         *int64     `csv:"assignee_id"`
	Assignees          string     `csv:"assignees"`
	RequestedReviewers string     `csv:"requested_reviewers"`
	Milestone          *string    `csv:"milestone"`
	Draft              *bool      `csv:"draft"`
	Locked             *bool      `csv:"locked"`
	Merged             *bool      `csv:"merged"`
	MergeCommitSHA     *string    `csv:"merge_commit_sha"`
	MergedByID         *int64     `csv:"merged_by_id"`
	HeadRef            *string    `csv:"head_ref"`
	HeadSHA            *string    `csv:"head_sha"`
	BaseRef            *string    `csv:"base_ref"`
	BaseSHA            *string    `csv:"base_sha"`
	AuthorAssociation  *string    `csv:"author_association"`
	CreatedAt          *time.Time `csv:"created_at"`
	UpdatedAt          *time.Time `csv:"updated_at"`
	ClosedAt           *time.Time `csv:"closed_at"`
	MergedAt           *time.Time `csv:"merged_at"`
	Repository         string     `csv:"repository"`
}

// PullFileRecord is one file changed by a pull request.
type PullFileRecord struct {
	SHA               *string `csv:"sha"`
	Filename          *string `csv:"filename"`
	PreviousFilename  *string `csv:"previous_filename"`
	Status            *string `csv:"status"`
	Additions         *int    `csv:"additions"`
	Deletions         *int    `csv:"deletions"`
	Changes           *int    `csv:"changes"`
	BlobURL           *string `csv:"blob_url"`
	RawURL            *string `csv:"raw_url"`
	ContentsURL       *string `csv:"contents_url"`
	Patch             *string `csv:"patch"`
	PullRequestNumber int     `csv:"pull_request_number"`
	Repository        string  `csv:"repository"`
}

// ReviewRecord is one pull request review.
type ReviewRecord struct {
	ID                *int64     `csv:"id"`
	NodeID            *string    `csv:"node_id"`
	HTMLURL           *string    `csv:"html_url"`
	UserID            *int64     `csv:"user_id"`
	UserLogin         *string    `csv:"user_login"`
	Body              *string    `csv:"body"`
	CommitID          *string    `csv:"commit_id"`
	State             *string    `csv:"state"`
	PullRequestURL    *string    `csv:"pull_request_url"`
	SubmittedAt       *time.Time `csv:"submitted_at"`
	AuthorAssociation *string    `csv:"author_association"`
	PullRequestNumber int        `csv:"pull_request_number"`
	Repository        string     `csv:"repository"`
}

// Pulls lists pull requests most recently updated first, so the last-item
// cutoff on updated_at is sound.
var Pulls = Definition[*gh.PullRequest, PullRecord]{
	Kind:        KindPulls,
	Path:        "/repos/{owner}/{repo}/pulls",
	Tune:        updatedDesc,
	DefaultMode: pagination.ModeLastItem,
	Decode:      decodeList[*gh.PullRequest],
	Map: func(s Scope, p *gh.PullRequest) []PullRecord {
		rec := PullRecord{
			ID:                 p.ID,
			NodeID:             p.NodeID,
			URL:                p.URL,
			HTMLURL:            p.HTMLURL,
			Number:             p.Number,
			State:              p.State,
			Title:              p.Title,
			Body:               p.Body,
			UserID:             userID(p.User),
			UserLogin:          userLogin(p.User),
			Labels:             labelNames(p.Labels),
			AssigneeID:         userID(p.Assignee),
			Assignees:          logins(p.Assignees),
			RequestedReviewers: logins(p.RequestedReviewers),
			Draft:              p.Draft,
			Locked:             p.Locked,
			Merged:             p.Merged,
			MergeCommitSHA:     p.MergeCommitSHA,
			MergedByID:         userID(p.MergedBy),
			AuthorAssociation:  p.AuthorAssociation,
			CreatedAt:          timePtr(p.CreatedAt),
			UpdatedAt:          timePtr(p.UpdatedAt),
			ClosedAt:           timePtr(p.ClosedAt),
			MergedAt:           timePtr(p.MergedAt),
			Repository:         s.Repository,
		}
		if p.Milestone != nil {
			rec.Milestone = p.Milestone.Title
		}
		if p.Head != nil {
			rec.HeadRef = p.Head.Ref
			rec.HeadSHA = p.Head.SHA
		}
		if p.Base != nil {
			rec.BaseRef = p.Base.Ref
			rec.BaseSHA = p.Base.SHA
		}
		return one(rec)
	},
	Timestamp: PullUpdatedAt,
}

// PullUpdatedAt is the ordering key of the pull listing: updated_at, falling back
// to created_at.
func PullUpdatedAt(p *gh.PullRequest) time.Time {
	return firstTime(p.UpdatedAt, p.CreatedAt)
}

// PullFiles lists the files of the pull request named by the {number} variable.
var PullFiles = Definition[*gh.CommitFile, PullFileRecord]{
	Kind:   KindPullRequestFiles,
	Path:   "/repos/{owner}/{repo}/pulls/{number}/files",
	Tune:   pageOnly,
	Decode: decodeList[*gh.CommitFile],
	Map: func(s Scope, f *gh.CommitFile) []PullFileRecord {
		return one(PullFileRecord{
			SHA:               f.SHA,
			Filename:          f.Filename,
			PreviousFilename:  f.PreviousFilename,
			Status:            f.Status,
			Additions:         f.Additions,
			Deletions:         f.Deletions,
			Changes:           f.Changes,
			BlobURL:           f.BlobURL,
			RawURL:            f.RawURL,
			ContentsURL:       f.ContentsURL,
			Patch:             f.Patch,
			PullRequestNumber: s.PullRequestNumber,
			Repository:        s.Repository,
		})
	},
}

// Reviews lists the reviews of the pull request named by the {number} variable.
var Reviews = Definition[*gh.PullRequestReview, ReviewRecord]{
	Kind:   KindReviews,
	Path:   "/repos/{owner}/{repo}/pulls/{number}/reviews",
	Tune:   pageOnly,
	Decode: decodeList[*gh.PullRequestReview],
	Map: func(s Scope, r *gh.PullRequestReview) []ReviewRecord {
		return one(ReviewRecord{
			ID:                r.ID,
			NodeID:            r.NodeID,
			HTMLURL:           r.HTMLURL,
			UserID:            userID(r.User),
			UserLogin:         userLogin(r.User),
			Body:              r.Body,
			CommitID:          r.CommitID,
			State:             r.State,
			PullRequestURL:    r.PullRequestURL,
			SubmittedAt:       timePtr(r.SubmittedAt),
			AuthorAssociation: r.AuthorAssociation,
			PullRequestNumber: s.PullRequestNumber,
			Repository:        s.Repository,
		})
	},
}

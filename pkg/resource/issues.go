package resource

import (
	"time"

	gh "github.com/google/go-github/v80/github"

	"github.com/Sternrassler/gh-extract/pkg/pagination"
)

// IssueRecord is one issue or pull request as listed by the issues endpoint.
type IssueRecord struct {
	ID                *int64     `csv:"id"`
	NodeID            *string    `csv:"node_id"`
	URL               *string    `csv:"url"`
	RepositoryURL     *string    `csv:"repository_url"`
	LabelsURL         *string    `csv:"labels_url"`
	CommentsURL       *string    `csv:"comments_url"`
	EventsURL         *string    `csv:"events_url"`
	HTMLURL           *string    `csv:"html_url"`
	Number            *int       `csv:"number"`
	State             *string    `csv:"state"`
	StateReason       *string    `csv:"state_reason"`
	Title             *string    `csv:"title"`
	Body              *string    `csv:"body"`
	UserID            *int64     `csv:"user_id"`
	UserLogin         *string    `csv:"user_login"`
	Labels            string     `csv:"labels"`
	AssigneeID        *int64     `csv:"assignee_id"`
	Assignees         string     `csv:"assignees"`
	AuthorAssociation *string    `csv:"author_association"`
	Milestone         *string    `csv:"milestone"`
	Locked            *bool      `csv:"locked"`
	ActiveLockReason  *string    `csv:"active_lock_reason"`
	Comments          *int       `csv:"comments"`
	PullRequest       *string    `csv:"pull_request"`
	ClosedAt          *time.Time `csv:"closed_at"`
	CreatedAt         *time.Time `csv:"created_at"`
	UpdatedAt         *time.Time `csv:"updated_at"`
	Repository        string     `csv:"repository"`
}

// CommentRecord is one issue comment.
type CommentRecord struct {
	ID                *int64     `csv:"id"`
	NodeID            *string    `csv:"node_id"`
	URL               *string    `csv:"url"`
	HTMLURL           *string    `csv:"html_url"`
	IssueURL          *string    `csv:"issue_url"`
	Body              *string    `csv:"body"`
	UserID            *int64     `csv:"user_id"`
	UserLogin         *string    `csv:"user_login"`
	AuthorAssociation *string    `csv:"author_association"`
	CreatedAt         *time.Time `csv:"created_at"`
	UpdatedAt         *time.Time `csv:"updated_at"`
	Repository        string     `csv:"repository"`
}

// EventRecord is one issue event of the repository timeline.
type EventRecord struct {
	ID          *int64     `csv:"id"`
	URL         *string    `csv:"url"`
	ActorID     *int64     `csv:"actor_id"`
	ActorLogin  *string    `csv:"actor_login"`
	Event       *string    `csv:"event"`
	CommitID    *string    `csv:"commit_id"`
	IssueNumber *int       `csv:"issue_number"`
	Label       *string    `csv:"label"`
	AssigneeID  *int64     `csv:"assignee_id"`
	CreatedAt   *time.Time `csv:"created_at"`
	Repository  string     `csv:"repository"`
}

// Issues lists issues and pull requests, filtered server-side by since.
var Issues = Definition[*gh.Issue, IssueRecord]{
	Kind:        KindIssues,
	Path:        "/repos/{owner}/{repo}/issues",
	Tune:        stateAll,
	ServerSince: true,
	DefaultMode: pagination.ModeServer,
	Decode:      decodeList[*gh.Issue],
	Map: func(s Scope, i *gh.Issue) []IssueRecord {
		rec := IssueRecord{
			ID:                i.ID,
			NodeID:            i.NodeID,
			URL:               i.URL,
			RepositoryURL:     i.RepositoryURL,
			LabelsURL:         i.LabelsURL,
			CommentsURL:       i.CommentsURL,
			EventsURL:         i.EventsURL,
			HTMLURL:           i.HTMLURL,
			Number:            i.Number,
			State:             i.State,
			StateReason:       i.StateReason,
			Title:             i.Title,
			Body:              i.Body,
			UserID:            userID(i.User),
			UserLogin:         userLogin(i.User),
			Labels:            labelNames(i.Labels),
			AssigneeID:        userID(i.Assignee),
			Assignees:         logins(i.Assignees),
			AuthorAssociation: i.AuthorAssociation,
			Locked:            i.Locked,
			ActiveLockReason:  i.ActiveLockReason,
			Comments:          i.Comments,
			ClosedAt:          timePtr(i.ClosedAt),
			CreatedAt:         timePtr(i.CreatedAt),
			UpdatedAt:         timePtr(i.UpdatedAt),
			Repository:        s.Repository,
		}
		if i.Milestone != nil {
			rec.Milestone = i.Milestone.Title
		}
		if i.PullRequestLinks != nil {
			rec.PullRequest = i.PullRequestLinks.URL
		}
		return one(rec)
	},
	Timestamp: func(i *gh.Issue) time.Time {
		return firstTime(i.UpdatedAt, i.CreatedAt)
	},
}

// Comments lists issue comments of the repository.
var Comments = Definition[*gh.IssueComment, CommentRecord]{
	Kind:        KindComments,
	Path:        "/repos/{owner}/{repo}/issues/comments",
	Tune:        pageOnly,
	ServerSince: true,
	DefaultMode: pagination.ModeServer,
	Decode:      decodeList[*gh.IssueComment],
	Map: func(s Scope, c *gh.IssueComment) []CommentRecord {
		return one(CommentRecord{
			ID:                c.ID,
			NodeID:            c.NodeID,
			URL:               c.URL,
			HTMLURL:           c.HTMLURL,
			IssueURL:          c.IssueURL,
			Body:              c.Body,
			UserID:            userID(c.User),
			UserLogin:         userLogin(c.User),
			AuthorAssociation: c.AuthorAssociation,
			CreatedAt:         timePtr(c.CreatedAt),
			UpdatedAt:         timePtr(c.UpdatedAt),
			Repository:        s.Repository,
		})
	},
	Timestamp: func(c *gh.IssueComment) time.Time {
		return firstTime(c.UpdatedAt, c.CreatedAt)
	},
}

// Events lists issue events newest first. The endpoint has no since filter.
var Events = Definition[*gh.IssueEvent, EventRecord]{
	Kind:        KindEvents,
	Path:        "/repos/{owner}/{repo}/issues/events",
	Tune:        pageOnly,
	DefaultMode: pagination.ModeLastItem,
	Decode:      decodeList[*gh.IssueEvent],
	Map: func(s Scope, e *gh.IssueEvent) []EventRecord {
		rec := EventRecord{
			ID:         e.ID,
			URL:        e.URL,
			ActorID:    userID(e.Actor),
			ActorLogin: userLogin(e.Actor),
			Event:      e.Event,
			CommitID:   e.CommitID,
			AssigneeID: userID(e.Assignee),
			CreatedAt:  timePtr(e.CreatedAt),
			Repository: s.Repository,
		}
		if e.Issue != nil {
			rec.IssueNumber = e.Issue.Number
		}
		if e.Label != nil {
			rec.Label = e.Label.Name
		}
		return one(rec)
	},
	Timestamp: func(e *gh.IssueEvent) time.Time {
		return firstTime(e.CreatedAt)
	},
}

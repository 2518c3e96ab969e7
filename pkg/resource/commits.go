package resource

import (
	"time"

	gh "github.com/google/go-github/v80/github"

	"github.com/Sternrassler/gh-extract/pkg/pagination"
)

// CommitRecord is one commit of the default branch.
type CommitRecord struct {
	SHA            *string    `csv:"sha"`
	NodeID         *string    `csv:"node_id"`
	URL            *string    `csv:"url"`
	HTMLURL        *string    `csv:"html_url"`
	CommentsURL    *string    `csv:"comments_url"`
	AuthorID       *int64     `csv:"author_id"`
	AuthorLogin    *string    `csv:"author_login"`
	AuthorName     *string    `csv:"author_name"`
	AuthorEmail    *string    `csv:"author_email"`
	CommitterID    *int64     `csv:"committer_id"`
	CommitterLogin *string    `csv:"committer_login"`
	CommitterName  *string    `csv:"committer_name"`
	CommitterEmail *string    `csv:"committer_email"`
	Parents        string     `csv:"parents"`
	Message        *string    `csv:"message"`
	AuthoredAt     *time.Time `csv:"authored_at"`
	CommittedAt    *time.Time `csv:"committed_at"`
	CommentCount   *int       `csv:"comment_count"`
	Repository     string     `csv:"repository"`
}

// Commits lists commits, filtered server-side by since.
var Commits = Definition[*gh.RepositoryCommit, CommitRecord]{
	Kind:        KindCommits,
	Path:        "/repos/{owner}/{repo}/commits",
	Tune:        pageOnly,
	ServerSince: true,
	DefaultMode: pagination.ModeServer,
	Decode:      decodeList[*gh.RepositoryCommit],
	Map: func(s Scope, c *gh.RepositoryCommit) []CommitRecord {
		parents := make([]string, 0, len(c.Parents))
		for _, p := range c.Parents {
			parents = append(parents, p.GetSHA())
		}

		rec := CommitRecord{
			SHA:            c.SHA,
			NodeID:         c.NodeID,
			URL:            c.URL,
			HTMLURL:        c.HTMLURL,
			CommentsURL:    c.CommentsURL,
			AuthorID:       userID(c.Author),
			AuthorLogin:    userLogin(c.Author),
			CommitterID:    userID(c.Committer),
			CommitterLogin: userLogin(c.Committer),
			Parents:        jsonText(parents),
			Repository:     s.Repository,
		}
		if gc := c.Commit; gc != nil {
			rec.Message = gc.Message
			rec.CommentCount = gc.CommentCount
			if a := gc.Author; a != nil {
				rec.AuthorName = a.Name
				rec.AuthorEmail = a.Email
				rec.AuthoredAt = timePtr(a.Date)
			}
			if cm := gc.Committer; cm != nil {
				rec.CommitterName = cm.Name
				rec.CommitterEmail = cm.Email
				rec.CommittedAt = timePtr(cm.Date)
			}
		}
		return one(rec)
	},
	Timestamp: func(c *gh.RepositoryCommit) time.Time {
		gc := c.GetCommit()
		if t := gc.GetCommitter().GetDate(); !t.IsZero() {
			return t.Time
		}
		return gc.GetAuthor().GetDate().Time
	},
}

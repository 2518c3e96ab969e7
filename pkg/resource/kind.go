package resource

import (
	"fmt"
	"strings"
)

// Kind names an extractable resource listing.
type Kind string

const (
	KindIssues           Kind = "issues"
	KindComments         Kind = "comments"
	KindEvents           Kind = "events"
	KindCommits          Kind = "commits"
	KindPulls            Kind = "pulls"
	KindPullRequestFiles Kind = "pull-request-files"
	KindReviews          Kind = "reviews"
	KindLabels           Kind = "labels"
	KindReleases         Kind = "releases"
	KindWorkflows        Kind = "workflows"
	KindRuns             Kind = "runs"
	KindJobs             Kind = "jobs"
	KindUsers            Kind = "users"
	KindUsersDetailed    Kind = "users-detailed"
)

// Kinds lists every kind in CLI order.
var Kinds = []Kind{
	KindIssues,
	KindComments,
	KindEvents,
	KindCommits,
	KindPulls,
	KindPullRequestFiles,
	KindReviews,
	KindLabels,
	KindReleases,
	KindWorkflows,
	KindRuns,
	KindJobs,
	KindUsers,
	KindUsersDetailed,
}

// ParseKind resolves a kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown resource kind %q", s)
}

// RepoScoped reports whether the kind lists resources of a single repository.
func (k Kind) RepoScoped() bool {
	return k != KindUsers && k != KindUsersDetailed
}

func (k Kind) String() string {
	return string(k)
}

package resource

import (
	"strconv"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
)

// LabelRecord is one repository label.
type LabelRecord struct {
	ID          *int64  `csv:"id"`
	NodeID      *string `csv:"node_id"`
	URL         *string `csv:"url"`
	Name        *string `csv:"name"`
	Description *string `csv:"description"`
	Color       *string `csv:"color"`
	Default     *bool   `csv:"default"`
	Repository  string  `csv:"repository"`
}

// ReleaseRecord is one release. Assets are rendered as id;name;url triples
// separated by commas.
type ReleaseRecord struct {
	ID              *int64     `csv:"id"`
	NodeID          *string    `csv:"node_id"`
	URL             *string    `csv:"url"`
	HTMLURL         *string    `csv:"html_url"`
	AssetsURL       *string    `csv:"assets_url"`
	UploadURL       *string    `csv:"upload_url"`
	TarballURL      *string    `csv:"tarball_url"`
	ZipballURL      *string    `csv:"zipball_url"`
	TagName         *string    `csv:"tag_name"`
	TargetCommitish *string    `csv:"target_commitish"`
	Name            *string    `csv:"name"`
	Body            *string    `csv:"body"`
	Draft           *bool      `csv:"draft"`
	Prerelease      *bool      `csv:"prerelease"`
	AuthorID        *int64     `csv:"author_id"`
	AuthorLogin     *string    `csv:"author_login"`
	Assets          string     `csv:"assets"`
	CreatedAt       *time.Time `csv:"created_at"`
	PublishedAt     *time.Time `csv:"published_at"`
	Repository      string     `csv:"repository"`
}

// Labels lists repository labels. Since thresholds do not apply.
var Labels = Definition[*gh.Label, LabelRecord]{
	Kind:   KindLabels,
	Path:   "/repos/{owner}/{repo}/labels",
	Tune:   pageOnly,
	Decode: decodeList[*gh.Label],
	Map: func(s Scope, l *gh.Label) []LabelRecord {
		return one(LabelRecord{
			ID:          l.ID,
			NodeID:      l.NodeID,
			URL:         l.URL,
			Name:        l.Name,
			Description: l.Description,
			Color:       l.Color,
			Default:     l.Default,
			Repository:  s.Repository,
		})
	},
}

// Releases lists releases. Since thresholds do not apply.
var Releases = Definition[*gh.RepositoryRelease, ReleaseRecord]{
	Kind:   KindReleases,
	Path:   "/repos/{owner}/{repo}/releases",
	Tune:   pageOnly,
	Decode: decodeList[*gh.RepositoryRelease],
	Map: func(s Scope, r *gh.RepositoryRelease) []ReleaseRecord {
		return one(ReleaseRecord{
			ID:              r.ID,
			NodeID:          r.NodeID,
			URL:             r.URL,
			HTMLURL:         r.HTMLURL,
			AssetsURL:       r.AssetsURL,
			UploadURL:       r.UploadURL,
			TarballURL:      r.TarballURL,
			ZipballURL:      r.ZipballURL,
			TagName:         r.TagName,
			TargetCommitish: r.TargetCommitish,
			Name:            r.Name,
			Body:            r.Body,
			Draft:           r.Draft,
			Prerelease:      r.Prerelease,
			AuthorID:        userID(r.Author),
			AuthorLogin:     userLogin(r.Author),
			Assets:          releaseAssets(r.Assets),
			CreatedAt:       timePtr(r.CreatedAt),
			PublishedAt:     timePtr(r.PublishedAt),
			Repository:      s.Repository,
		})
	},
}

func releaseAssets(assets []*gh.ReleaseAsset) string {
	parts := make([]string, 0, len(assets))
	for _, a := range assets {
		parts = append(parts, strconv.FormatInt(a.GetID(), 10)+";"+a.GetName()+";"+a.GetBrowserDownloadURL())
	}
	return strings.Join(parts, ",")
}

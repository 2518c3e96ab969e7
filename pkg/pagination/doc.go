// Package pagination walks GitHub REST listings page by page.
//
// GitHub paginates with a Link response header. The walker treats the "next"
// relation as an opaque absolute URL and follows it until it is absent:
//
//	entry, err := pagination.Entrypoint{
//		Owner:  "rust-lang",
//		Repo:   "rust",
//		Path:   "/repos/{owner}/{repo}/issues",
//		Params: pagination.Params{PerPage: 100, State: pagination.StateAll},
//	}.URL("https://api.github.com/")
//
//	walker := pagination.NewWalker("issues", apiClient, decodeIssues, nil)
//	stats, err := walker.Walk(ctx, entry, func(issue *github.Issue) error {
//		return sink.Write(toRecord(issue))
//	})
//
// The walk is strictly sequential: one request in flight, one page in memory.
// A Cutoff can end the walk early once a page's last item is older than a since
// threshold (see SincePolicy). Fetch, decode and emit errors abort the walk.
package pagination

// Package title derives display titles for captured video links, first from
// the text surrounding the link and, failing that, from the page itself.
package title

import "context"

// Resolver fetches a title for a URL from a remote source.
//
// An empty title with a nil error means the source had nothing usable.
// Implementations bound their own work with a timeout; callers treat any
// error as "no title" and never abort capture over it.
type Resolver interface {
	ResolveTitle(ctx context.Context, url string) (string, error)
}

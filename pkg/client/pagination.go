package client

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"net/url"

	"github.com/fabricops/fabricctl/pkg/models"
)

// Iterate every entry of a list endpoint, following continuationUri (or
// re-issuing the request with continuationToken) until neither is returned.
func paginate[T any](ctx context.Context, c *Client, path string, query url.Values) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		next, q := path, query
		seen := map[string]bool{}

		for {
			var page models.ListResponse[T]
			if err := c.getJSON(ctx, next, q, &page); err != nil {
				yield(zero, err)
				return
			}
			for _, item := range page.Items() {
				if !yield(item, nil) {
					return
				}
			}

			if page.ContinuationToken == "" && page.ContinuationURI == "" {
				return
			}
			cursor := page.ContinuationToken + "|" + page.ContinuationURI
			if seen[cursor] {
				yield(zero, fmt.Errorf("fabric: %s returned continuation token %q twice", path, page.ContinuationToken))
				return
			}
			seen[cursor] = true

			if page.ContinuationURI != "" {
				next, q = page.ContinuationURI, nil
				continue
			}
			q = maps.Clone(query)
			if q == nil {
				q = url.Values{}
			}
			q.Set("continuationToken", page.ContinuationToken)
			next = path
		}
	}
}

func collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	out := []T{}
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

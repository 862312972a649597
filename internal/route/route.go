// Package route builds navigable references into the explorer front end.
package route

import (
	"net/url"
	"strings"
)

const (
	PathBlocks = "/blocks"
	PathBlock  = "/block/[height_or_hash]"

	TabTxs = "txs"
)

// Link is a route plus its query, and the concrete href it resolves to.
type Link struct {
	Pathname string            `json:"pathname"`
	Query    map[string]string `json:"query,omitempty"`
	Href     string            `json:"href"`
}

// New resolves pathname against query. Dynamic segments written as
// "[name]" are substituted from query and removed from it; the remaining
// entries become the URL query string.
func New(pathname string, query map[string]string) Link {
	link := Link{Pathname: pathname}
	if len(query) > 0 {
		link.Query = make(map[string]string, len(query))
		for k, v := range query {
			link.Query[k] = v
		}
	}

	rest := make(map[string]string, len(query))
	for k, v := range query {
		rest[k] = v
	}

	segments := strings.Split(pathname, "/")
	for i, seg := range segments {
		if !strings.HasPrefix(seg, "[") || !strings.HasSuffix(seg, "]") {
			continue
		}
		name := seg[1 : len(seg)-1]
		segments[i] = url.PathEscape(rest[name])
		delete(rest, name)
	}
	href := strings.Join(segments, "/")

	if len(rest) > 0 {
		values := url.Values{}
		for k, v := range rest {
			values.Set(k, v)
		}
		href += "?" + values.Encode()
	}

	link.Href = href
	return link
}

func Blocks() Link {
	return New(PathBlocks, nil)
}

// BlockTab links to one tab of the block detail page.
func BlockTab(heightOrHash, tab string) Link {
	return New(PathBlock, map[string]string{
		"height_or_hash": heightOrHash,
		"tab":            tab,
	})
}

package humastar

import (
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
)

const (
	entryPath  = "/health"
	searchPath = "/api/v1/geocode"
	streamPath = "/api/v1/overlay/stream"
	streamTag  = "stream"
)

// index maps operation paths to Link header values.
type index map[string][]string

func (ix index) add(from, to, rel string) {
	val := fmt.Sprintf(`<%s>; rel="%s"`, to, rel)
	if !slices.Contains(ix[from], val) {
		ix[from] = append(ix[from], val)
	}
}

var (
	linksMu sync.RWMutex
	links   index
)

// AutoLinks derives Link headers from the OpenAPI document and records them
// on the document as response links. Call it once every operation is
// registered. Operations tagged "stream" are left out.
func AutoLinks(api huma.API) {
	oapi := api.OpenAPI()
	ix := index{}

	var collections, items []string
	tags := map[string][]string{}
	for p, pi := range oapi.Paths {
		t := primaryTags(pi)
		if slices.Contains(t, streamTag) {
			continue
		}
		tags[p] = t
		if strings.Contains(p, "{") {
			items = append(items, p)
		} else {
			collections = append(collections, p)
		}
	}
	slices.Sort(collections)
	slices.Sort(items)
	_, hasSearch := oapi.Paths[searchPath]
	_, hasStream := oapi.Paths[streamPath]

	for _, item := range items {
		if parent := path.Dir(item); oapi.Paths[parent] != nil {
			ix.add(item, parent, "collection")
			ix.add(item, parent, "up")
		}
	}

	for _, c := range collections {
		for _, item := range items {
			if path.Dir(item) == c {
				ix.add(c, item, "item")
			}
		}
		if c == entryPath {
			continue
		}
		ix.add(c, entryPath, "up")
		if hasSearch && c != searchPath {
			ix.add(c, searchPath, "search")
		}
		for _, other := range collections {
			if other != c && other != entryPath && sharesTag(tags[c], tags[other]) {
				ix.add(c, other, lastSegment(other))
			}
		}
		ix.add(entryPath, c, lastSegment(c))
	}

	ix.add(entryPath, "/openapi.json", "describedby")
	ix.add(entryPath, "/openapi.json", "service-desc")
	ix.add(entryPath, "/docs", "service-doc")
	if hasStream {
		ix.add(entryPath, streamPath, "stream")
	}

	for p := range tags {
		if ref := responseSchema(oapi.Paths[p]); ref != "" {
			ix.add(p, "/openapi.json#/components/schemas/"+ref, "describedby")
		}
	}

	for p, headers := range ix {
		for _, op := range operationsOf(oapi.Paths[p]) {
			if op != nil {
				documentLinks(op, headers)
			}
		}
	}

	linksMu.Lock()
	links = ix
	linksMu.Unlock()
}

// LinkTransformer adds the derived links, a self link on item paths, and
// the links of Pager and Actor bodies to every response.
func LinkTransformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		linksMu.RLock()
		for _, link := range links[op.Path] {
			ctx.AppendHeader("Link", link)
		}
		linksMu.RUnlock()

		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}
		if p, ok := v.(Pager); ok {
			for _, link := range p.PaginationLinks(ctx.URL().Path) {
				ctx.AppendHeader("Link", link)
			}
		}
		if a, ok := v.(Actor); ok {
			for _, action := range a.Actions() {
				ctx.AppendHeader("Link", action.LinkHeader())
			}
		}
		return v, nil
	}
}

// RootLinks returns the links of the entry point, for handlers outside Huma.
func RootLinks() []string {
	linksMu.RLock()
	defer linksMu.RUnlock()
	return slices.Clone(links[entryPath])
}

func primaryTags(pi *huma.PathItem) []string {
	for _, op := range operationsOf(pi) {
		if op != nil && len(op.Tags) > 0 {
			return op.Tags
		}
	}
	return nil
}

func operationsOf(pi *huma.PathItem) []*huma.Operation {
	if pi == nil {
		return nil
	}
	return []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete}
}

func sharesTag(a, b []string) bool {
	return slices.ContainsFunc(a, func(t string) bool { return slices.Contains(b, t) })
}

func lastSegment(p string) string {
	return path.Base(strings.TrimRight(p, "/"))
}

// documentLinks records headers as OpenAPI links on the first 2xx response.
func documentLinks(op *huma.Operation, headers []string) {
	for code, resp := range op.Responses {
		if !strings.HasPrefix(code, "2") {
			continue
		}
		if resp.Links == nil {
			resp.Links = map[string]*huma.Link{}
		}
		for _, h := range headers {
			if rel, href := parseLink(h); rel != "" {
				resp.Links[rel] = &huma.Link{OperationRef: href, Description: "Related: " + rel}
			}
		}
		return
	}
}

// responseSchema is the component name of the GET response body, if any.
func responseSchema(pi *huma.PathItem) string {
	if pi == nil || pi.Get == nil {
		return ""
	}
	for code, resp := range pi.Get.Responses {
		if !strings.HasPrefix(code, "2") {
			continue
		}
		for _, mt := range resp.Content {
			if mt.Schema != nil && mt.Schema.Ref != "" {
				return path.Base(mt.Schema.Ref)
			}
		}
	}
	return ""
}

// parseLink splits `<href>; rel="name"`.
func parseLink(h string) (rel, href string) {
	target, params, ok := strings.Cut(h, ";")
	if !ok {
		return "", ""
	}
	params = strings.TrimSpace(params)
	if !strings.HasPrefix(params, `rel="`) {
		return "", ""
	}
	return strings.Trim(params[len(`rel=`):], `"`), strings.Trim(strings.TrimSpace(target), "<>")
}

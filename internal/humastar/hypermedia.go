package humastar

import (
	"fmt"
	"strings"
)

// Action is a state-dependent link, rendered as
//
//	<href>; rel="select"; method="POST"; title="Select"
type Action struct {
	Rel    string
	Href   string
	Method string
	Title  string
}

// Actor is implemented by response bodies that offer actions.
type Actor interface {
	Actions() []Action
}

// LinkHeader formats the action as a Link header value.
func (a Action) LinkHeader() string {
	var b strings.Builder
	fmt.Fprintf(&b, `<%s>; rel="%s"`, a.Href, a.Rel)
	if a.Method != "" {
		fmt.Fprintf(&b, `; method="%s"`, a.Method)
	}
	if a.Title != "" {
		fmt.Fprintf(&b, `; title="%s"`, a.Title)
	}
	return b.String()
}

// ActionDef is an action template. Pattern has one %s for the resource ID.
// When, if set, decides from the resource state whether the action is
// offered.
type ActionDef[S any] struct {
	Rel     string
	Pattern string
	Method  string
	Title   string
	When    func(S) bool
}

// ActionsFor expands the defs that apply to state for resource id.
func ActionsFor[S any](id string, state S, defs []ActionDef[S]) []Action {
	actions := make([]Action, 0, len(defs))
	for _, d := range defs {
		if d.When != nil && !d.When(state) {
			continue
		}
		actions = append(actions, Action{
			Rel:    d.Rel,
			Href:   fmt.Sprintf(d.Pattern, id),
			Method: d.Method,
			Title:  d.Title,
		})
	}
	return actions
}

// Pager is implemented by response bodies that carry pagination.
type Pager interface {
	PaginationLinks(basePath string) []string
}

// PageBody is a page of T.
type PageBody[T any] struct {
	Total  int `json:"total" doc:"Total number of items"`
	Offset int `json:"offset" doc:"Current offset"`
	Limit  int `json:"limit" doc:"Page size"`
	Data   []T `json:"data" doc:"Items"`
}

// Page slices items into a PageBody. Data is never nil.
func Page[T any](items []T, offset, limit int) PageBody[T] {
	p := PageBody[T]{Total: len(items), Offset: offset, Limit: limit, Data: []T{}}
	if limit > 0 && offset >= 0 && offset < len(items) {
		p.Data = items[offset:min(offset+limit, len(items))]
	}
	return p
}

// PaginationLinks returns first, prev, next and last links. prev and next
// are left out at the ends.
func (p PageBody[T]) PaginationLinks(basePath string) []string {
	if p.Limit <= 0 {
		return nil
	}
	link := func(offset int, rel string) string {
		return fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel="%s"`, basePath, offset, p.Limit, rel)
	}

	links := []string{link(0, "first")}
	if p.Offset > 0 {
		links = append(links, link(max(p.Offset-p.Limit, 0), "prev"))
	}
	if p.Offset+p.Limit < p.Total {
		links = append(links, link(p.Offset+p.Limit, "next"))
	}
	last := max((p.Total-1)/p.Limit*p.Limit, 0)
	return append(links, link(last, "last"))
}

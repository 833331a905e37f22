package humastar

import (
	"context"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	p := Page(items, 2, 2)
	assert.Equal(t, []int{3, 4}, p.Data)
	assert.Equal(t, []string{
		`</x?offset=0&limit=2>; rel="first"`,
		`</x?offset=0&limit=2>; rel="prev"`,
		`</x?offset=4&limit=2>; rel="next"`,
		`</x?offset=4&limit=2>; rel="last"`,
	}, p.PaginationLinks("/x"))

	empty := Page([]int(nil), 10, 2)
	assert.NotNil(t, empty.Data)
	assert.Empty(t, empty.Data)
	assert.Equal(t, []string{
		`</x?offset=0&limit=2>; rel="first"`,
		`</x?offset=8&limit=2>; rel="prev"`,
		`</x?offset=0&limit=2>; rel="last"`,
	}, empty.PaginationLinks("/x"))
}

func TestActionsFor(t *testing.T) {
	defs := []ActionDef[bool]{
		{Rel: "open", Pattern: "/things/%s/open", Method: "POST", When: func(open bool) bool { return !open }},
		{Rel: "close", Pattern: "/things/%s/close", Method: "POST", When: func(open bool) bool { return open }},
		{Rel: "delete", Pattern: "/things/%s", Method: "DELETE", Title: "Delete"},
	}

	actions := ActionsFor("a1", true, defs)
	require.Len(t, actions, 2)
	assert.Equal(t, `</things/a1/close>; rel="close"; method="POST"`, actions[0].LinkHeader())
	assert.Equal(t, `</things/a1>; rel="delete"; method="DELETE"; title="Delete"`, actions[1].LinkHeader())
}

func TestSignals(t *testing.T) {
	s, err := ParseSignals([]byte(`{"action":"click","nodeId":"n1","zoom":3}`))
	require.NoError(t, err)
	assert.Equal(t, "click", s.String("action"))
	assert.Empty(t, s.String("zoom"))

	id, err := s.Require("nodeId")
	require.NoError(t, err)
	assert.Equal(t, "n1", id)

	_, err = s.Require("path")
	var se huma.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.GetStatus())

	_, err = (&SignalsInput{RawBody: []byte("{")}).Parse()
	assert.Error(t, err)
}

type thing struct {
	ID string `json:"id"`
}

func TestAutoLinks(t *testing.T) {
	cfg := huma.DefaultConfig("links", "1.0.0")
	cfg.Transformers = append(cfg.Transformers, LinkTransformer())
	_, api := humatest.New(t, cfg)

	ok := func(ctx context.Context, _ *struct{}) (*struct{ Body thing }, error) {
		return &struct{ Body thing }{Body: thing{ID: "a"}}, nil
	}
	item := func(ctx context.Context, _ *struct {
		ID string `path:"id"`
	}) (*struct{ Body thing }, error) {
		return &struct{ Body thing }{Body: thing{ID: "a"}}, nil
	}
	huma.Get(api, "/health", ok, huma.OperationTags("health"))
	huma.Get(api, "/api/v1/things", ok, huma.OperationTags("things"))
	huma.Get(api, "/api/v1/things/{id}", item, huma.OperationTags("things"))
	huma.Get(api, "/api/v1/overlay/stream", ok, huma.OperationTags("stream"))
	AutoLinks(api)

	resp := api.Get("/api/v1/things/a")
	links := resp.Header().Values("Link")
	assert.Contains(t, links, `</api/v1/things>; rel="collection"`)
	assert.Contains(t, links, `</api/v1/things/a>; rel="self"`)

	resp = api.Get("/api/v1/things")
	links = resp.Header().Values("Link")
	assert.Contains(t, links, `</api/v1/things/{id}>; rel="item"`)
	assert.Contains(t, links, `</health>; rel="up"`)

	root := RootLinks()
	assert.Contains(t, root, `</api/v1/things>; rel="things"`)
	assert.Contains(t, root, `</api/v1/overlay/stream>; rel="stream"`)

	op := api.OpenAPI().Paths["/api/v1/things"].Get
	assert.Contains(t, op.Responses["200"].Links, "item")
}

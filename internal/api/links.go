package api

import (
	"github.com/danielgtaylor/huma/v2"
)

// links maps operation paths to RFC 8288 Link header values the OpenAPI
// walker in humastar cannot infer: relations between the overlay, its
// interactions and the capture endpoint.
var links = map[string][]string{
	"/api/v1/overlay": {
		`</api/v1/overlay/stream>; rel="stream"`,
		`</api/v1/overlay/tooltip/{id}>; rel="tooltip"`,
		`</api/v1/capture>; rel="capture"; method="POST"`,
		`</api/v1/camera>; rel="camera"`,
	},
	"/api/v1/camera": {
		`</api/v1/overlay>; rel="overlay"`,
		`</api/v1/camera/restore>; rel="restore"; method="POST"`,
	},
	"/api/v1/state": {
		`</api/v1/overlay>; rel="overlay"`,
		`</api/v1/nodes>; rel="nodes"`,
		`</api/v1/routes>; rel="routes"`,
	},
	"/api/v1/geocode/cache": {
		`</api/v1/geocode>; rel="search"; method="POST"`,
		`</api/v1/tables>; rel="tables"`,
	},
}

// LinkTransformer returns a Huma Transformer that injects the static links.
func LinkTransformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		if op := ctx.Operation(); op != nil {
			for _, link := range links[op.Path] {
				ctx.AppendHeader("Link", link)
			}
		}
		return v, nil
	}
}

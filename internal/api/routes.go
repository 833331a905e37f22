// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-warroom/internal/capture"
	"github.com/joeblew999/plat-warroom/internal/db"
	"github.com/joeblew999/plat-warroom/internal/geocode"
	"github.com/joeblew999/plat-warroom/internal/humastar"
	"github.com/joeblew999/plat-warroom/internal/overlay"
	"github.com/joeblew999/plat-warroom/internal/render"
	"github.com/joeblew999/plat-warroom/internal/service"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Scene    *service.SceneService
	Overlay  *overlay.Synchronizer
	Map      *render.Map
	Geocoder *geocode.Resolver
	Capture  *capture.Compositor
	Cache    *db.GeocodeStore
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Entity ID" example:"toronto-works"`
}

type PageInput struct {
	Offset int `query:"offset" minimum:"0" default:"0" doc:"Items to skip"`
	Limit  int `query:"limit" minimum:"1" maximum:"500" default:"50" doc:"Page size"`
}

// NodeBody is a node with the actions its interaction state allows.
type NodeBody struct {
	service.Node
	state nodeState
}

type nodeState struct {
	selected bool
	pinned   bool
}

var nodeActions = []humastar.ActionDef[nodeState]{
	{Rel: "select", Pattern: "/api/v1/nodes/%s/click", Method: "POST", Title: "Select and pin",
		When: func(st nodeState) bool { return !st.selected }},
	{Rel: "deselect", Pattern: "/api/v1/nodes/%s/click", Method: "POST", Title: "Clear selection",
		When: func(st nodeState) bool { return st.selected }},
	{Rel: "zoom", Pattern: "/api/v1/camera/zoom-to/%s", Method: "POST", Title: "Zoom to entity"},
	{Rel: "tooltip", Pattern: "/api/v1/overlay/tooltip/%s", Method: "GET", Title: "Tooltip",
		When: func(st nodeState) bool { return st.pinned }},
	{Rel: "delete", Pattern: "/api/v1/nodes/%s", Method: "DELETE", Title: "Delete entity"},
}

// Actions implements humastar.Actor.
func (b NodeBody) Actions() []humastar.Action {
	return humastar.ActionsFor(b.ID, b.state, nodeActions)
}

func (h *APIHandler) nodeBody(n service.Node) NodeBody {
	sc := h.svc.Scene.Scene()
	return NodeBody{Node: n, state: nodeState{
		selected: sc.Selected != nil && sc.Selected.ID == n.ID,
		pinned:   sc.PinnedNodeID == n.ID,
	}}
}

type NodeOutput struct {
	Body NodeBody
}

type NodesOutput struct {
	Body humastar.PageBody[service.Node]
}

type RoutesBody struct {
	Transit []service.TransitRoute `json:"transit" doc:"Logistics routes"`
	Project []service.ProjectRoute `json:"project" doc:"Project routes"`
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

type SceneStateBody struct {
	Selected     *service.Selection   `json:"selected,omitempty" doc:"Selected entity"`
	Hovered      *service.Selection   `json:"hovered,omitempty" doc:"Hovered entity"`
	PinnedNodeID string               `json:"pinnedNodeId,omitempty" doc:"Entity whose tooltip is pinned"`
	Filter       service.StatusFilter `json:"filter" enum:"all,active,inactive" doc:"Project status filter"`
	Theme        string               `json:"theme" enum:"light,dark" doc:"Map theme"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	humastar.Handler
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterNodes registers entity CRUD routes.
func (h *APIHandler) RegisterNodes(api huma.API) {
	huma.Get(api, "/api/v1/nodes", h.GetNodes, huma.OperationTags("nodes"))
	huma.Post(api, "/api/v1/nodes", h.CreateNode, huma.OperationTags("nodes"))
	huma.Get(api, "/api/v1/nodes/{id}", h.GetNode, huma.OperationTags("nodes"))
	huma.Put(api, "/api/v1/nodes/{id}", h.PutNode, huma.OperationTags("nodes"))
	huma.Delete(api, "/api/v1/nodes/{id}", h.DeleteNode, huma.OperationTags("nodes"))
	huma.Post(api, "/api/v1/nodes/{id}/click", h.ClickNode, huma.OperationTags("nodes"))
}

// RegisterRoutes registers route replacement routes.
func (h *APIHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/routes", h.GetRoutes, huma.OperationTags("routes"))
	huma.Put(api, "/api/v1/routes/transit", h.PutTransitRoutes, huma.OperationTags("routes"))
	huma.Put(api, "/api/v1/routes/project", h.PutProjectRoutes, huma.OperationTags("routes"))
}

// RegisterState registers selection, hover, filter and theme routes.
func (h *APIHandler) RegisterState(api huma.API) {
	huma.Get(api, "/api/v1/state", h.GetState, huma.OperationTags("state"))
	huma.Put(api, "/api/v1/state/selection", h.PutSelection, huma.OperationTags("state"))
	huma.Delete(api, "/api/v1/state/selection", h.DeleteSelection, huma.OperationTags("state"))
	huma.Put(api, "/api/v1/state/hover", h.PutHover, huma.OperationTags("state"))
	huma.Put(api, "/api/v1/state/filter", h.PutFilter, huma.OperationTags("state"))
	huma.Put(api, "/api/v1/state/theme", h.PutTheme, huma.OperationTags("state"))
}

// RegisterCamera registers camera routes.
func (h *APIHandler) RegisterCamera(api huma.API) {
	huma.Get(api, "/api/v1/camera", h.GetCamera, huma.OperationTags("camera"))
	huma.Put(api, "/api/v1/camera", h.PutCamera, huma.OperationTags("camera"))
	huma.Post(api, "/api/v1/camera/zoom-to/{id}", h.ZoomTo, huma.OperationTags("camera"))
	huma.Post(api, "/api/v1/camera/restore", h.RestoreCamera, huma.OperationTags("camera"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) GetNodes(ctx context.Context, input *PageInput) (*NodesOutput, error) {
	page := humastar.Page(h.svc.Scene.Nodes(), input.Offset, input.Limit)
	return &NodesOutput{Body: page}, nil
}

func (h *APIHandler) CreateNode(ctx context.Context, input *struct{ Body service.Node }) (*NodeOutput, error) {
	created, err := h.svc.Scene.CreateNode(input.Body)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	return &NodeOutput{Body: h.nodeBody(created)}, nil
}

func (h *APIHandler) GetNode(ctx context.Context, input *IDInput) (*NodeOutput, error) {
	n, ok := h.svc.Scene.GetNode(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("node not found")
	}
	return &NodeOutput{Body: h.nodeBody(n)}, nil
}

func (h *APIHandler) PutNode(ctx context.Context, input *struct {
	IDInput
	Body service.Node
}) (*NodeOutput, error) {
	updated, err := h.svc.Scene.UpdateNode(input.ID, input.Body)
	if err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	return &NodeOutput{Body: h.nodeBody(updated)}, nil
}

func (h *APIHandler) DeleteNode(ctx context.Context, input *IDInput) (*struct{ Body MessageBody }, error) {
	if err := h.svc.Scene.DeleteNode(input.ID); err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Node deleted"}}, nil
}

func (h *APIHandler) ClickNode(ctx context.Context, input *IDInput) (*struct{ Body SceneStateBody }, error) {
	if err := h.svc.Overlay.Click(input.ID); err != nil {
		return nil, overlayError(err)
	}
	return h.state(), nil
}

func (h *APIHandler) GetRoutes(ctx context.Context, input *struct{}) (*struct{ Body RoutesBody }, error) {
	sc := h.svc.Scene.Scene()
	body := RoutesBody{Transit: sc.TransitRoutes, Project: sc.ProjectRoutes}
	if body.Transit == nil {
		body.Transit = []service.TransitRoute{}
	}
	if body.Project == nil {
		body.Project = []service.ProjectRoute{}
	}
	return &struct{ Body RoutesBody }{Body: body}, nil
}

func (h *APIHandler) PutTransitRoutes(ctx context.Context, input *struct{ Body []service.TransitRoute }) (*struct{ Body MessageBody }, error) {
	if err := h.svc.Scene.SetTransitRoutes(input.Body); err != nil {
		return nil, huma.Error500InternalServerError("failed to save routes", err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Transit routes replaced"}}, nil
}

func (h *APIHandler) PutProjectRoutes(ctx context.Context, input *struct{ Body []service.ProjectRoute }) (*struct{ Body MessageBody }, error) {
	if err := h.svc.Scene.SetProjectRoutes(input.Body); err != nil {
		return nil, huma.Error500InternalServerError("failed to save routes", err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Project routes replaced"}}, nil
}

func (h *APIHandler) state() *struct{ Body SceneStateBody } {
	sc := h.svc.Scene.Scene()
	return &struct{ Body SceneStateBody }{Body: SceneStateBody{
		Selected:     sc.Selected,
		Hovered:      sc.Hovered,
		PinnedNodeID: sc.PinnedNodeID,
		Filter:       sc.Filter,
		Theme:        sc.Theme,
	}}
}

func (h *APIHandler) GetState(ctx context.Context, input *struct{}) (*struct{ Body SceneStateBody }, error) {
	return h.state(), nil
}

func (h *APIHandler) PutSelection(ctx context.Context, input *struct{ Body service.Selection }) (*struct{ Body SceneStateBody }, error) {
	if _, ok := h.svc.Scene.GetNode(input.Body.ID); !ok {
		return nil, huma.Error404NotFound("node not found")
	}
	sel := input.Body
	h.svc.Scene.Select(&sel)
	return h.state(), nil
}

func (h *APIHandler) DeleteSelection(ctx context.Context, input *struct{}) (*struct{ Body SceneStateBody }, error) {
	h.svc.Scene.Select(nil)
	h.svc.Scene.Pin("")
	return h.state(), nil
}

type HoverBody struct {
	ID string `json:"id" doc:"Hovered entity; empty clears hover"`
}

func (h *APIHandler) PutHover(ctx context.Context, input *struct{ Body HoverBody }) (*struct{ Body SceneStateBody }, error) {
	if err := h.svc.Overlay.Hover(input.Body.ID); err != nil {
		return nil, overlayError(err)
	}
	return h.state(), nil
}

type FilterBody struct {
	Filter service.StatusFilter `json:"filter" enum:"all,active,inactive" doc:"Project status filter"`
}

func (h *APIHandler) PutFilter(ctx context.Context, input *struct{ Body FilterBody }) (*struct{ Body SceneStateBody }, error) {
	h.svc.Scene.SetFilter(input.Body.Filter)
	return h.state(), nil
}

type ThemeBody struct {
	Theme string `json:"theme" enum:"light,dark" doc:"Map theme"`
}

func (h *APIHandler) PutTheme(ctx context.Context, input *struct{ Body ThemeBody }) (*struct{ Body SceneStateBody }, error) {
	h.svc.Scene.SetTheme(input.Body.Theme)
	if h.svc.Map != nil {
		h.svc.Map.SetTheme(render.ParseTheme(input.Body.Theme))
	}
	return h.state(), nil
}

func (h *APIHandler) GetCamera(ctx context.Context, input *struct{}) (*struct{ Body render.Camera }, error) {
	return &struct{ Body render.Camera }{Body: h.svc.Map.Camera()}, nil
}

type CameraBody struct {
	Longitude float64 `json:"longitude" minimum:"-180" maximum:"180" doc:"Center longitude"`
	Latitude  float64 `json:"latitude" minimum:"-90" maximum:"90" doc:"Center latitude"`
	Zoom      float64 `json:"zoom" doc:"Zoom level"`
	Pitch     float64 `json:"pitch,omitempty" doc:"Pitch in degrees"`
	Bearing   float64 `json:"bearing,omitempty" doc:"Bearing in degrees"`
}

func (h *APIHandler) PutCamera(ctx context.Context, input *struct{ Body CameraBody }) (*struct{ Body render.Camera }, error) {
	b := input.Body
	h.svc.Map.EaseTo(render.Camera{
		Center:  orb.Point{b.Longitude, b.Latitude},
		Zoom:    b.Zoom,
		Pitch:   b.Pitch,
		Bearing: b.Bearing,
	})
	return &struct{ Body render.Camera }{Body: h.svc.Map.Camera()}, nil
}

type ZoomInput struct {
	IDInput
	Zoom float64 `query:"zoom" default:"8" doc:"Target zoom"`
}

func (h *APIHandler) ZoomTo(ctx context.Context, input *ZoomInput) (*struct{ Body render.Camera }, error) {
	if err := h.svc.Overlay.ZoomToEntity(input.ID, input.Zoom); err != nil {
		return nil, overlayError(err)
	}
	return &struct{ Body render.Camera }{Body: h.svc.Map.Camera()}, nil
}

func (h *APIHandler) RestoreCamera(ctx context.Context, input *struct{}) (*struct{ Body render.Camera }, error) {
	h.svc.Overlay.RestorePreviousView()
	return &struct{ Body render.Camera }{Body: h.svc.Map.Camera()}, nil
}

func overlayError(err error) error {
	switch {
	case errors.Is(err, overlay.ErrUnknownNode):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, overlay.ErrClosed):
		return huma.Error503ServiceUnavailable(err.Error())
	}
	return huma.Error500InternalServerError("overlay error", err)
}

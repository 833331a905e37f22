package api

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-warroom/internal/capture"
	"github.com/joeblew999/plat-warroom/internal/geo"
	"github.com/joeblew999/plat-warroom/internal/humastar"
	"github.com/joeblew999/plat-warroom/internal/overlay"
	"github.com/joeblew999/plat-warroom/internal/service"
	"github.com/joeblew999/plat-warroom/internal/tooltip"
)

// RegisterOverlay registers overlay snapshot, tooltip and stream routes.
func (h *APIHandler) RegisterOverlay(api huma.API) {
	huma.Get(api, "/api/v1/overlay", h.GetOverlay, huma.OperationTags("overlay"))
	huma.Get(api, "/api/v1/overlay/tooltip/{id}", h.GetTooltip, huma.OperationTags("overlay"))
	huma.Post(api, "/api/v1/overlay/logo-failures", h.ReportLogoFailure, huma.OperationTags("overlay"))
	huma.Get(api, "/api/v1/overlay/stream", h.StreamOverlay, huma.OperationTags("stream"))
	huma.Post(api, "/api/v1/overlay/actions", h.OverlayAction, huma.OperationTags("stream"))
}

// RegisterCapture registers the composite image route.
func (h *APIHandler) RegisterCapture(api huma.API) {
	huma.Post(api, "/api/v1/capture", h.Capture, huma.OperationTags("capture"))
}

// RegisterGeocode registers label resolution routes.
func (h *APIHandler) RegisterGeocode(api huma.API) {
	huma.Post(api, "/api/v1/geocode", h.Geocode, huma.OperationTags("geocode"))
}

type OverlayOutput struct {
	Body *overlay.Snapshot
}

func (h *APIHandler) GetOverlay(ctx context.Context, input *struct{}) (*OverlayOutput, error) {
	snap := h.svc.Overlay.Snapshot()
	if snap == nil {
		return nil, huma.Error503ServiceUnavailable("overlay not synchronized yet")
	}
	return &OverlayOutput{Body: snap}, nil
}

type TooltipInput struct {
	IDInput
	ContainerLeft   float64 `query:"containerLeft" doc:"Container left edge in viewport pixels"`
	ContainerTop    float64 `query:"containerTop" doc:"Container top edge in viewport pixels"`
	ContainerWidth  float64 `query:"containerWidth" doc:"Container width; defaults to the map width"`
	ContainerHeight float64 `query:"containerHeight" doc:"Container height; defaults to the map height"`
	ViewportWidth   float64 `query:"viewportWidth" doc:"Viewport width; defaults to the container width"`
	ViewportHeight  float64 `query:"viewportHeight" doc:"Viewport height; defaults to the container height"`
}

func (h *APIHandler) GetTooltip(ctx context.Context, input *TooltipInput) (*struct{ Body overlay.Tooltip }, error) {
	container := tooltip.Rect{
		Left:   input.ContainerLeft,
		Top:    input.ContainerTop,
		Width:  input.ContainerWidth,
		Height: input.ContainerHeight,
	}
	if container.Empty() && h.svc.Map != nil {
		vp := h.svc.Map.Viewport()
		container.Width, container.Height = vp.Width, vp.Height
	}
	viewport := tooltip.Rect{Width: input.ViewportWidth, Height: input.ViewportHeight}
	if viewport.Empty() {
		viewport = tooltip.Rect{Width: container.Right(), Height: container.Bottom()}
	}
	tip, err := h.svc.Overlay.Tooltip(input.ID, container, viewport)
	if err != nil {
		return nil, overlayError(err)
	}
	return &struct{ Body overlay.Tooltip }{Body: tip}, nil
}

type LogoFailureBody struct {
	NodeID string `json:"nodeId" required:"true" doc:"Entity whose logo failed"`
	Path   string `json:"path" required:"true" doc:"Location that failed to load"`
}

type LogoNextBody struct {
	Next string `json:"next" doc:"Next location to try"`
}

func (h *APIHandler) ReportLogoFailure(ctx context.Context, input *struct{ Body LogoFailureBody }) (*struct{ Body LogoNextBody }, error) {
	next := h.svc.Overlay.ReportLogoFailure(input.Body.NodeID, input.Body.Path)
	return &struct{ Body LogoNextBody }{Body: LogoNextBody{Next: next}}, nil
}

// StreamOverlay pushes every published snapshot as Datastar signals.
func (h *APIHandler) StreamOverlay(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := humastar.NewSSE(humaCtx)
			bus := h.svc.Scene.Bus()
			ch := bus.Subscribe()
			defer bus.Unsubscribe(ch)

			if snap := h.svc.Overlay.Snapshot(); snap != nil {
				sse.Signals(map[string]any{"overlay": snap})
			}
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-ch:
					if !ok {
						return
					}
					if ev.Resource == service.ResourceOverlay {
						sse.Signals(map[string]any{"overlay": h.svc.Overlay.Snapshot()})
						continue
					}
					sse.Event("scene-changed", map[string]any{
						"resource": ev.Resource,
						"action":   ev.Action,
						"id":       ev.ID,
					})
				}
			}
		},
	}, nil
}

// OverlayAction applies a Datastar interaction read from the request
// signals: click, hover, unhover, capture or logo-failed.
func (h *APIHandler) OverlayAction(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.Parse()
	if err != nil {
		return nil, err
	}
	nodeID := signals.String("nodeId")
	switch action := signals.String("action"); action {
	case "click", "hover":
		if nodeID, err = signals.Require("nodeId"); err != nil {
			return nil, err
		}
		if action == "click" {
			err = h.svc.Overlay.Click(nodeID)
		} else {
			err = h.svc.Overlay.Hover(nodeID)
		}
	case "unhover":
		err = h.svc.Overlay.Hover("")
	case "capture":
		if h.svc.Capture == nil {
			return nil, huma.Error503ServiceUnavailable("capture not available")
		}
		img, err := h.svc.Capture.Capture(ctx, nil)
		if err != nil {
			return nil, huma.Error500InternalServerError("capture failed", err)
		}
		return h.Stream(func(sse humastar.SSE) {
			sse.Signals(map[string]any{"capture": pngDataURL(img.Data)})
		}), nil
	case "logo-failed":
		next := h.svc.Overlay.ReportLogoFailure(nodeID, signals.String("path"))
		return h.Stream(func(sse humastar.SSE) {
			sse.Signals(map[string]any{"logo": map[string]string{"nodeId": nodeID, "next": next}})
		}), nil
	default:
		return nil, huma.Error400BadRequest("unknown action: " + action)
	}
	if err != nil {
		return nil, overlayError(err)
	}
	return h.Stream(func(sse humastar.SSE) {
		sse.Status("ok", signals.String("action"))
	}), nil
}

type CaptureInput struct {
	Body struct {
		Legs []capture.Leg `json:"legs,omitempty" doc:"Location pairs to frame; every marker when empty"`
	}
}

type CaptureOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

func (h *APIHandler) Capture(ctx context.Context, input *CaptureInput) (*CaptureOutput, error) {
	if h.svc.Capture == nil {
		return nil, huma.Error503ServiceUnavailable("capture not available")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	img, err := h.svc.Capture.Capture(ctx, input.Body.Legs)
	if err != nil {
		return nil, huma.Error500InternalServerError("capture failed", err)
	}
	return &CaptureOutput{ContentType: img.ContentType, Body: img.Data}, nil
}

type GeocodeBody struct {
	Label string `json:"label" required:"true" minLength:"1" doc:"Place label" example:"Ottawa, Canada"`
}

type GeocodeResult struct {
	Label       string          `json:"label" doc:"Resolved label"`
	Coordinates geo.Coordinates `json:"coordinates" doc:"Resolved location"`
}

func (h *APIHandler) Geocode(ctx context.Context, input *struct{ Body GeocodeBody }) (*struct{ Body GeocodeResult }, error) {
	if h.svc.Geocoder == nil {
		return nil, huma.Error503ServiceUnavailable("geocoding not configured")
	}
	c, err := h.svc.Geocoder.Resolve(ctx, input.Body.Label)
	if err != nil {
		return nil, huma.Error502BadGateway("geocode failed", err)
	}
	return &struct{ Body GeocodeResult }{Body: GeocodeResult{Label: input.Body.Label, Coordinates: c}}, nil
}

// pngDataURL inlines a capture for the UI.
func pngDataURL(data []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
}

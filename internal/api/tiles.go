package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/maptile"

	"github.com/joeblew999/plat-warroom/internal/tiler"
)

// RegisterTiles registers the GeoJSON and vector tile exports of the overlay.
func (h *APIHandler) RegisterTiles(api huma.API) {
	huma.Get(api, "/api/v1/overlay/features", h.GetFeatures, huma.OperationTags("tiles"))
	huma.Get(api, "/api/v1/overlay/tiles/{z}/{x}/{y}", h.GetTile, huma.OperationTags("tiles"))
}

type FeaturesOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

func (h *APIHandler) GetFeatures(ctx context.Context, input *struct{}) (*FeaturesOutput, error) {
	data, err := tiler.Features(h.svc.Overlay.Snapshot()).MarshalJSON()
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to encode features", err)
	}
	return &FeaturesOutput{ContentType: "application/geo+json", Body: data}, nil
}

type TileInput struct {
	Z uint32 `path:"z" maximum:"14" doc:"Zoom"`
	X uint32 `path:"x" doc:"Column"`
	Y uint32 `path:"y" doc:"Row"`
}

type TileOutput struct {
	Status          int
	ContentType     string `header:"Content-Type"`
	ContentEncoding string `header:"Content-Encoding"`
	Body            []byte
}

func (h *APIHandler) GetTile(ctx context.Context, input *TileInput) (*TileOutput, error) {
	n := uint32(1) << input.Z
	if input.X >= n || input.Y >= n {
		return nil, huma.Error404NotFound("Tile outside the world")
	}
	t := maptile.New(input.X, input.Y, maptile.Zoom(input.Z))
	data, err := tiler.Tile(tiler.Features(h.svc.Overlay.Snapshot()), t)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to encode tile", err)
	}
	if data == nil {
		return &TileOutput{Status: http.StatusNoContent}, nil
	}
	return &TileOutput{
		Status:          http.StatusOK,
		ContentType:     "application/vnd.mapbox-vector-tile",
		ContentEncoding: "gzip",
		Body:            data,
	}, nil
}

package overlay

import (
	"fmt"
	"time"

	"github.com/joeblew999/plat-warroom/internal/assets"
	"github.com/joeblew999/plat-warroom/internal/geo"
	"github.com/joeblew999/plat-warroom/internal/render"
	"github.com/joeblew999/plat-warroom/internal/service"
	"github.com/joeblew999/plat-warroom/internal/tooltip"
)

// selectionChanged flies to a new selection after the debounce, or returns
// to the overview when the selection is cleared.
func (s *Synchronizer) selectionChanged() {
	sel := s.source.Scene().Selected

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	id := ""
	if sel != nil {
		id = sel.ID
	}
	prev := s.lastSelection
	s.lastSelection = id
	if id == prev {
		s.mu.Unlock()
		return
	}
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
	if id == "" {
		s.pendingZoom = nil
		s.previous = nil
		s.mu.Unlock()
		if s.base.Loaded() {
			s.base.EaseTo(render.DefaultCamera)
		}
		return
	}
	zoom := s.cfg.SelectionZoom
	s.debounce = time.AfterFunc(s.cfg.SelectionDebounce, func() {
		if err := s.ZoomToEntity(id, zoom); err != nil {
			s.log.Warn().Err(err).Str("node", id).Msg("zoom to selection")
		}
	})
	s.mu.Unlock()
}

// ZoomToEntity flies the camera to a node. Before the base map has loaded
// the request is kept and replayed on load; a newer request replaces it.
func (s *Synchronizer) ZoomToEntity(id string, zoom float64) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if !s.base.Loaded() {
		first := s.pendingZoom == nil
		s.pendingZoom = &zoomRequest{id: id, zoom: zoom}
		s.mu.Unlock()
		if first {
			s.projector.Defer(s.replayZoom)
		}
		return nil
	}
	s.mu.Unlock()

	c, ok := s.displayCoordinates(id)
	if !ok {
		err := &Failure{Op: "zoom", Err: fmt.Errorf("%w: %s has no coordinates", ErrUnknownNode, id)}
		if s.onFailure != nil {
			s.onFailure(err)
		}
		return err
	}

	cam := s.base.Camera()
	s.mu.Lock()
	if s.previous == nil {
		s.previous = &cam
	}
	s.mu.Unlock()
	s.base.FlyTo(c.Point(), zoom)
	return nil
}

func (s *Synchronizer) replayZoom() {
	s.mu.Lock()
	req := s.pendingZoom
	s.pendingZoom = nil
	s.mu.Unlock()
	if req == nil {
		return
	}
	if err := s.ZoomToEntity(req.id, req.zoom); err != nil {
		s.log.Warn().Err(err).Str("node", req.id).Msg("deferred zoom")
	}
}

// RestorePreviousView eases back to the camera saved by the first
// ZoomToEntity, or to the overview.
func (s *Synchronizer) RestorePreviousView() {
	s.mu.Lock()
	cam := render.DefaultCamera
	if s.previous != nil {
		cam = *s.previous
		s.previous = nil
	}
	s.mu.Unlock()
	s.base.EaseTo(cam)
}

// displayCoordinates prefers the latest snapshot, then the node, then the
// resolved table.
func (s *Synchronizer) displayCoordinates(id string) (geo.Coordinates, bool) {
	if m, ok := s.Snapshot().Marker(id); ok {
		return m.Coordinates, true
	}
	n, ok := s.source.Scene().Node(id)
	if !ok {
		return geo.Coordinates{}, false
	}
	if n.HasCoordinates() {
		return *n.Coordinates, true
	}
	return s.Resolved(id)
}

// Click toggles the selection and pin of a node.
func (s *Synchronizer) Click(nodeID string) error {
	scene := s.source.Scene()
	n, ok := scene.Node(nodeID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
	}
	if scene.Selected != nil && scene.Selected.ID == n.ID {
		s.source.Select(nil)
		s.source.Pin("")
		return nil
	}
	s.source.Select(selectionOf(n))
	s.source.Pin(n.ID)
	return nil
}

// Hover forwards hover state to the source. An empty id clears it.
func (s *Synchronizer) Hover(nodeID string) error {
	if nodeID == "" {
		s.source.Hover(nil)
		return nil
	}
	n, ok := s.source.Scene().Node(nodeID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
	}
	s.source.Hover(selectionOf(n))
	return nil
}

func selectionOf(n service.Node) *service.Selection {
	return &service.Selection{
		Level:         n.Level,
		ID:            n.ID,
		ParentGroupID: n.ParentGroupID,
		SubsidiaryID:  n.SubsidiaryID,
		FactoryID:     n.FactoryID,
	}
}

// Tooltip builds the detail card for a marker of the latest snapshot.
// container and viewport are in viewport CSS pixels; marker pixels are
// relative to the container.
func (s *Synchronizer) Tooltip(nodeID string, container, viewport tooltip.Rect) (Tooltip, error) {
	m, ok := s.Snapshot().Marker(nodeID)
	if !ok {
		return Tooltip{}, fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
	}
	n, ok := s.source.Scene().Node(nodeID)
	if !ok {
		return Tooltip{}, fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
	}

	anchor := tooltip.AnchorAt(m.Pixel)
	anchor.Left += container.Left
	anchor.Top += container.Top
	bounds := tooltip.ContainerBounds(viewport, container, tooltip.Padding)

	return Tooltip{
		NodeID:      n.ID,
		Title:       m.DisplayName,
		TypeLabel:   assets.TypeLabel(n),
		Location:    assets.Location(n),
		Description: assets.Description(n),
		StatusText:  assets.StatusText(n),
		StatusClass: assets.StatusClass(n.Status),
		LogoPath:    m.LogoPath,
		Coordinates: m.Coordinates,
		Placement:   tooltip.Place(anchor, bounds, tooltip.SizeFor(bounds)),
	}, nil
}

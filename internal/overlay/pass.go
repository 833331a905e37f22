package overlay

import (
	"fmt"
	"sort"
	"strings"
	"time"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/joeblew999/plat-warroom/internal/assets"
	"github.com/joeblew999/plat-warroom/internal/geo"
	"github.com/joeblew999/plat-warroom/internal/lod"
	"github.com/joeblew999/plat-warroom/internal/service"
)

// Status colours.
const (
	ColorActive   = "#00C853"
	ColorInactive = "#D50000"
	ColorDefault  = "#0ea5e9"

	transitWidth = 1.5
	projectWidth = 2.0
)

// pass holds the inputs of one synchronization pass.
type pass struct {
	scene      service.Scene
	resolved   map[string]geo.Coordinates
	project    func(geo.Coordinates) (geo.Pixel, error)
	zoom       float64
	cfg        Config
	logos      *assets.LogoFailures
	screenshot bool

	nodes  []service.Node
	coords map[string]geo.Coordinates
	pixels map[string]geo.Pixel
	locked map[string]bool
}

type feature struct {
	route      Route
	from, to   string
	fromCoords geo.Coordinates
	toCoords   geo.Coordinates
	order      int
}

// run computes markers and routes. It does not touch shared state.
func (p *pass) run() ([]Marker, []Route, error) {
	p.coords = make(map[string]geo.Coordinates)
	p.pixels = make(map[string]geo.Pixel)
	p.locked = make(map[string]bool)

	override := p.routeCoordinates()
	for _, n := range p.scene.Nodes {
		c, ok := p.nodeCoordinates(n, override)
		if !ok {
			continue
		}
		p.nodes = append(p.nodes, n)
		p.coords[n.ID] = c
	}

	zf := p.zoomFactor()
	markers := make([]Marker, 0, len(p.nodes))
	for _, n := range p.nodes {
		px, err := p.project(p.coords[n.ID])
		if err != nil {
			return nil, nil, fmt.Errorf("project %s: %w", n.ID, err)
		}
		p.pixels[n.ID] = px
		markers = append(markers, p.marker(n, px, zf))
	}

	routes, err := p.routes()
	if err != nil {
		return nil, nil, err
	}

	for i := range markers {
		markers[i].Pixel = p.pixels[markers[i].ID]
	}
	return markers, routes, nil
}

func (p *pass) zoomFactor() float64 {
	return lod.ZoomFactor(p.zoom, p.cfg.ZoomDivisor)
}

// routeCoordinates collects route-level coordinates keyed by the node id the
// route ends at.
func (p *pass) routeCoordinates() map[string]geo.Coordinates {
	out := make(map[string]geo.Coordinates)
	put := func(id string, c *geo.Coordinates) {
		if id == "" || !geo.ValidPtr(c) {
			return
		}
		if _, ok := out[id]; !ok {
			out[id] = *c
		}
	}
	for _, r := range p.scene.ProjectRoutes {
		put(r.FromNodeID, r.FromCoordinates)
		put(r.ToNodeID, r.ToCoordinates)
	}
	for _, r := range p.scene.TransitRoutes {
		put(r.From, r.FromCoordinates)
		put(r.To, r.ToCoordinates)
	}
	return out
}

func (p *pass) nodeCoordinates(n service.Node, override map[string]geo.Coordinates) (geo.Coordinates, bool) {
	if c, ok := override[n.ID]; ok {
		return c, true
	}
	if n.HasCoordinates() {
		return *n.Coordinates, true
	}
	if c, ok := p.resolved[n.ID]; ok && c.Valid() {
		return c, true
	}
	return geo.Coordinates{}, false
}

func (p *pass) marker(n service.Node, px geo.Pixel, zf float64) Marker {
	selected := matchesSelection(n, p.scene.Selected)
	display := assets.DisplayName(n)
	logo := assets.FallbackLogo
	if p.logos != nil {
		logo = p.logos.Preferred(n.Logo, p.cfg.AssetBaseURL)
	}
	key, color := p.nodeStatus(n)

	return Marker{
		ID:           n.ID,
		Level:        n.Level,
		Pixel:        px,
		Coordinates:  p.coords[n.ID],
		LOD:          lod.Evaluate(zf, selected),
		Scale:        lod.MarkerScale(zf, n.HQ),
		DisplayName:  display,
		ShortName:    assets.ShortName(display),
		SubLabel:     assets.SubLabel(n),
		Initials:     assets.Initials(display),
		LogoPath:     logo,
		HasLogo:      logo != assets.FallbackLogo,
		StatusKey:    key,
		StatusColor:  color,
		StatusGlow:   glow(color),
		IsSelected:   selected,
		IsHovered:    matchesSelection(n, p.scene.Hovered),
		IsPinned:     p.scene.PinnedNodeID != "" && p.scene.PinnedNodeID == n.ID,
		IsHub:        n.Hub || n.Level == service.LevelParent,
		IsHQ:         n.HQ,
		ShowPinLabel: p.screenshot || lod.ShowPinLabel(zf),
	}
}

// nodeStatus colours a node by the projects that touch it: active when any
// is open, inactive when all are closed or delayed.
func (p *pass) nodeStatus(n service.Node) (string, string) {
	seen, open := false, false
	for _, r := range p.scene.ProjectRoutes {
		if !n.Matches(r.FromNodeID) && !n.Matches(r.ToNodeID) {
			continue
		}
		seen = true
		if r.Active() {
			open = true
			break
		}
	}
	switch {
	case open:
		return StatusActive, ColorActive
	case seen:
		return StatusInactive, ColorInactive
	}
	return StatusDefault, ColorDefault
}

func (p *pass) features() []*feature {
	var out []*feature
	sel := p.scene.Selected

	projects := make([]service.ProjectRoute, 0, len(p.scene.ProjectRoutes))
	for _, r := range p.scene.ProjectRoutes {
		if p.scene.Filter.Allows(r) {
			projects = append(projects, r)
		}
	}
	for _, r := range projects {
		// Project routes are stored client -> factory and drawn factory -> client.
		from, to := r.ToNodeID, r.FromNodeID
		fc, okf := p.endpointCoordinates(from, r.ToCoordinates)
		tc, okt := p.endpointCoordinates(to, r.FromCoordinates)
		if !okf || !okt {
			continue
		}
		f := &feature{from: from, to: to, fromCoords: fc, toCoords: tc, order: len(out)}
		f.route = Route{
			ID:          r.ID,
			ProjectID:   r.ProjectID,
			Kind:        KindProject,
			From:        from,
			To:          to,
			StrokeColor: projectColor(r, p.scene.Filter),
			StrokeWidth: projectWidth,
			Animated:    r.Active(),
			Highlighted: sel != nil && (refSelected(from, sel) || refSelected(to, sel)),
		}
		out = append(out, f)
	}

	for _, r := range p.scene.TransitRoutes {
		fc, okf := p.endpointCoordinates(r.From, r.FromCoordinates)
		tc, okt := p.endpointCoordinates(r.To, r.ToCoordinates)
		if !okf || !okt {
			continue
		}
		color := strings.TrimSpace(r.StrokeColor)
		if color == "" {
			color = ColorDefault
		}
		width := r.StrokeWidth
		if width <= 0 {
			width = transitWidth
		}
		f := &feature{from: r.From, to: r.To, fromCoords: fc, toCoords: tc, order: len(out)}
		f.route = Route{
			ID:          r.ID,
			Kind:        KindTransit,
			From:        r.From,
			To:          r.To,
			StrokeColor: color,
			StrokeWidth: width,
			DashArray:   r.DashArray,
			Highlighted: sel != nil && (p.refMatchesSelection(r.From, sel) || p.refMatchesSelection(r.To, sel)),
		}
		out = append(out, f)
	}

	for _, f := range out {
		f.route.BeginOffset = BeginOffset(f.route.ID, f.order)
	}
	return out
}

// endpointCoordinates prefers the route's own coordinates over the node graph.
func (p *pass) endpointCoordinates(ref string, own *geo.Coordinates) (geo.Coordinates, bool) {
	if geo.ValidPtr(own) {
		return *own, true
	}
	if n, ok := p.lookup(ref); ok {
		return p.coords[n.ID], true
	}
	return geo.Coordinates{}, false
}

// lookup finds the valid node a route endpoint refers to: by id, then by
// factory, subsidiary, parent or client id, then without a "source-" prefix,
// then by name.
func (p *pass) lookup(ref string) (service.Node, bool) {
	if ref == "" {
		return service.Node{}, false
	}
	for _, n := range p.nodes {
		if n.ID == ref {
			return n, true
		}
	}
	for _, n := range p.nodes {
		if n.Matches(ref) {
			return n, true
		}
	}
	if trimmed := strings.TrimPrefix(ref, "source-"); trimmed != ref {
		return p.lookup(trimmed)
	}
	for _, n := range p.nodes {
		if strings.EqualFold(n.Name, ref) || strings.EqualFold(n.Company, ref) {
			return n, true
		}
	}
	return service.Node{}, false
}

func (p *pass) endpointPixel(ref string, c geo.Coordinates) (geo.Pixel, error) {
	if px, ok := p.pixels[ref]; ok {
		return px, nil
	}
	if n, ok := p.lookup(ref); ok {
		if px, ok := p.pixels[n.ID]; ok {
			return px, nil
		}
	}
	return p.project(c)
}

func (p *pass) lock(ref string, px geo.Pixel) {
	if !p.locked[ref] {
		p.locked[ref] = true
		p.pixels[ref] = px
	}
	if n, ok := p.lookup(ref); ok && !p.locked[n.ID] {
		p.locked[n.ID] = true
		p.pixels[n.ID] = px
	}
}

func (p *pass) routes() ([]Route, error) {
	feats := p.features()

	groups := make(map[string][]*feature)
	var keys []string
	for _, f := range feats {
		k := f.from + "\x00" + f.to
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], f)
	}
	// Bundles lock pixels in ascending order of their smallest route id.
	minID := func(k string) string {
		m := groups[k][0].route.ID
		for _, f := range groups[k][1:] {
			if f.route.ID < m {
				m = f.route.ID
			}
		}
		return m
	}
	sort.SliceStable(keys, func(i, j int) bool { return minID(keys[i]) < minID(keys[j]) })

	for _, k := range keys {
		bundle := groups[k]
		size := len(bundle)
		for i, f := range bundle {
			start, err := p.endpointPixel(f.from, f.fromCoords)
			if err != nil {
				return nil, fmt.Errorf("route %s: %w", f.route.ID, err)
			}
			end, err := p.endpointPixel(f.to, f.toCoords)
			if err != nil {
				return nil, fmt.Errorf("route %s: %w", f.route.ID, err)
			}
			f.route.Start, f.route.End = start, end
			f.route.BundleIndex, f.route.BundleSize = i, size
			f.route.Path = p.cfg.Paths.Build(start, end, i, size)
		}
		rep := bundle[size/2]
		p.lock(rep.from, rep.route.Start)
		p.lock(rep.to, rep.route.End)
	}

	out := make([]Route, len(feats))
	for i, f := range feats {
		out[i] = f.route
	}
	return out, nil
}

// BeginOffset derives a stable animation phase from a route id and its index.
func BeginOffset(routeID string, index int) string {
	key := fmt.Sprintf("%s-%d", routeID, index)
	hash := 0
	for _, c := range key {
		hash = (hash*31 + int(c)) % 6000
	}
	return fmt.Sprintf("%.2fs", (time.Duration(hash) * time.Millisecond).Seconds())
}

func projectColor(r service.ProjectRoute, f service.StatusFilter) string {
	switch f {
	case service.FilterActive:
		return ColorActive
	case service.FilterInactive:
		return ColorInactive
	}
	if r.Active() {
		return ColorActive
	}
	return ColorInactive
}

func glow(hex string) string {
	c, err := colorful.Hex(hex)
	if err != nil {
		return "rgba(14, 165, 233, 0.45)"
	}
	r, g, b := c.RGB255()
	return fmt.Sprintf("rgba(%d, %d, %d, 0.45)", r, g, b)
}

func matchesSelection(n service.Node, sel *service.Selection) bool {
	if sel == nil || sel.ID == "" {
		return false
	}
	if sel.Level != "" && sel.Level != n.Level {
		return false
	}
	return n.ID == sel.ID || (n.CompanyID != "" && n.CompanyID == sel.ID)
}

func refSelected(ref string, sel *service.Selection) bool {
	return ref != "" && (ref == sel.ID || ref == sel.FactoryID)
}

func (p *pass) refMatchesSelection(ref string, sel *service.Selection) bool {
	if refSelected(ref, sel) {
		return true
	}
	n, ok := p.lookup(ref)
	return ok && n.Matches(sel.ID)
}

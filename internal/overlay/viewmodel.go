package overlay

import (
	"time"

	"github.com/joeblew999/plat-warroom/internal/geo"
	"github.com/joeblew999/plat-warroom/internal/lod"
	"github.com/joeblew999/plat-warroom/internal/render"
	"github.com/joeblew999/plat-warroom/internal/service"
	"github.com/joeblew999/plat-warroom/internal/tooltip"
)

// Route kinds.
const (
	KindProject = "project"
	KindTransit = "transit"
)

// Marker status keys.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusDefault  = "default"
)

// Marker is everything needed to draw one entity.
type Marker struct {
	ID           string          `json:"id" doc:"Entity identifier"`
	Level        service.Level   `json:"level" doc:"Hierarchy level"`
	Pixel        geo.Pixel       `json:"pixel" doc:"Position in container pixels"`
	Coordinates  geo.Coordinates `json:"coordinates" doc:"Display coordinates"`
	LOD          lod.State       `json:"lod" doc:"Level of detail"`
	Scale        float64         `json:"scale" doc:"Marker scale"`
	DisplayName  string          `json:"displayName"`
	ShortName    string          `json:"shortName"`
	SubLabel     string          `json:"subLabel"`
	Initials     string          `json:"initials"`
	LogoPath     string          `json:"logoPath"`
	HasLogo      bool            `json:"hasLogo"`
	StatusKey    string          `json:"statusKey" enum:"active,inactive,default"`
	StatusColor  string          `json:"statusColor"`
	StatusGlow   string          `json:"statusGlow"`
	IsSelected   bool            `json:"isSelected"`
	IsHovered    bool            `json:"isHovered"`
	IsPinned     bool            `json:"isPinned"`
	IsHub        bool            `json:"isHub"`
	IsHQ         bool            `json:"isHQ"`
	ShowPinLabel bool            `json:"showPinLabel" doc:"Draw the pin label next to the marker"`
}

// Route is one drawable curve.
type Route struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"projectId,omitempty"`
	Kind        string    `json:"kind" enum:"project,transit"`
	From        string    `json:"from" doc:"Origin entity reference"`
	To          string    `json:"to" doc:"Destination entity reference"`
	Path        string    `json:"path" doc:"SVG path command"`
	Start       geo.Pixel `json:"start"`
	End         geo.Pixel `json:"end"`
	BundleIndex int       `json:"bundleIndex"`
	BundleSize  int       `json:"bundleSize"`
	Highlighted bool      `json:"highlighted"`
	StrokeColor string    `json:"strokeColor"`
	StrokeWidth float64   `json:"strokeWidth"`
	DashArray   string    `json:"dashArray,omitempty"`
	Animated    bool      `json:"animated"`
	BeginOffset string    `json:"beginOffset" doc:"Animation phase, e.g. 1.23s"`
}

// Snapshot is the result of one synchronization pass. It is never mutated
// after publication.
type Snapshot struct {
	Generation uint64          `json:"generation"`
	Zoom       float64         `json:"zoom"`
	ZoomFactor float64         `json:"zoomFactor"`
	Camera     render.Camera   `json:"camera"`
	Viewport   render.Viewport `json:"viewport"`
	Markers    []Marker        `json:"markers"`
	Routes     []Route         `json:"routes"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Marker returns the marker for id.
func (s *Snapshot) Marker(id string) (Marker, bool) {
	if s == nil {
		return Marker{}, false
	}
	for _, m := range s.Markers {
		if m.ID == id {
			return m, true
		}
	}
	return Marker{}, false
}

// Tooltip describes the detail card for a marker.
type Tooltip struct {
	NodeID      string            `json:"nodeId"`
	Title       string            `json:"title"`
	TypeLabel   string            `json:"typeLabel"`
	Location    string            `json:"location"`
	Description string            `json:"description"`
	StatusText  string            `json:"statusText"`
	StatusClass string            `json:"statusClass"`
	LogoPath    string            `json:"logoPath"`
	Coordinates geo.Coordinates   `json:"coordinates"`
	Placement   tooltip.Placement `json:"placement"`
}

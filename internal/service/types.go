// Package service holds the war-room scene: entities, routes and the
// selection state the overlay engine renders.
package service

import (
	"strings"

	"github.com/joeblew999/plat-warroom/internal/geo"
)

// Level is the tier of an entity in the company hierarchy.
type Level string

const (
	LevelParent     Level = "parent"
	LevelSubsidiary Level = "subsidiary"
	LevelFactory    Level = "factory"
	LevelClient     Level = "client"
)

// Node is a geographic entity drawn as a marker.
// Huma reads the tags for OpenAPI and validation; yaml tags serve scenario files.
type Node struct {
	ID            string           `json:"id" yaml:"id" doc:"Unique entity identifier" example:"fleetzero-toronto"`
	Name          string           `json:"name" yaml:"name" required:"true" minLength:"1" doc:"Entity name" example:"Toronto Works"`
	Company       string           `json:"company,omitempty" yaml:"company,omitempty" doc:"Company display name" example:"FleetZero"`
	CompanyID     string           `json:"companyId,omitempty" yaml:"companyId,omitempty" doc:"Owning company identifier"`
	City          string           `json:"city,omitempty" yaml:"city,omitempty" doc:"City" example:"Toronto"`
	Country       string           `json:"country,omitempty" yaml:"country,omitempty" doc:"Country" example:"Canada"`
	Coordinates   *geo.Coordinates `json:"coordinates,omitempty" yaml:"coordinates,omitempty" doc:"Location; resolved from city and country when missing"`
	Status        string           `json:"status,omitempty" yaml:"status,omitempty" enum:"ACTIVE,INACTIVE" default:"ACTIVE" doc:"Operational status"`
	Level         Level            `json:"level" yaml:"level" enum:"parent,subsidiary,factory,client" default:"factory" doc:"Hierarchy level"`
	ParentGroupID string           `json:"parentGroupId,omitempty" yaml:"parentGroupId,omitempty" doc:"Parent group identifier"`
	SubsidiaryID  string           `json:"subsidiaryId,omitempty" yaml:"subsidiaryId,omitempty" doc:"Subsidiary identifier"`
	FactoryID     string           `json:"factoryId,omitempty" yaml:"factoryId,omitempty" doc:"Factory identifier"`
	ClientID      string           `json:"clientId,omitempty" yaml:"clientId,omitempty" doc:"Client identifier"`
	Logo          string           `json:"logo,omitempty" yaml:"logo,omitempty" doc:"Logo URL or asset file name" example:"logos/fleetzero.svg"`
	HQ            bool             `json:"hq,omitempty" yaml:"hq,omitempty" doc:"Group headquarters, drawn larger"`
	Hub           bool             `json:"hub,omitempty" yaml:"hub,omitempty" doc:"Regional hub"`
	Description   string           `json:"description,omitempty" yaml:"description,omitempty" doc:"Free-text description shown in the tooltip"`
	FacilityType  string           `json:"facilityType,omitempty" yaml:"facilityType,omitempty" doc:"Facility type label"`
	FullAddress   string           `json:"fullAddress,omitempty" yaml:"fullAddress,omitempty" doc:"Postal address"`
	Notes         string           `json:"notes,omitempty" yaml:"notes,omitempty" doc:"Operator notes"`
}

// Active reports whether the node status is active. A missing status counts
// as active.
func (n Node) Active() bool {
	s := strings.ToUpper(strings.TrimSpace(n.Status))
	return s == "" || s == "ACTIVE" || s == "ONLINE"
}

// HasCoordinates reports whether the node can be placed without geocoding.
func (n Node) HasCoordinates() bool {
	return geo.ValidPtr(n.Coordinates)
}

// Matches reports whether ref names this node directly or through one of
// its linkage identifiers.
func (n Node) Matches(ref string) bool {
	if ref == "" {
		return false
	}
	return n.ID == ref || n.FactoryID == ref || n.SubsidiaryID == ref || n.ParentGroupID == ref || n.ClientID == ref
}

// TransitRoute is a logistics link between two entities.
type TransitRoute struct {
	ID              string           `json:"id" yaml:"id" doc:"Route identifier" example:"toronto-ottawa"`
	From            string           `json:"from" yaml:"from" required:"true" doc:"Origin entity id or alias"`
	To              string           `json:"to" yaml:"to" required:"true" doc:"Destination entity id or alias"`
	FromCoordinates *geo.Coordinates `json:"fromCoordinates,omitempty" yaml:"fromCoordinates,omitempty" doc:"Origin location override"`
	ToCoordinates   *geo.Coordinates `json:"toCoordinates,omitempty" yaml:"toCoordinates,omitempty" doc:"Destination location override"`
	StrokeColor     string           `json:"strokeColor,omitempty" yaml:"strokeColor,omitempty" doc:"Stroke colour (CSS)" example:"#0ea5e9"`
	StrokeWidth     float64          `json:"strokeWidth,omitempty" yaml:"strokeWidth,omitempty" minimum:"0" doc:"Stroke width in pixels"`
	DashArray       string           `json:"dashArray,omitempty" yaml:"dashArray,omitempty" doc:"SVG dash array" example:"6 4"`
}

// Project route statuses.
const (
	ProjectOpen    = "Open"
	ProjectClosed  = "Closed"
	ProjectDelayed = "Delayed"
)

// ProjectRoute links a client to the factory delivering a project for it.
type ProjectRoute struct {
	ID              string           `json:"id" yaml:"id" doc:"Route identifier"`
	ProjectID       string           `json:"projectId" yaml:"projectId" doc:"Project identifier"`
	FromNodeID      string           `json:"fromNodeId" yaml:"fromNodeId" required:"true" doc:"Client entity id"`
	ToNodeID        string           `json:"toNodeId" yaml:"toNodeId" required:"true" doc:"Factory entity id"`
	Status          string           `json:"status" yaml:"status" enum:"Open,Closed,Delayed" default:"Open" doc:"Project status"`
	FromCoordinates *geo.Coordinates `json:"fromCoordinates,omitempty" yaml:"fromCoordinates,omitempty" doc:"Client location override"`
	ToCoordinates   *geo.Coordinates `json:"toCoordinates,omitempty" yaml:"toCoordinates,omitempty" doc:"Factory location override"`
}

// Active reports whether the project is open.
func (r ProjectRoute) Active() bool {
	return r.Status == ProjectOpen
}

// Selection identifies one entity.
type Selection struct {
	Level         Level  `json:"level" enum:"parent,subsidiary,factory,client" doc:"Hierarchy level"`
	ID            string `json:"id" required:"true" doc:"Entity identifier"`
	ParentGroupID string `json:"parentGroupId,omitempty" doc:"Parent group identifier"`
	SubsidiaryID  string `json:"subsidiaryId,omitempty" doc:"Subsidiary identifier"`
	FactoryID     string `json:"factoryId,omitempty" doc:"Factory identifier"`
}

// StatusFilter narrows which project routes are drawn.
type StatusFilter string

const (
	FilterAll      StatusFilter = "all"
	FilterActive   StatusFilter = "active"
	FilterInactive StatusFilter = "inactive"
)

// Allows reports whether a project route passes the filter.
func (f StatusFilter) Allows(r ProjectRoute) bool {
	switch f {
	case FilterActive:
		return r.Active()
	case FilterInactive:
		return !r.Active()
	default:
		return true
	}
}

// Scene is an immutable snapshot of everything the overlay draws.
type Scene struct {
	Nodes         []Node         `json:"nodes" yaml:"nodes"`
	TransitRoutes []TransitRoute `json:"transitRoutes" yaml:"transitRoutes"`
	ProjectRoutes []ProjectRoute `json:"projectRoutes" yaml:"projectRoutes"`
	Selected      *Selection     `json:"selected,omitempty" yaml:"-"`
	Hovered       *Selection     `json:"hovered,omitempty" yaml:"-"`
	PinnedNodeID  string         `json:"pinnedNodeId,omitempty" yaml:"-"`
	Filter        StatusFilter   `json:"filter" yaml:"filter,omitempty"`
	Theme         string         `json:"theme" yaml:"theme,omitempty"`
}

// Node returns the node with id.
func (s Scene) Node(id string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

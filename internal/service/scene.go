package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// SceneService owns the war-room scene and publishes every change on its bus.
// Entities and routes are persisted to the data directory; selection, hover
// and pin state live in memory only.
type SceneService struct {
	dataDir string
	bus     *EventBus
	mu      sync.RWMutex
	scene   Scene
}

// sceneFile is the persisted part of a Scene.
type sceneFile struct {
	Nodes         []Node         `json:"nodes" yaml:"nodes"`
	TransitRoutes []TransitRoute `json:"transitRoutes" yaml:"transitRoutes"`
	ProjectRoutes []ProjectRoute `json:"projectRoutes" yaml:"projectRoutes"`
	Filter        StatusFilter   `json:"filter,omitempty" yaml:"filter,omitempty"`
	Theme         string         `json:"theme,omitempty" yaml:"theme,omitempty"`
}

// NewSceneService creates a scene service. An empty dataDir disables
// persistence.
func NewSceneService(dataDir string, bus *EventBus) *SceneService {
	if bus == nil {
		bus = NewEventBus()
	}
	s := &SceneService{
		dataDir: dataDir,
		bus:     bus,
		scene:   Scene{Filter: FilterAll, Theme: "light"},
	}
	s.loadFromDisk()
	return s
}

// Bus returns the event bus changes are published on.
func (s *SceneService) Bus() *EventBus {
	return s.bus
}

// Scene returns a snapshot that later mutations do not affect.
func (s *SceneService) Scene() Scene {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scene.clone()
}

// Nodes returns all nodes.
func (s *SceneService) Nodes() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneNodes(s.scene.Nodes)
}

// GetNode returns a node by ID.
func (s *SceneService) GetNode(id string) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scene.Node(id)
}

// CreateNode adds a node, deriving its ID from the name when empty.
func (s *SceneService) CreateNode(n Node) (Node, error) {
	s.mu.Lock()
	if n.ID == "" {
		n.ID = generateID(n.Name)
	}
	if n.ID == "" {
		s.mu.Unlock()
		return Node{}, fmt.Errorf("node needs an id or a name")
	}
	if _, exists := s.scene.Node(n.ID); exists {
		s.mu.Unlock()
		return Node{}, fmt.Errorf("node with ID %q already exists", n.ID)
	}
	if n.Level == "" {
		n.Level = LevelFactory
	}
	s.scene.Nodes = append(s.scene.Nodes, n)
	err := s.saveToDisk()
	s.mu.Unlock()
	if err != nil {
		return Node{}, err
	}
	s.bus.Publish(Event{Resource: ResourceNodes, Action: ActionCreated, ID: n.ID})
	return n, nil
}

// UpdateNode replaces a node by ID.
func (s *SceneService) UpdateNode(id string, n Node) (Node, error) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return Node{}, fmt.Errorf("node %q not found", id)
	}
	n.ID = id
	if n.Level == "" {
		n.Level = s.scene.Nodes[idx].Level
	}
	s.scene.Nodes[idx] = n
	err := s.saveToDisk()
	s.mu.Unlock()
	if err != nil {
		return Node{}, err
	}
	s.bus.Publish(Event{Resource: ResourceNodes, Action: ActionUpdated, ID: id})
	return n, nil
}

// DeleteNode removes a node by ID.
func (s *SceneService) DeleteNode(id string) error {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("node %q not found", id)
	}
	s.scene.Nodes = append(s.scene.Nodes[:idx:idx], s.scene.Nodes[idx+1:]...)
	err := s.saveToDisk()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.bus.Publish(Event{Resource: ResourceNodes, Action: ActionDeleted, ID: id})
	return nil
}

// SetTransitRoutes replaces the transit routes.
func (s *SceneService) SetTransitRoutes(routes []TransitRoute) error {
	s.mu.Lock()
	s.scene.TransitRoutes = append([]TransitRoute(nil), routes...)
	err := s.saveToDisk()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.bus.Publish(Event{Resource: ResourceRoutes, Action: ActionReplaced, ID: "transit"})
	return nil
}

// SetProjectRoutes replaces the project routes.
func (s *SceneService) SetProjectRoutes(routes []ProjectRoute) error {
	s.mu.Lock()
	s.scene.ProjectRoutes = append([]ProjectRoute(nil), routes...)
	err := s.saveToDisk()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.bus.Publish(Event{Resource: ResourceRoutes, Action: ActionReplaced, ID: "project"})
	return nil
}

// Import replaces entities, routes, filter and theme with those of sc.
func (s *SceneService) Import(sc Scene) error {
	s.mu.Lock()
	s.scene.Nodes = cloneNodes(sc.Nodes)
	s.scene.TransitRoutes = append([]TransitRoute(nil), sc.TransitRoutes...)
	s.scene.ProjectRoutes = append([]ProjectRoute(nil), sc.ProjectRoutes...)
	if sc.Filter != "" {
		s.scene.Filter = sc.Filter
	}
	if sc.Theme != "" {
		s.scene.Theme = sc.Theme
	}
	err := s.saveToDisk()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.bus.Publish(Event{Resource: ResourceNodes, Action: ActionReplaced})
	s.bus.Publish(Event{Resource: ResourceRoutes, Action: ActionReplaced})
	return nil
}

// Select sets or, with nil, clears the selected entity.
func (s *SceneService) Select(sel *Selection) {
	s.mu.Lock()
	s.scene.Selected = cloneSelection(sel)
	s.mu.Unlock()
	s.bus.Publish(Event{Resource: ResourceSelection, Action: ActionUpdated, ID: selectionID(sel)})
}

// Hover sets or, with nil, clears the hovered entity.
func (s *SceneService) Hover(sel *Selection) {
	s.mu.Lock()
	s.scene.Hovered = cloneSelection(sel)
	s.mu.Unlock()
	s.bus.Publish(Event{Resource: ResourceHover, Action: ActionUpdated, ID: selectionID(sel)})
}

// Pin pins the tooltip of a node, or unpins with "".
func (s *SceneService) Pin(nodeID string) {
	s.mu.Lock()
	s.scene.PinnedNodeID = nodeID
	s.mu.Unlock()
	s.bus.Publish(Event{Resource: ResourcePin, Action: ActionUpdated, ID: nodeID})
}

// SetFilter changes the project status filter.
func (s *SceneService) SetFilter(f StatusFilter) {
	s.mu.Lock()
	s.scene.Filter = f
	s.saveToDisk()
	s.mu.Unlock()
	s.bus.Publish(Event{Resource: ResourceFilter, Action: ActionUpdated, ID: string(f)})
}

// SetTheme changes the map theme.
func (s *SceneService) SetTheme(theme string) {
	s.mu.Lock()
	s.scene.Theme = theme
	s.saveToDisk()
	s.mu.Unlock()
	s.bus.Publish(Event{Resource: ResourceTheme, Action: ActionUpdated, ID: theme})
}

// LoadScenario reads a YAML scenario file.
func LoadScenario(path string) (Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scene{}, err
	}
	var f sceneFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Scene{}, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	sc := Scene{
		Nodes:         f.Nodes,
		TransitRoutes: f.TransitRoutes,
		ProjectRoutes: f.ProjectRoutes,
		Filter:        f.Filter,
		Theme:         f.Theme,
	}
	for i := range sc.Nodes {
		if sc.Nodes[i].ID == "" {
			sc.Nodes[i].ID = generateID(sc.Nodes[i].Name)
		}
		if sc.Nodes[i].Level == "" {
			sc.Nodes[i].Level = LevelFactory
		}
	}
	return sc, nil
}

func (s *SceneService) indexOf(id string) int {
	for i, n := range s.scene.Nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// configFile returns the path to the scene file.
func (s *SceneService) configFile() string {
	return filepath.Join(s.dataDir, "scene.json")
}

// loadFromDisk loads the scene from disk.
func (s *SceneService) loadFromDisk() {
	if s.dataDir == "" {
		return
	}
	data, err := os.ReadFile(s.configFile())
	if err != nil {
		return // File doesn't exist yet, start empty
	}

	var f sceneFile
	if err := json.Unmarshal(data, &f); err != nil {
		return // Invalid JSON, start empty
	}

	s.scene.Nodes = f.Nodes
	s.scene.TransitRoutes = f.TransitRoutes
	s.scene.ProjectRoutes = f.ProjectRoutes
	if f.Filter != "" {
		s.scene.Filter = f.Filter
	}
	if f.Theme != "" {
		s.scene.Theme = f.Theme
	}
}

// saveToDisk persists the scene. Callers hold the lock.
func (s *SceneService) saveToDisk() error {
	if s.dataDir == "" {
		return nil
	}
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(sceneFile{
		Nodes:         s.scene.Nodes,
		TransitRoutes: s.scene.TransitRoutes,
		ProjectRoutes: s.scene.ProjectRoutes,
		Filter:        s.scene.Filter,
		Theme:         s.scene.Theme,
	}, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.configFile(), data, 0644)
}

func (sc Scene) clone() Scene {
	out := sc
	out.Nodes = cloneNodes(sc.Nodes)
	out.TransitRoutes = append([]TransitRoute(nil), sc.TransitRoutes...)
	out.ProjectRoutes = append([]ProjectRoute(nil), sc.ProjectRoutes...)
	out.Selected = cloneSelection(sc.Selected)
	out.Hovered = cloneSelection(sc.Hovered)
	return out
}

func cloneNodes(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		if n.Coordinates != nil {
			c := *n.Coordinates
			n.Coordinates = &c
		}
		out[i] = n
	}
	return out
}

func cloneSelection(sel *Selection) *Selection {
	if sel == nil {
		return nil
	}
	c := *sel
	return &c
}

func selectionID(sel *Selection) string {
	if sel == nil {
		return ""
	}
	return sel.ID
}

// generateID creates a URL-safe ID from a name.
func generateID(name string) string {
	id := strings.ToLower(name)
	id = strings.ReplaceAll(id, " ", "_")
	// Remove any characters that aren't alphanumeric or underscore
	var result strings.Builder
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			result.WriteRune(r)
		}
	}
	return result.String()
}

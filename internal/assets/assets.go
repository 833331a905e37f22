// Package assets derives marker labels and logo locations for entities.
package assets

import (
	"fmt"
	"strings"
	"sync"

	"github.com/joeblew999/plat-warroom/internal/service"
)

// FallbackLogo is drawn when no logo candidate can be loaded.
const FallbackLogo = "/assets/images/svgs/user.svg"

const (
	shortNameMax = 18
	subLabelMax  = 28
)

// DisplayName is the upper-cased company, name or city of n.
func DisplayName(n service.Node) string {
	name := firstNonEmpty(n.Company, n.Name, n.City, "Company")
	return strings.ToUpper(strings.TrimSpace(name))
}

// ShortName truncates a display name for compact markers.
func ShortName(display string) string {
	return truncate(display, shortNameMax)
}

// SubLabel is "City / Active" for full-detail markers.
func SubLabel(n service.Node) string {
	place := strings.TrimSpace(n.City)
	if place == "" {
		place = "Station"
	}
	return truncate(fmt.Sprintf("%s / %s", place, StatusText(n)), subLabelMax)
}

// StatusText is "Active" or "Inactive".
func StatusText(n service.Node) string {
	if n.Active() {
		return "Active"
	}
	return "Inactive"
}

// StatusClass is the CSS class of a status badge.
func StatusClass(status string) string {
	s := strings.ToUpper(strings.TrimSpace(status))
	switch s {
	case "", "ACTIVE", "ONLINE":
		return "status-active"
	case "INACTIVE", "OFFLINE":
		return "status-inactive"
	}
	return "status-" + strings.Join(strings.Fields(strings.ToLower(s)), "-")
}

// Initials are the first letters of the first two words of display.
func Initials(display string) string {
	var b strings.Builder
	for i, w := range strings.Fields(display) {
		if i == 2 {
			break
		}
		b.WriteString(strings.ToUpper(string([]rune(w)[:1])))
	}
	return b.String()
}

// TypeLabel describes the level of n.
func TypeLabel(n service.Node) string {
	switch n.Level {
	case service.LevelParent:
		return "Hub / Group HQ"
	case service.LevelSubsidiary:
		return "Subsidiary / Regional Hub"
	case service.LevelClient:
		return "Client Site"
	default:
		return "Factory / Production Site"
	}
}

// Location is "City, Country", or whichever part is known.
func Location(n service.Node) string {
	city, country := strings.TrimSpace(n.City), strings.TrimSpace(n.Country)
	switch {
	case city != "" && country != "":
		return city + ", " + country
	case country != "":
		return country
	default:
		return city
	}
}

// Description is the tooltip blurb for n.
func Description(n service.Node) string {
	if d := strings.TrimSpace(n.Description); d != "" {
		return d
	}
	name := DisplayName(n)
	facility := firstNonEmpty(n.FacilityType, TypeLabel(n))
	notes := ""
	if n.Notes != "" {
		notes = " // " + n.Notes
	}
	if loc := Location(n); loc != "" {
		return fmt.Sprintf("%s (%s) located in %s.%s", name, facility, loc, notes)
	}
	return fmt.Sprintf("%s (%s) location pending.%s", name, facility, notes)
}

// LogoPaths lists the locations to try for a logo source, in order.
// Absolute, relative and inline sources are used as given.
func LogoPaths(source, baseURL string) []string {
	s := strings.TrimSpace(source)
	if s == "" {
		return nil
	}
	for _, prefix := range []string{"data:", "blob:", "http://", "https://", "/", "./", "../"} {
		if strings.HasPrefix(s, prefix) {
			return []string{s}
		}
	}
	base := strings.TrimRight(baseURL, "/")
	return []string{
		base + "/assets/images/" + s,
		"/assets/images/" + s,
		"./assets/images/" + s,
		"assets/images/" + s,
	}
}

// LogoFailures remembers logo locations that failed to load. It is shared by
// every marker for the life of the process.
type LogoFailures struct {
	mu     sync.RWMutex
	failed map[string]struct{}
}

// NewLogoFailures returns an empty cache.
func NewLogoFailures() *LogoFailures {
	return &LogoFailures{failed: make(map[string]struct{})}
}

// Mark records path as failed. It reports whether path was new.
func (f *LogoFailures) Mark(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.failed[path]; ok {
		return false
	}
	f.failed[path] = struct{}{}
	return true
}

// Failed reports whether path is known to fail.
func (f *LogoFailures) Failed(path string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.failed[path]
	return ok
}

// Preferred returns the first candidate for source that has not failed, or
// FallbackLogo.
func (f *LogoFailures) Preferred(source, baseURL string) string {
	for _, p := range LogoPaths(source, baseURL) {
		if !f.Failed(p) {
			return p
		}
	}
	return FallbackLogo
}

// Next returns the first candidate after path that has not failed, or
// FallbackLogo.
func (f *LogoFailures) Next(source, baseURL, path string) string {
	paths := LogoPaths(source, baseURL)
	start := 0
	for i, p := range paths {
		if p == path {
			start = i + 1
			break
		}
	}
	for _, p := range paths[start:] {
		if !f.Failed(p) {
			return p
		}
	}
	return FallbackLogo
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

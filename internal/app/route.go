package app

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Route is one screen of the single-page client.
type Route string

const (
	RouteHome     Route = "home"
	RouteCounter  Route = "counter"
	RouteGallery  Route = "cats"
	RouteGames    Route = "games"
	RouteAbout    Route = "about"
	RouteNotFound Route = "not_found"
)

// RouteInfo is a route table row.
type RouteInfo struct {
	Route Route  `json:"route"`
	Hash  string `json:"hash"`
	Title string `json:"title"`
}

var routeTable = []RouteInfo{
	{RouteHome, "#/", "Home"},
	{RouteCounter, "#/counter", "Counter"},
	{RouteGallery, "#/cats", "Cats"},
	{RouteGames, "#/games", "Games"},
	{RouteAbout, "#/about", "About"},
}

const notFoundHash = "#/404"

// Routes returns the navigable routes in menu order.
func Routes() []RouteInfo {
	return append([]RouteInfo(nil), routeTable...)
}

// RouteFromHash maps a URL fragment to a route. Unknown fragments map to
// RouteNotFound rather than failing.
func RouteFromHash(hash string) Route {
	switch hash {
	case "", "#", "#/":
		return RouteHome
	}
	for _, r := range routeTable {
		if r.Hash == hash {
			return r.Route
		}
	}
	return RouteNotFound
}

// ParseRoute accepts a route name ("games") or a hash ("#/games").
func ParseRoute(s string) Route {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") || s == "" {
		return RouteFromHash(s)
	}
	for _, r := range routeTable {
		if string(r.Route) == s {
			return r.Route
		}
	}
	return RouteNotFound
}

// Hash is the canonical fragment for the route.
func (r Route) Hash() string {
	for _, info := range routeTable {
		if info.Route == r {
			return info.Hash
		}
	}
	return notFoundHash
}

// SuggestRoute finds the known hash closest to an unrecognized one, if any is
// within two edits.
func SuggestRoute(hash string) (Route, bool) {
	const maxDistance = 2
	needle := strings.ToLower(strings.TrimSpace(hash))
	if needle == "" {
		return "", false
	}

	best, bestDist := Route(""), maxDistance+1
	for _, r := range routeTable {
		if r.Route == RouteHome {
			continue
		}
		if d := levenshtein.ComputeDistance(needle, r.Hash); d < bestDist {
			best, bestDist = r.Route, d
		}
	}
	if bestDist > maxDistance {
		return "", false
	}
	return best, true
}

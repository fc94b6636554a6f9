package api

import "github.com/hazyhaar/creatorsforacause/horosafe"

// Endpoints is the development/production base URL pair.
type Endpoints struct {
	Production  string `yaml:"production"`
	Development string `yaml:"development"`
}

// DefaultEndpoints are the public deployment and the local dev server.
var DefaultEndpoints = Endpoints{
	Production:  "https://creatorsforacause.fly.dev",
	Development: "http://localhost:8080",
}

// BaseURL picks the development endpoint when host is local (localhost, a
// loopback IP or anything containing "127.0.0"), production otherwise.
// Empty fields of eps fall back to DefaultEndpoints.
func BaseURL(host string, eps Endpoints) string {
	if eps.Production == "" {
		eps.Production = DefaultEndpoints.Production
	}
	if eps.Development == "" {
		eps.Development = DefaultEndpoints.Development
	}
	if horosafe.IsLoopbackHost(host) {
		return eps.Development
	}
	return eps.Production
}

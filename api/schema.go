package api

import (
	"github.com/google/jsonschema-go/jsonschema"
)

func str() *jsonschema.Schema { return &jsonschema.Schema{Type: "string"} }

// Each call returns a fresh schema: a resolved schema must form a tree,
// so youtube and twitch cannot share one node.
func detailsSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Types: []string{"object", "null"},
		Properties: map[string]*jsonschema.Schema{
			"href":       str(),
			"title":      str(),
			"start_time": str(),
			"viewers":    str(),
		},
		Required: []string{"href", "title", "start_time", "viewers"},
	}
}

func streamListSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"updated": str(),
			"streams": {
				Type:                 "object",
				AdditionalProperties: detailsSchema(),
			},
		},
		Required: []string{"updated", "streams"},
	}
}

// fundraiserSchema validates the enveloped /fundraiser body.
var fundraiserSchema = mustResolve(&jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"data": {
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"amountRaised":  {Type: "number"},
				"causeCurrency": str(),
			},
			Required: []string{"amountRaised", "causeCurrency"},
		},
	},
	Required: []string{"data"},
})

// streamsSchema validates the bare /streams body.
var streamsSchema = mustResolve(&jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"youtube": streamListSchema(),
		"twitch":  streamListSchema(),
	},
	Required: []string{"youtube", "twitch"},
})

func mustResolve(s *jsonschema.Schema) *jsonschema.Resolved {
	r, err := s.Resolve(nil)
	if err != nil {
		panic("api: resolve schema: " + err.Error())
	}
	return r
}

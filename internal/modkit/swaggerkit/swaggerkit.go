// Package swaggerkit serves the API reference: the embedded OpenAPI document
// and Swagger UI on top of it
package swaggerkit

import (
	_ "embed"
	"encoding/json"
	"net/http"

	"picktrack/internal/core/version"
	perr "picktrack/internal/platform/errors"
	phttp "picktrack/internal/platform/net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

//go:embed openapi.json
var openapiDoc []byte

// Options for Mount
type Options struct {
	Enabled bool
	// TitleSuffix tags the docs title, e.g. with the device the API runs on
	TitleSuffix string
	// Server is the base url operations are relative to, default /api/v1
	Server string
}

// Mount serves /api/docs when enabled; the document is rendered once and a broken one fails boot
func Mount(r phttp.Router, opt Options) error {
	if !opt.Enabled {
		return nil
	}
	doc, err := render(openapiDoc, opt)
	if err != nil {
		return err
	}
	r.Get("/api/docs", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/api/docs/", http.StatusPermanentRedirect)
	})
	r.Get("/api/docs/doc.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(doc)
	})
	r.Handle("/api/docs/*", httpSwagger.Handler(
		httpSwagger.InstanceName("picktrack"),
		httpSwagger.URL("/api/docs/doc.json"),
	))
	return nil
}

type object = map[string]any

func render(raw []byte, opt Options) ([]byte, error) {
	var doc object
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeJSON, "openapi document")
	}

	// swagger ui renders 3.0 only
	doc["openapi"] = "3.0.3"
	delete(doc, "swagger")

	server := opt.Server
	if server == "" {
		server = "/api/v1"
	}
	if _, ok := doc["servers"]; !ok {
		doc["servers"] = []any{object{"url": server}}
	}

	info := child(doc, "info")
	info["version"] = version.Info().Version
	if title, _ := info["title"].(string); opt.TitleSuffix != "" {
		info["title"] = title + " " + opt.TitleSuffix
	}

	schemas := child(child(doc, "components"), "schemas")
	if _, ok := schemas["Envelope"]; !ok {
		schemas["Envelope"] = envelopeSchema
	}

	paths, _ := doc["paths"].(object)
	for _, item := range paths {
		ops, _ := item.(object)
		for _, op := range ops {
			o, ok := op.(object)
			if !ok {
				continue
			}
			resps := child(o, "responses")
			for status, resp := range defaultResponses {
				if _, set := resps[status]; !set {
					resps[status] = resp
				}
			}
		}
	}

	return json.Marshal(doc)
}

// child returns m[key] as an object, creating it when missing
func child(m object, key string) object {
	if c, ok := m[key].(object); ok {
		return c
	}
	c := object{}
	m[key] = c
	return c
}

var envelopeSchema = object{
	"type": "object",
	"properties": object{
		"status_code": object{"type": "integer"},
		"status":      object{"type": "string"},
		"code":        object{"type": "integer"},
		"error":       object{"type": "string"},
		"field":       object{"type": "string"},
		"request_id":  object{"type": "string"},
		"data":        object{},
	},
	"required": []any{"status_code", "status"},
}

func errorResponse(desc string, example object) object {
	return object{
		"description": desc,
		"content": object{
			"application/json": object{
				"schema":  object{"$ref": "#/components/schemas/Envelope"},
				"example": example,
			},
		},
	}
}

var defaultResponses = map[string]object{
	"400": errorResponse("Bad Request", object{
		"status_code": 400,
		"status":      "Bad Request",
		"code":        int(perr.ErrorCodeValidation),
		"error":       "power_level must be at most 30",
		"field":       "power_level",
	}),
	"500": errorResponse("Internal Server Error", object{
		"status_code": 500,
		"status":      "Internal Server Error",
		"code":        int(perr.ErrorCodePanic),
		"error":       "panic recovered",
	}),
}

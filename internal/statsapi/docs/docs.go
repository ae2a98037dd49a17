// Package docs registers the introspection API's swagger spec with
// swaggo/gin-swagger. It is hand-authored rather than generated by `swag
// init` (the generator can't be invoked here); the template and
// SwaggerInfo shape follow what that tool emits.
package docs

import (
	"github.com/swaggo/swag"
)

const docTemplate = `{
	"schemes": {{ marshal .Schemes }},
	"swagger": "2.0",
	"info": {
		"description": "{{escape .Description}}",
		"title": "{{.Title}}",
		"contact": {},
		"license": {
			"name": "MIT",
			"url": "https://opensource.org/licenses/MIT"
		},
		"version": "{{.Version}}"
	},
	"host": "{{.Host}}",
	"basePath": "{{.BasePath}}",
	"paths": {
		"/health": {
			"get": {
				"produces": ["application/json"],
				"tags": ["system"],
				"summary": "Health check",
				"security": [{"ApiKeyAuth": []}],
				"responses": {"200": {"description": "OK"}}
			}
		},
		"/stats": {
			"get": {
				"produces": ["application/json"],
				"tags": ["system"],
				"summary": "Channel statistics",
				"security": [{"ApiKeyAuth": []}],
				"responses": {"200": {"description": "OK"}}
			}
		},
		"/diagnostics/queries": {
			"get": {
				"produces": ["application/json"],
				"tags": ["diagnostics"],
				"summary": "Recent query diagnostics",
				"security": [{"ApiKeyAuth": []}],
				"responses": {"200": {"description": "OK"}}
			}
		}
	},
	"securityDefinitions": {
		"ApiKeyAuth": {
			"type": "apiKey",
			"in": "header",
			"name": "X-API-Key"
		}
	}
}`

// SwaggerInfo holds the metadata swag init normally populates from doc
// comments.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "aresgo Resolver Introspection API",
	Description:      "Read-only introspection over a running resolver channel: health, live state, recent query diagnostics.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

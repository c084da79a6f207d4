// Package docs holds the swagger document served under /swagger when built
// with -tags=swagger. Regenerate with `swag init -g cmd/llmeval/docs.go -o internal/httpapi/docs`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {"name": "MIT", "url": "https://opensource.org/licenses/MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/models": {
            "get": {
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "List models",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModelsResponse"}}}
            }
        },
        "/select": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "Select model",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.SelectRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.LoadResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/load": {
            "post": {
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "Load model",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.LoadResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/generate": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/x-ndjson"],
                "tags": ["generate"],
                "summary": "Generate",
                "parameters": [{"in": "body", "name": "body", "schema": {"$ref": "#/definitions/types.GenerateRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.GenerateLine"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/output": {
            "get": {
                "produces": ["application/json"],
                "tags": ["generate"],
                "summary": "Current output",
                "parameters": [{"type": "string", "description": "plain or markdown", "name": "style", "in": "query"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.OutputResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["status"],
                "summary": "Status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}
            }
        }
    },
    "definitions": {
        "types.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}, "code": {"type": "integer"}}
        },
        "types.ModelInfo": {
            "type": "object",
            "properties": {
                "id": {"type": "string"}, "name": {"type": "string"}, "family": {"type": "string"},
                "quant": {"type": "string"}, "template": {"type": "string"}, "size_mb": {"type": "integer"},
                "local": {"type": "boolean"}, "default_prompt": {"type": "string"}, "selected": {"type": "boolean"}
            }
        },
        "types.ModelsResponse": {
            "type": "object",
            "properties": {
                "models": {"type": "array", "items": {"$ref": "#/definitions/types.ModelInfo"}},
                "selected": {"type": "string"}
            }
        },
        "types.SelectRequest": {
            "type": "object",
            "properties": {"model": {"type": "string"}}
        },
        "types.LoadResponse": {
            "type": "object",
            "properties": {"model": {"type": "string"}, "phase": {"type": "string"}, "model_info": {"type": "string"}}
        },
        "types.GenerateRequest": {
            "type": "object",
            "properties": {"prompt": {"type": "string"}}
        },
        "types.GenerateLine": {
            "type": "object",
            "properties": {
                "session": {"type": "string"}, "output": {"type": "string"}, "done": {"type": "boolean"},
                "tokens": {"type": "integer"}, "tokens_per_second": {"type": "number"},
                "stat": {"type": "string"}, "error": {"type": "string"}
            }
        },
        "types.OutputResponse": {
            "type": "object",
            "properties": {
                "session": {"type": "string"}, "output": {"type": "string"}, "rendered": {"type": "string"},
                "style": {"type": "string"}, "running": {"type": "boolean"}
            }
        },
        "types.MemoryInfo": {
            "type": "object",
            "properties": {
                "active_bytes": {"type": "integer"}, "cache_bytes": {"type": "integer"},
                "peak_bytes": {"type": "integer"}, "cache_limit_bytes": {"type": "integer"}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "model": {"type": "string"}, "phase": {"type": "string"}, "model_info": {"type": "string"},
                "running": {"type": "boolean"}, "session": {"type": "string"}, "stat": {"type": "string"},
                "memory": {"$ref": "#/definitions/types.MemoryInfo"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "llmeval API",
	Description:      "HTTP view of the llmeval generation playground.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

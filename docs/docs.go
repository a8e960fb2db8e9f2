// Package docs registers the OpenAPI description of the parse API with swag.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/parse": {
            "post": {
                "security": [{"Bearer": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["parse"],
                "summary": "Full parse, archived",
                "parameters": [
                    {
                        "description": "text and optional tag overrides",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handlers.ParseRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ArchivedResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/middleware.APIError"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/middleware.APIError"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/middleware.APIError"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/middleware.APIError"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/middleware.APIError"}}
                }
            }
        },
        "/api/v1/parses/{id}": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["parse"],
                "summary": "Archived parse",
                "parameters": [
                    {"type": "string", "description": "parse id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/archive.Record"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/middleware.APIError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/middleware.APIError"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.HealthResponse"}}
                }
            }
        },
        "/health/deep": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handlers.HealthResponse"}}
                }
            }
        },
        "/tree/": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["parse"],
                "summary": "Full parse",
                "parameters": [
                    {
                        "description": "text and optional tag overrides",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handlers.ParseRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/parse.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/middleware.APIError"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/middleware.APIError"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/middleware.APIError"}}
                }
            }
        },
        "/tree/{text}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["parse"],
                "summary": "Minimal parse",
                "parameters": [
                    {"type": "string", "description": "sentence to parse", "name": "text", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/parse.Simple"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/middleware.APIError"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/middleware.APIError"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/middleware.APIError"}}
                }
            }
        }
    },
    "definitions": {
        "archive.Record": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "id": {"type": "string"},
                "posTags": {"type": "array", "items": {"type": "string"}},
                "request_id": {"type": "string"},
                "response": {"$ref": "#/definitions/parse.Response"},
                "text": {"type": "string"}
            }
        },
        "handlers.ArchivedResponse": {
            "type": "object",
            "properties": {
                "alternates": {"type": "array", "items": {"$ref": "#/definitions/parse.Candidate"}},
                "dependencies": {"type": "string"},
                "parse_id": {"type": "string"},
                "strategy": {"type": "string"},
                "tags": {"type": "array", "items": {"type": "string"}},
                "tree": {"type": "string"}
            }
        },
        "handlers.HealthResponse": {
            "type": "object",
            "properties": {
                "dependencies": {"type": "object", "additionalProperties": {"type": "string"}},
                "models": {"type": "object", "additionalProperties": {"type": "string"}},
                "service": {"type": "string"},
                "status": {"type": "string"},
                "version": {"type": "string"}
            }
        },
        "handlers.ParseRequest": {
            "type": "object",
            "properties": {
                "posTags": {"type": "array", "items": {"type": "string"}, "example": ["", "VB"]},
                "text": {"type": "string", "example": "The dog runs."}
            }
        },
        "middleware.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "details": {"type": "string"},
                "message": {"type": "string"},
                "retry_after_ms": {"type": "integer"}
            }
        },
        "parse.Candidate": {
            "type": "object",
            "properties": {
                "dependencies": {"type": "string"},
                "source": {"type": "string", "enum": ["baseline", "overlay"]},
                "strategy": {"type": "string"},
                "tags": {"type": "array", "items": {"type": "string"}},
                "tree": {"type": "string"}
            }
        },
        "parse.Response": {
            "type": "object",
            "properties": {
                "alternates": {"type": "array", "items": {"$ref": "#/definitions/parse.Candidate"}},
                "dependencies": {"type": "string"},
                "strategy": {"type": "string"},
                "tags": {"type": "array", "items": {"type": "string"}},
                "tree": {"type": "string"}
            }
        },
        "parse.Simple": {
            "type": "object",
            "properties": {
                "dependencies": {"type": "string"},
                "tree": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "Bearer": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "Stanford Parse API",
	Description:      "Multi-strategy constituency and dependency parsing with part-of-speech overrides.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

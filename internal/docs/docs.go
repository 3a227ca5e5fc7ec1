// Package docs registers the OpenAPI document served at /swagger/doc.json.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/responses": {
            "get": {
                "produces": ["application/json"],
                "tags": ["responses"],
                "summary": "List responses, newest first",
                "parameters": [
                    {"type": "string", "name": "surveyId", "in": "query"},
                    {"type": "string", "name": "userName", "in": "query"},
                    {"type": "integer", "default": 1, "name": "page", "in": "query"},
                    {"type": "integer", "default": 20, "maximum": 100, "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponsePage"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["responses"],
                "summary": "Submit a survey response",
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitBody"}}
                ],
                "responses": {
                    "200": {"description": "Duplicate submission detected; the earlier response is returned"},
                    "201": {"description": "Created"},
                    "400": {"description": "VALIDATION_ERROR", "schema": {"$ref": "#/definitions/Error"}},
                    "401": {"description": "UNAUTHORIZED", "schema": {"$ref": "#/definitions/Error"}},
                    "404": {"description": "NOT_FOUND", "schema": {"$ref": "#/definitions/Error"}},
                    "409": {"description": "DUPLICATE_IN_FLIGHT", "schema": {"$ref": "#/definitions/Error"}},
                    "500": {"description": "INTERNAL_ERROR", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/responses/crosstab": {
            "get": {
                "tags": ["reports"],
                "summary": "Answer counts of one question per group",
                "parameters": [
                    {"type": "string", "name": "surveyId", "in": "query", "required": true},
                    {"type": "string", "name": "questionId", "in": "query", "required": true},
                    {"type": "string", "default": "parliament", "name": "groupBy", "in": "query"},
                    {"type": "string", "name": "startDate", "in": "query"},
                    {"type": "string", "name": "endDate", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/responses/analytics": {
            "get": {
                "tags": ["reports"],
                "summary": "Distribution of a field or question",
                "parameters": [
                    {"type": "string", "name": "surveyId", "in": "query", "required": true},
                    {"type": "string", "name": "questionId", "in": "query", "required": true},
                    {"type": "string", "name": "startDate", "in": "query"},
                    {"type": "string", "name": "endDate", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/responses/daily-report": {
            "get": {
                "tags": ["reports"],
                "summary": "Submissions per day and per field agent",
                "parameters": [
                    {"type": "string", "name": "surveyId", "in": "query", "required": true},
                    {"type": "string", "name": "startDate", "in": "query"},
                    {"type": "string", "name": "endDate", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/responses/summary-report": {
            "get": {
                "tags": ["reports"],
                "summary": "Value counts for every question",
                "parameters": [
                    {"type": "string", "name": "surveyId", "in": "query", "required": true},
                    {"type": "string", "name": "startDate", "in": "query"},
                    {"type": "string", "name": "endDate", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/responses/spatial-report": {
            "get": {
                "tags": ["reports"],
                "summary": "Located responses for map rendering",
                "parameters": [
                    {"type": "string", "name": "surveyId", "in": "query", "required": true},
                    {"type": "string", "name": "startDate", "in": "query"},
                    {"type": "string", "name": "endDate", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/ws/surveys/{surveyId}/feed": {
            "get": {
                "tags": ["feed"],
                "summary": "Live feed of new responses (websocket)",
                "parameters": [
                    {"type": "string", "name": "surveyId", "in": "path", "required": true},
                    {"type": "string", "name": "token", "in": "query", "required": true}
                ],
                "responses": {"101": {"description": "Switching Protocols"}}
            }
        }
    },
    "definitions": {
        "Answer": {
            "type": "object",
            "properties": {
                "questionId": {"type": "string"},
                "value": {}
            }
        },
        "SubmitBody": {
            "type": "object",
            "required": ["surveyId", "answers"],
            "properties": {
                "surveyId": {"type": "string"},
                "userName": {"type": "string"},
                "submittedAt": {"type": "string", "format": "date-time"},
                "location": {
                    "type": "object",
                    "properties": {
                        "latitude": {"type": "number"},
                        "longitude": {"type": "number"},
                        "accuracy": {"type": "number"}
                    }
                },
                "answers": {"type": "array", "items": {"$ref": "#/definitions/Answer"}}
            }
        },
        "ResponsePage": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {"type": "array", "items": {"type": "object"}},
                "pagination": {
                    "type": "object",
                    "properties": {
                        "page": {"type": "integer"},
                        "limit": {"type": "integer"},
                        "total": {"type": "integer"},
                        "globalTotal": {"type": "integer"},
                        "pages": {"type": "integer"}
                    }
                }
            }
        },
        "Error": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "error": {
                    "type": "object",
                    "properties": {
                        "code": {"type": "string"},
                        "message": {"type": "string"}
                    }
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Field Survey API",
	Description:      "Survey response ingestion and reporting.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SmartScheduler API",
        "description": "Course catalog and conflict-free class schedule planner",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Client credential tokens"},
        {"name": "Catalog", "description": "Terms and course catalog"},
        {"name": "Planner", "description": "Schedule sessions and generation"},
        {"name": "Exports", "description": "Asynchronous schedule exports"},
        {"name": "Ops", "description": "Health and metrics"}
    ],
    "paths": {
        "/auth/token": {
            "post": {
                "tags": ["Auth"],
                "summary": "Issue a client token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/terms": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List selectable terms",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/catalog/courses": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Search courses",
                "parameters": [
                    {"name": "term", "in": "query", "required": true, "type": "integer"},
                    {"name": "q", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Catalog"],
                "summary": "Import courses",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ImportCoursesRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/catalog/courses/{id}": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Get course",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "term", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Catalog"],
                "summary": "Delete course",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "term", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/planner/generate": {
            "post": {
                "tags": ["Planner"],
                "summary": "Generate schedules without a session",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateSchedulesRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Too many combinations", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/planner/sessions": {
            "post": {
                "tags": ["Planner"],
                "summary": "Create planner session",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TermRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/planner/sessions/{id}": {
            "get": {
                "tags": ["Planner"],
                "summary": "Get planner session",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "410": {"description": "Session expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Planner"],
                "summary": "Delete planner session",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/planner/sessions/{id}/term": {
            "put": {
                "tags": ["Planner"],
                "summary": "Switch term and clear the selection",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TermRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/planner/sessions/{id}/courses": {
            "post": {
                "tags": ["Planner"],
                "summary": "Add course to the selection",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AddCourseRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Planner"],
                "summary": "Clear the selection",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/planner/sessions/{id}/courses/{courseId}": {
            "delete": {
                "tags": ["Planner"],
                "summary": "Remove course from the selection",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "courseId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/planner/sessions/{id}/pins/{sectionNumber}/toggle": {
            "post": {
                "tags": ["Planner"],
                "summary": "Pin or unpin a section",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "sectionNumber", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/planner/sessions/{id}/blocked/toggle": {
            "post": {
                "tags": ["Planner"],
                "summary": "Block or unblock a half-hour cell",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ToggleBlockedRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/planner/sessions/{id}/next": {
            "post": {
                "tags": ["Planner"],
                "summary": "Show the next schedule",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/planner/sessions/{id}/previous": {
            "post": {
                "tags": ["Planner"],
                "summary": "Show the previous schedule",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/planner/sessions/{id}/permutations": {
            "get": {
                "tags": ["Planner"],
                "summary": "Page through the filtered schedules",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/planner/sessions/{id}/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue an export of the active schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateExportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "No active schedule", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/{jobId}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export job status",
                "parameters": [{"name": "jobId", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/exports/download": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a rendered export",
                "produces": ["application/pdf", "text/calendar", "text/csv", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [{"name": "token", "in": "query", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Ops"],
                "summary": "Request and generation metrics",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "definitions": {
        "TokenRequest": {
            "type": "object",
            "required": ["clientId", "clientSecret"],
            "properties": {
                "clientId": {"type": "string"},
                "clientSecret": {"type": "string"}
            }
        },
        "TermRequest": {
            "type": "object",
            "required": ["term"],
            "properties": {"term": {"type": "integer", "example": 4262}}
        },
        "AddCourseRequest": {
            "type": "object",
            "required": ["courseId"],
            "properties": {"courseId": {"type": "string", "example": "CS 101"}}
        },
        "ToggleBlockedRequest": {
            "type": "object",
            "properties": {
                "day": {"type": "integer", "minimum": 0, "maximum": 6},
                "slot": {"type": "integer", "minimum": 0, "maximum": 47}
            }
        },
        "ScheduledTime": {
            "type": "object",
            "properties": {
                "day": {"type": "integer"},
                "startTime": {"type": "integer", "description": "5-minute ticks since midnight"},
                "endTime": {"type": "integer"}
            }
        },
        "Section": {
            "type": "object",
            "properties": {
                "sectionNumber": {"type": "integer"},
                "classId": {"type": "string"},
                "type": {"type": "string"},
                "instructor": {"type": "string"},
                "minCredits": {"type": "integer"},
                "maxCredits": {"type": "integer"},
                "topic": {"type": "string"},
                "location": {"type": "string"},
                "openSeats": {"type": "integer"},
                "times": {"type": "array", "items": {"$ref": "#/definitions/ScheduledTime"}}
            }
        },
        "Course": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "term": {"type": "integer"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "minCredits": {"type": "integer"},
                "maxCredits": {"type": "integer"},
                "sections": {
                    "type": "object",
                    "additionalProperties": {"type": "array", "items": {"$ref": "#/definitions/Section"}}
                }
            }
        },
        "ImportCoursesRequest": {
            "type": "object",
            "required": ["term", "courses"],
            "properties": {
                "term": {"type": "integer"},
                "courses": {"type": "array", "items": {"$ref": "#/definitions/Course"}}
            }
        },
        "GenerateSchedulesRequest": {
            "type": "object",
            "required": ["courses"],
            "properties": {
                "courses": {"type": "array", "items": {"$ref": "#/definitions/Course"}},
                "pinned": {"type": "array", "items": {"type": "integer"}},
                "blocked": {"type": "array", "items": {"type": "array", "items": {"type": "integer"}}},
                "previous": {"type": "array", "items": {"type": "integer"}},
                "limit": {"type": "integer"}
            }
        },
        "CreateExportRequest": {
            "type": "object",
            "required": ["format"],
            "properties": {
                "format": {"type": "string", "enum": ["pdf", "ics", "xlsx", "csv"]},
                "termStart": {"type": "string", "format": "date"},
                "weeks": {"type": "integer"},
                "timezone": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}

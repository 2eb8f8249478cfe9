package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Fleet Maintenance Scheduler API",
        "description": "Plans Daily, Weekly, A, C and D checks around the flight schedule.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Maintenance", "description": "Automatic maintenance planning per aircraft and fleet"},
        {"name": "Ops", "description": "Liveness, readiness and metrics"}
    ],
    "paths": {
        "/aircraft/{id}/maintenance": {
            "get": {
                "tags": ["Maintenance"],
                "summary": "List active maintenance of an aircraft",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown aircraft", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/aircraft/{id}/maintenance/busy": {
            "get": {
                "tags": ["Maintenance"],
                "summary": "Show flights, maintenance and away periods of one day",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/aircraft/{id}/maintenance/export": {
            "get": {
                "tags": ["Maintenance"],
                "summary": "Download the maintenance plan as CSV or PDF",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}}
                }
            }
        },
        "/aircraft/{id}/maintenance/refresh": {
            "post": {
                "tags": ["Maintenance"],
                "summary": "Rebuild the maintenance plan of an aircraft",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/RefreshRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "An expired check cannot be placed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/aircraft/{id}/maintenance/complete": {
            "post": {
                "tags": ["Maintenance"],
                "summary": "Record a performed check",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CompleteCheckRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/aircraft/{id}/maintenance/flight-conflicts": {
            "post": {
                "tags": ["Maintenance"],
                "summary": "Repair maintenance hit by a new or changed flight",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/FlightConflictRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Cannot reschedule or maintenance in progress", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/aircraft/{id}/maintenance/tiers/{tier}": {
            "put": {
                "tags": ["Maintenance"],
                "summary": "Enable or disable automatic scheduling of a check tier",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "tier", "in": "path", "required": true, "type": "string", "enum": ["daily", "weekly", "a", "c", "d"]},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EnableTierRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Tier is already expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/maintenance/jobs/{jobId}": {
            "get": {
                "tags": ["Maintenance"],
                "summary": "Show the progress of a queued fleet refresh",
                "parameters": [
                    {"name": "jobId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown job", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/fleets/{id}/maintenance/refresh": {
            "post": {
                "tags": ["Maintenance"],
                "summary": "Rebuild the maintenance plans of every aircraft in a fleet",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "async", "in": "query", "type": "boolean"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/RefreshRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "RefreshRequest": {
            "type": "object",
            "properties": {
                "now": {"type": "string", "format": "date-time"}
            }
        },
        "EnableTierRequest": {
            "type": "object",
            "required": ["enabled"],
            "properties": {
                "enabled": {"type": "boolean"},
                "now": {"type": "string", "format": "date-time"}
            }
        },
        "CompleteCheckRequest": {
            "type": "object",
            "required": ["tier", "completedAt"],
            "properties": {
                "tier": {"type": "string", "enum": ["daily", "weekly", "a", "c", "d"]},
                "completedAt": {"type": "string", "format": "date-time"},
                "totalFlightHours": {"type": "number"},
                "now": {"type": "string", "format": "date-time"}
            }
        },
        "FlightPayload": {
            "type": "object",
            "required": ["id", "origin", "destination", "departureAt", "arrivalAt"],
            "properties": {
                "id": {"type": "string"},
                "origin": {"type": "string"},
                "destination": {"type": "string"},
                "departureAt": {"type": "string", "format": "date-time"},
                "arrivalAt": {"type": "string", "format": "date-time"},
                "distanceKm": {"type": "number"},
                "capacity": {"type": "integer"},
                "category": {"type": "string", "enum": ["passenger", "cargo"]}
            }
        },
        "FlightConflictRequest": {
            "type": "object",
            "required": ["flight"],
            "properties": {
                "flight": {"$ref": "#/definitions/FlightPayload"},
                "now": {"type": "string", "format": "date-time"}
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

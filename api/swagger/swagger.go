package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Alumni Mentoring API",
        "description": "Mentor-mentee matching engine for the alumni platform",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Programs", "description": "Mentoring programs"},
        {"name": "Matching", "description": "Assignment engine and match lifecycle"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate with email and password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/programs": {
            "get": {
                "tags": ["Programs"],
                "summary": "List mentoring programs",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "sort", "in": "query", "type": "string"},
                    {"name": "order", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/programs/{programId}": {
            "get": {
                "tags": ["Programs"],
                "summary": "Get mentoring program",
                "parameters": [
                    {"name": "programId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/programs/{programId}/matching/initiate": {
            "post": {
                "tags": ["Matching"],
                "summary": "Run the matching engine for a program",
                "parameters": [
                    {"name": "programId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Registration still open or matching closed"}
                }
            }
        },
        "/programs/{programId}/matching/manual": {
            "post": {
                "tags": ["Matching"],
                "summary": "Create a manual match",
                "parameters": [
                    {"name": "programId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ManualMatchRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Mentee already matched or mentor at capacity"}
                }
            }
        },
        "/programs/{programId}/matching/unmatched": {
            "get": {
                "tags": ["Matching"],
                "summary": "List approved mentees without an active match",
                "parameters": [
                    {"name": "programId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/programs/{programId}/matching/statistics": {
            "get": {
                "tags": ["Matching"],
                "summary": "Matching statistics for a program",
                "parameters": [
                    {"name": "programId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/programs/{programId}/matching/sweep": {
            "post": {
                "tags": ["Matching"],
                "summary": "Auto-reject pending matches past their acceptance window",
                "parameters": [
                    {"name": "programId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/programs/{programId}/matches": {
            "get": {
                "tags": ["Matching"],
                "summary": "List matches for a program",
                "parameters": [
                    {"name": "programId", "in": "path", "required": true, "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "type", "in": "query", "type": "string"},
                    {"name": "mentorUserId", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/programs/{programId}/matches/export": {
            "get": {
                "tags": ["Matching"],
                "summary": "Export a program's matches as CSV or PDF",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "programId", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        },
        "/matches/{id}/respond": {
            "post": {
                "tags": ["Matching"],
                "summary": "Record a mentor's response to a pending match",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RespondRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Match expired or no longer pending"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "ManualMatchRequest": {
            "type": "object",
            "properties": {
                "mentee_registration_id": {"type": "string"},
                "mentor_user_id": {"type": "string"}
            },
            "required": ["mentee_registration_id", "mentor_user_id"]
        },
        "RespondRequest": {
            "type": "object",
            "properties": {
                "action": {"type": "string", "enum": ["accept", "reject"]},
                "reason": {"type": "string"}
            },
            "required": ["action"]
        },
        "Match": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "program_id": {"type": "string"},
                "mentor_user_id": {"type": "string"},
                "mentee_user_id": {"type": "string"},
                "status": {"type": "string"},
                "match_type": {"type": "string"},
                "match_score": {"type": "number"},
                "matched_at": {"type": "string"},
                "auto_reject_at": {"type": "string"},
                "responded_at": {"type": "string"},
                "rejection_reason": {"type": "string"}
            }
        },
        "ProgramStatistics": {
            "type": "object",
            "properties": {
                "program_id": {"type": "string"},
                "total": {"type": "integer"},
                "accepted": {"type": "integer"},
                "pending": {"type": "integer"},
                "rejected_total": {"type": "integer"},
                "unmatched_mentees": {"type": "integer"},
                "average_score": {"type": "number"},
                "preferred_matches": {"type": "integer"},
                "algorithm_matches": {"type": "integer"},
                "manual_matches": {"type": "integer"},
                "generated_at": {"type": "string"}
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

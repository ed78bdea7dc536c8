package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "DB Admin API",
        "description": "Multi-environment database administration backend with a change request approval workflow",
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
        {"name": "Auth", "description": "Authentication"},
        {"name": "Environments", "description": "Active environment selection"},
        {"name": "Tables", "description": "Table browsing and introspection"},
        {"name": "Records", "description": "Staged record mutations"},
        {"name": "Changes", "description": "Change request review workflow"},
        {"name": "Snapshots", "description": "Pre-mutation table snapshots"},
        {"name": "Queries", "description": "Predefined query catalog"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate with username and password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current user profile",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/environments": {
            "get": {
                "tags": ["Environments"],
                "summary": "List configured environments and the caller's selection",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/environments/current": {
            "get": {
                "tags": ["Environments"],
                "summary": "Get the caller's active environment",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/environments/switch": {
            "post": {
                "tags": ["Environments"],
                "summary": "Switch the caller's active environment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SwitchEnvironmentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown environment"}
                }
            }
        },
        "/tables": {
            "get": {
                "tags": ["Tables"],
                "summary": "List tables in the active environment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "environment", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tables/{table}/schema": {
            "get": {
                "tags": ["Tables"],
                "summary": "Describe a table's columns",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "table", "in": "path", "required": true, "type": "string"},
                    {"name": "environment", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tables/{table}/data": {
            "get": {
                "tags": ["Tables"],
                "summary": "Browse rows of a table",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "table", "in": "path", "required": true, "type": "string"},
                    {"name": "environment", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tables/{table}/queries": {
            "get": {
                "tags": ["Queries"],
                "summary": "List predefined queries for a table",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "table", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tables/{table}/queries/{queryId}/execute": {
            "post": {
                "tags": ["Queries"],
                "summary": "Execute a predefined query",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "table", "in": "path", "required": true, "type": "string"},
                    {"name": "queryId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExecuteQueryRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Parameter validation failed"},
                    "404": {"description": "Query not found"}
                }
            }
        },
        "/tables/{table}/records": {
            "post": {
                "tags": ["Records"],
                "summary": "Stage a record creation",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "table", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "201": {"description": "Change request created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tables/{table}/records/{id}": {
            "put": {
                "tags": ["Records"],
                "summary": "Stage a record update",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "table", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "201": {"description": "Change request created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Records"],
                "summary": "Stage a record deletion",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "table", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Change request created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/changes": {
            "post": {
                "tags": ["Changes"],
                "summary": "Submit a change request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitChangeRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed"}
                }
            }
        },
        "/changes/pending": {
            "get": {
                "tags": ["Changes"],
                "summary": "List pending change requests",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/changes/history": {
            "get": {
                "tags": ["Changes"],
                "summary": "List processed change requests",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/changes/{id}": {
            "get": {
                "tags": ["Changes"],
                "summary": "Get change request detail",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/changes/{id}/approve": {
            "post": {
                "tags": ["Changes"],
                "summary": "Approve a pending change request",
                "description": "Captures a full-table snapshot, applies the mutation, and records the terminal status. A mutation failure yields a REJECTED outcome in the response body, not an error status.",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Terminal outcome", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"},
                    "409": {"description": "Already processed"}
                }
            }
        },
        "/changes/{id}/reject": {
            "post": {
                "tags": ["Changes"],
                "summary": "Reject a pending change request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Terminal outcome", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"},
                    "409": {"description": "Already processed"}
                }
            }
        },
        "/snapshots": {
            "get": {
                "tags": ["Snapshots"],
                "summary": "List snapshot summaries",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "environment", "in": "query", "type": "string"},
                    {"name": "table", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/snapshots/stats": {
            "get": {
                "tags": ["Snapshots"],
                "summary": "Aggregate snapshot statistics",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/snapshots/by-change-request/{id}": {
            "get": {
                "tags": ["Snapshots"],
                "summary": "List snapshots captured for a change request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/snapshots/{id}": {
            "get": {
                "tags": ["Snapshots"],
                "summary": "Get a snapshot with its captured rows",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "delete": {
                "tags": ["Snapshots"],
                "summary": "Delete a snapshot",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/snapshots/{id}/export": {
            "get": {
                "tags": ["Snapshots"],
                "summary": "Export a snapshot as CSV or PDF",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Exported file"},
                    "404": {"description": "Not found"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["username", "password"]
        },
        "SwitchEnvironmentRequest": {
            "type": "object",
            "properties": {
                "environment": {"type": "string"}
            },
            "required": ["environment"]
        },
        "SubmitChangeRequest": {
            "type": "object",
            "properties": {
                "environment": {"type": "string"},
                "table_name": {"type": "string"},
                "operation": {"type": "string", "enum": ["CREATE", "UPDATE", "DELETE"]},
                "record_id": {"type": "string"},
                "new_data": {"type": "object"}
            },
            "required": ["table_name", "operation"]
        },
        "ExecuteQueryRequest": {
            "type": "object",
            "properties": {
                "parameters": {"type": "object"}
            }
        },
        "ChangeRequest": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "environment": {"type": "string"},
                "table_name": {"type": "string"},
                "record_id": {"type": "string"},
                "operation": {"type": "string"},
                "old_data": {"type": "object"},
                "new_data": {"type": "object"},
                "requested_by": {"type": "string"},
                "requested_at": {"type": "string"},
                "status": {"type": "string", "enum": ["PENDING", "APPROVED", "REJECTED"]},
                "reviewed_by": {"type": "string"},
                "reviewed_at": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "ApprovalOutcome": {
            "type": "object",
            "properties": {
                "change_request_id": {"type": "string"},
                "status": {"type": "string", "enum": ["APPROVED", "REJECTED"]},
                "message": {"type": "string"},
                "snapshot_id": {"type": "string"}
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
                "status": {"type": "integer"},
                "fields": {"type": "object"}
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

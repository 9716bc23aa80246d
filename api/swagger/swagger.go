package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "THPT Conduct API",
        "description": "Violation recording, deduplication and point aggregation service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Violations", "description": "Violation reporting, editing and review"},
        {"name": "Absences", "description": "Time-window gated absence requests"},
        {"name": "Reports", "description": "Per-class penalty point aggregation"},
        {"name": "Catalog", "description": "Violation type tiers"},
        {"name": "Settings", "description": "Typed runtime settings"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate and receive an access token",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/violations": {
            "get": {
                "tags": ["Violations"],
                "summary": "List violations by grade, class, status and date range",
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "post": {
                "tags": ["Violations"],
                "summary": "File a single violation",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Duplicate violation for subject and day"}
                }
            }
        },
        "/violations/bulk": {
            "post": {
                "tags": ["Violations"],
                "summary": "Submit a bulk candidate batch",
                "responses": {
                    "200": {"description": "Per-item outcome report"}
                }
            }
        },
        "/violations/{id}": {
            "get": {
                "tags": ["Violations"],
                "summary": "Get violation detail",
                "responses": {"200": {"description": "OK"}}
            },
            "patch": {
                "tags": ["Violations"],
                "summary": "Edit violation fields with audit trail",
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Violations"],
                "summary": "Delete a violation and release evidence",
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/violations/{id}/appeal": {
            "post": {
                "tags": ["Violations"],
                "summary": "Appeal a reported violation",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Invalid status transition"}
                }
            }
        },
        "/violations/{id}/resolve": {
            "post": {
                "tags": ["Violations"],
                "summary": "Resolve an appealed violation",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Invalid status transition"}
                }
            }
        },
        "/violations/{id}/logs": {
            "get": {
                "tags": ["Violations"],
                "summary": "Audit trail for a violation",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/absences": {
            "post": {
                "tags": ["Absences"],
                "summary": "Submit an absence-request batch",
                "responses": {
                    "200": {"description": "Per-student outcome report"},
                    "403": {"description": "Outside submission window"}
                }
            }
        },
        "/absences/window": {
            "get": {
                "tags": ["Absences"],
                "summary": "Current submission window state",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/reports/points": {
            "get": {
                "tags": ["Reports"],
                "summary": "Per-class penalty point summary over a date range",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/catalog/tiers": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Violation type tiers and point values",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/settings/{key}": {
            "get": {
                "tags": ["Settings"],
                "summary": "Read one setting",
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "tags": ["Settings"],
                "summary": "Store one setting",
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
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
                "pagination": {"type": "object"},
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

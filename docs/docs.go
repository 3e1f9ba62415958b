// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

// Package docs registers the Fudi OpenAPI document served under /swagger.
// It follows the layout swag init writes; regenerate it with
// `swag init -g cmd/server/docs.go -o docs` after changing handler
// annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "license": {
            "name": "AGPL-3.0-or-later",
            "url": "https://www.gnu.org/licenses/agpl-3.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/data/alerts": {
            "get": {
                "tags": [
                    "Data"
                ],
                "summary": "Get low-stock alerts",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Alerts, most critical first",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    }
                }
            }
        },
        "/data/inventory": {
            "get": {
                "tags": [
                    "Data"
                ],
                "summary": "Get inventory",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Stock levels",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    },
                    "404": {
                        "description": "Never synchronized",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    }
                }
            }
        },
        "/data/menu": {
            "get": {
                "tags": [
                    "Data"
                ],
                "summary": "Get menu items",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Menu items",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    },
                    "401": {
                        "description": "Authentication required",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    },
                    "404": {
                        "description": "Never synchronized",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    }
                },
                "description": "Returns the synchronized menu ordered by category, then name."
            }
        },
        "/data/restaurant": {
            "get": {
                "tags": [
                    "Data"
                ],
                "summary": "Get restaurant profile",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Restaurant profile",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    },
                    "404": {
                        "description": "Never synchronized",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    }
                }
            }
        },
        "/data/sales": {
            "get": {
                "tags": [
                    "Data"
                ],
                "summary": "Get sales",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Start date (YYYY-MM-DD)",
                        "name": "date_from",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "End date, inclusive (YYYY-MM-DD)",
                        "name": "date_to",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "Transaction status",
                        "name": "status",
                        "in": "query",
                        "enum": [
                            "completed",
                            "pending"
                        ]
                    },
                    {
                        "type": "integer",
                        "description": "Maximum rows (0 means all)",
                        "name": "limit",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Transactions, newest first",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    },
                    "400": {
                        "description": "Invalid filter",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    },
                    "404": {
                        "description": "Never synchronized",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    }
                }
            }
        },
        "/health/live": {
            "get": {
                "tags": [
                    "Health"
                ],
                "summary": "Liveness check",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "Process is up",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    }
                }
            }
        },
        "/health/ready": {
            "get": {
                "tags": [
                    "Health"
                ],
                "summary": "Readiness check",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "Document store reachable",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    },
                    "503": {
                        "description": "Document store unavailable",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    }
                }
            }
        },
        "/poster/callback": {
            "get": {
                "tags": [
                    "Poster"
                ],
                "summary": "Complete Poster OAuth",
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Authorization code",
                        "name": "code",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "State issued by /poster/connect",
                        "name": "state",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "Set by Poster when the owner denies access",
                        "name": "error",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Connected",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    },
                    "400": {
                        "description": "Denied, or unknown state",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    },
                    "502": {
                        "description": "Token exchange failed",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    }
                }
            }
        },
        "/poster/connect": {
            "get": {
                "tags": [
                    "Poster"
                ],
                "summary": "Start Poster OAuth",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "boolean",
                        "description": "Respond with a 302 to Poster instead of JSON",
                        "name": "redirect",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Authorization URL",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    },
                    "302": {
                        "description": "Redirect to Poster"
                    }
                }
            }
        },
        "/poster/disconnect": {
            "post": {
                "tags": [
                    "Poster"
                ],
                "summary": "Disconnect Poster",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Disconnected",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    },
                    "404": {
                        "description": "Not connected",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    }
                }
            }
        },
        "/poster/errors": {
            "get": {
                "tags": [
                    "Poster"
                ],
                "summary": "List error log entries",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "Maximum entries (1-200)",
                        "name": "limit",
                        "in": "query",
                        "default": 50
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Entries, newest first",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    }
                }
            }
        },
        "/poster/runs": {
            "get": {
                "tags": [
                    "Poster"
                ],
                "summary": "List sync runs",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "Maximum runs (1-100)",
                        "name": "limit",
                        "in": "query",
                        "default": 20
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Runs, newest first",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    }
                }
            }
        },
        "/poster/runs/{id}": {
            "get": {
                "tags": [
                    "Poster"
                ],
                "summary": "Get a sync run",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Run ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Run with per-resource records",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    },
                    "404": {
                        "description": "Unknown run",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    }
                }
            }
        },
        "/poster/status": {
            "get": {
                "tags": [
                    "Poster"
                ],
                "summary": "Get connection status",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Connection and last sync state",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    }
                }
            }
        },
        "/poster/sync": {
            "post": {
                "tags": [
                    "Poster"
                ],
                "summary": "Run a sync",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "boolean",
                        "description": "Start in the background and return 202",
                        "name": "async",
                        "in": "query"
                    },
                    {
                        "description": "Resource selection",
                        "name": "request",
                        "in": "body",
                        "schema": {
                            "$ref": "#/definitions/api.SyncRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Run completed",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    },
                    "202": {
                        "description": "Run started",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    },
                    "400": {
                        "description": "Invalid body or nothing selected",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    },
                    "401": {
                        "description": "Reconnect required",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    },
                    "404": {
                        "description": "Not connected",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    },
                    "409": {
                        "description": "Sync already in progress",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    },
                    "502": {
                        "description": "Poster failure",
                        "schema": {
                            "$ref": "#/definitions/models.APIResponse"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "description": "Omitted keys in the body select their resource; an all-false body is rejected."
            }
        },
        "/ws": {
            "get": {
                "tags": [
                    "Poster"
                ],
                "summary": "Sync progress websocket",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "JWT for browsers that cannot set headers",
                        "name": "token",
                        "in": "query"
                    }
                ],
                "responses": {
                    "101": {
                        "description": "Switching protocols"
                    }
                }
            }
        }
    },
    "definitions": {
        "api.SyncRequest": {
            "type": "object",
            "properties": {
                "inventory": {
                    "type": "boolean"
                },
                "products": {
                    "type": "boolean"
                },
                "restaurant": {
                    "type": "boolean"
                },
                "sales": {
                    "type": "boolean"
                }
            }
        },
        "models.APIError": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "details": {
                    "type": "object",
                    "additionalProperties": true
                },
                "message": {
                    "type": "string"
                }
            }
        },
        "models.APIResponse": {
            "type": "object",
            "properties": {
                "data": {},
                "error": {
                    "$ref": "#/definitions/models.APIError"
                },
                "metadata": {
                    "$ref": "#/definitions/models.Metadata"
                },
                "status": {
                    "type": "string"
                }
            }
        },
        "models.Metadata": {
            "type": "object",
            "properties": {
                "count": {
                    "type": "integer"
                },
                "query_time_ms": {
                    "type": "integer"
                },
                "timestamp": {
                    "type": "string"
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Bearer JWT. The subject claim is the tenant ID.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Fudi API",
	Description:      "Connects Poster POS accounts and serves a synchronized copy of each restaurant's menu, stock, sales and profile.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

//nolint:gochecknoinits // swag registration
func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

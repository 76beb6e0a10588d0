// Package docs holds the OpenAPI document served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "MailMaster API Support",
            "email": "support@mailmaster.local"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["auth"],
                "summary": "Register a user",
                "parameters": [{"in": "body", "name": "user", "required": true, "schema": {"$ref": "#/definitions/services.RegisterInput"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.AuthResponse"}},
                    "422": {"description": "Validation failed", "schema": {"$ref": "#/definitions/controllers.APIError"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Log in",
                "parameters": [{"in": "body", "name": "credentials", "required": true, "schema": {"$ref": "#/definitions/services.LoginInput"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.AuthResponse"}},
                    "422": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/controllers.APIError"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Revoke the current token",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthenticated"}}
            }
        },
        "/auth/tokens": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Issue a personal access token",
                "parameters": [{"in": "body", "name": "token", "required": true, "schema": {"$ref": "#/definitions/services.TokenInput"}}],
                "responses": {"201": {"description": "Created"}, "403": {"description": "Ability not granted"}, "422": {"description": "Validation failed"}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Revoke every token of the user",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/auth/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Current user",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.User"}}}
            }
        },
        "/newsletters": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["newsletters"],
                "summary": "List newsletters",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["newsletters"],
                "summary": "Create newsletter",
                "parameters": [{"in": "body", "name": "newsletter", "required": true, "schema": {"$ref": "#/definitions/services.NewsletterInput"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Newsletter"}}}
            }
        },
        "/newsletters/{id}/subscribers": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["newsletters"],
                "summary": "Subscribe an email",
                "parameters": [
                    {"type": "string", "in": "path", "name": "id", "required": true},
                    {"in": "body", "name": "subscription", "required": true, "schema": {"$ref": "#/definitions/services.SubscribeInput"}}
                ],
                "responses": {
                    "200": {"description": "Reactivated", "schema": {"$ref": "#/definitions/models.Subscriber"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Subscriber"}},
                    "422": {"description": "Already subscribed", "schema": {"$ref": "#/definitions/controllers.APIError"}}
                }
            }
        },
        "/campaigns/{id}/send": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["campaigns"],
                "summary": "Queue a campaign for delivery",
                "parameters": [{"type": "string", "in": "path", "name": "id", "required": true}],
                "responses": {"202": {"description": "Accepted", "schema": {"$ref": "#/definitions/models.Campaign"}}}
            }
        },
        "/public/unsubscribe": {
            "get": {
                "tags": ["public"],
                "summary": "Unsubscribe by signed link",
                "parameters": [{"type": "string", "in": "query", "name": "token", "required": true}],
                "responses": {"200": {"description": "OK"}, "422": {"description": "Invalid token"}}
            }
        }
    },
    "definitions": {
        "controllers.APIError": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "errors": {"type": "object", "additionalProperties": {"type": "array", "items": {"type": "string"}}}
            }
        },
        "handlers.AuthResponse": {
            "type": "object",
            "properties": {
                "user": {"$ref": "#/definitions/models.User"},
                "token": {"type": "string"},
                "token_type": {"type": "string"},
                "expires_at": {"type": "string"}
            }
        },
        "models.User": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "email": {"type": "string"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "models.Newsletter": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "userId": {"type": "string"},
                "name": {"type": "string"},
                "description": {"type": "string"}
            }
        },
        "models.Subscriber": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "newsletterId": {"type": "string"},
                "email": {"type": "string"},
                "name": {"type": "string"},
                "status": {"type": "string"},
                "subscribedAt": {"type": "string"},
                "unsubscribedAt": {"type": "string"}
            }
        },
        "models.Campaign": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "newsletterId": {"type": "string"},
                "subject": {"type": "string"},
                "body": {"type": "string"},
                "status": {"type": "string"},
                "scheduledAt": {"type": "string"},
                "sentAt": {"type": "string"}
            }
        },
        "services.RegisterInput": {
            "type": "object",
            "required": ["name", "email", "password", "password_confirmation"],
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "password_confirmation": {"type": "string"}
            }
        },
        "services.LoginInput": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "services.TokenInput": {
            "type": "object",
            "required": ["name", "abilities"],
            "properties": {"name": {"type": "string"}, "abilities": {"type": "array", "items": {"type": "string"}}}
        },
        "services.NewsletterInput": {
            "type": "object",
            "required": ["name"],
            "properties": {"name": {"type": "string"}, "description": {"type": "string"}}
        },
        "services.SubscribeInput": {
            "type": "object",
            "required": ["email"],
            "properties": {"email": {"type": "string"}, "name": {"type": "string"}, "metadata": {"type": "object"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "MailMaster API",
	Description:      "Newsletter management API.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

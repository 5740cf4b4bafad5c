package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the lending service.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>lending-service Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// Minimal OpenAPI document describing the lending endpoints.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "lending-service", "version": "v1.0.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } },
    "schemas": {
      "Credentials": { "type": "object", "required": ["username", "password"], "properties": { "username": {"type":"string"}, "password": {"type":"string", "minLength": 8} } },
      "Item": { "type": "object", "properties": { "id": {"type":"string"}, "title": {"type":"string"}, "author": {"type":"string"}, "available": {"type":"integer", "minimum": 0} } },
      "Loan": { "type": "object", "properties": { "id": {"type":"string"}, "holderId": {"type":"string"}, "itemId": {"type":"string"}, "borrowedAt": {"type":"string","format":"date-time"}, "hardExpiresAt": {"type":"string","format":"date-time"}, "policyReturnAt": {"type":"string","format":"date-time"}, "open": {"type":"boolean"}, "closedAt": {"type":"string","format":"date-time"}, "closedBy": {"type":"string","enum":["user","system"]} } },
      "Error": { "type": "object", "properties": { "error": {"type":"string"}, "code": {"type":"string"} } }
    }
  },
  "paths": {
    "/auth/signup": {
      "post": {
        "summary": "Create an account (role via ?role=USER|ADMIN)",
        "requestBody": { "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Credentials" } } } },
        "responses": { "201": { "description": "account created, access token returned" }, "409": { "description": "USER_EXISTS" }, "403": { "description": "admin signup disabled" } }
      }
    },
    "/auth/login": {
      "post": {
        "summary": "Exchange username and password for an access token",
        "requestBody": { "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Credentials" } } } },
        "responses": { "200": { "description": "access token returned" }, "401": { "description": "invalid credentials" } }
      }
    },
    "/api/items": {
      "get": { "summary": "Browse inventory", "security": [{"bearer": []}], "responses": { "200": { "description": "items" } } },
      "post": { "summary": "Add an item (admin)", "security": [{"bearer": []}], "requestBody": { "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Item" } } } }, "responses": { "201": { "description": "created" }, "403": { "description": "FORBIDDEN" } } }
    },
    "/api/items/{id}": {
      "get": { "summary": "Get an item", "security": [{"bearer": []}], "responses": { "200": { "description": "item" }, "404": { "description": "NOT_FOUND" } } },
      "put": { "summary": "Update an item (admin)", "security": [{"bearer": []}], "responses": { "200": { "description": "updated; a changed available count is applied as a delta" }, "409": { "description": "STOCK_CONFLICT" } } },
      "delete": { "summary": "Delete an item (admin)", "security": [{"bearer": []}], "responses": { "204": { "description": "deleted" }, "409": { "description": "ITEM_ON_LOAN" } } }
    },
    "/api/loans/{itemId}": {
      "post": { "summary": "Borrow an item", "security": [{"bearer": []}], "responses": { "201": { "description": "loan opened" }, "404": { "description": "NOT_FOUND" }, "409": { "description": "UNAVAILABLE or ALREADY_HELD" } } }
    },
    "/api/loans/{itemId}/return": {
      "post": { "summary": "Return a borrowed item", "security": [{"bearer": []}], "responses": { "200": { "description": "loan closed" }, "409": { "description": "NOT_HELD" } } }
    },
    "/api/loans/me": {
      "get": { "summary": "List the caller's loans, newest first", "security": [{"bearer": []}], "responses": { "200": { "description": "loans" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`

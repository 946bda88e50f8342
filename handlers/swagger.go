package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the dev backend.
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
    <title>bdgd authstub - Swagger</title>
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

// Minimal OpenAPI document of the identity contract the client relies on.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "bdgd-authstub", "version": "v0.1.0" },
  "servers": [ { "url": "/api/v1" } ],
  "paths": {
    "/auth/register": {
      "post": { "summary": "Request access (account starts pending)", "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["email","password","full_name"],"properties":{"email":{"type":"string"},"password":{"type":"string","minLength":8},"full_name":{"type":"string"},"company":{"type":"string"},"phone":{"type":"string"},"message":{"type":"string"}}}}}}, "responses": { "201": { "description": "pending identity" }, "400": { "description": "email already registered" }, "422": { "description": "validation error" } } }
    },
    "/auth/login": {
      "post": { "summary": "Exchange email and password for tokens", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"}}}}}}, "responses": { "200": { "description": "access_token, refresh_token, token_type" }, "401": { "description": "invalid credentials" }, "403": { "description": "account not approved" } } }
    },
    "/auth/refresh": {
      "post": { "summary": "Rotate the refresh token and issue a new pair", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "new token pair" }, "401": { "description": "invalid refresh" } } }
    },
    "/auth/logout": {
      "post": { "summary": "Revoke all refresh tokens of the caller", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "logged out" }, "401": { "description": "caller unknown" } } }
    },
    "/auth/me": { "get": { "summary": "Current identity", "responses": { "200": { "description": "identity" }, "401": { "description": "expired or invalid token" } } } },
    "/auth/status": { "get": { "summary": "Approval status and role", "responses": { "200": { "description": "status" } } } },
    "/admin/access-requests": { "get": { "summary": "Pending registrations (admin)", "responses": { "200": { "description": "items" } } } },
    "/admin/users/{id}/approve": { "post": { "summary": "Approve an account (admin)", "responses": { "200": { "description": "identity" }, "404": { "description": "unknown user" } } } },
    "/admin/users/{id}/suspend": { "post": { "summary": "Suspend an account and revoke its refresh tokens (admin)", "responses": { "200": { "description": "identity" } } } }
  }
}`

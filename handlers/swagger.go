package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>docgate — Swagger</title>
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

// Minimal OpenAPI document describing the public endpoints.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "docgate", "version": "v0.1.0" },
  "paths": {
    "/auth/token": {
      "post": {
        "summary": "Exchange an api key for a short-lived access token",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"api_key":{"type":"string"}}}}}},
        "responses": { "200": { "description": "access token returned" }, "401": { "description": "invalid api key" } }
      }
    },
    "/api/v1/documents": {
      "post": { "summary": "Create a document", "responses": { "201": { "description": "created" }, "403": { "description": "quota exceeded" } } },
      "get": { "summary": "List documents", "responses": { "200": { "description": "documents" } } }
    },
    "/api/v1/documents/{id}": {
      "get": { "summary": "Fetch a document", "responses": { "200": { "description": "document" }, "404": { "description": "not found" } } },
      "put": { "summary": "Update a document", "responses": { "200": { "description": "updated" } } },
      "delete": { "summary": "Delete a document", "responses": { "204": { "description": "deleted" } } }
    },
    "/api/v1/search": {
      "get": {
        "summary": "Search the tenant's documents",
        "parameters": [
          { "name": "q", "in": "query", "required": true, "schema": {"type":"string"} },
          { "name": "page", "in": "query", "schema": {"type":"integer"} },
          { "name": "per_page", "in": "query", "schema": {"type":"integer"} }
        ],
        "responses": { "200": { "description": "one page of results" }, "400": { "description": "missing query" } }
      }
    },
    "/api/v1/tenants": {
      "post": { "summary": "Provision a tenant (admin)", "responses": { "201": { "description": "tenant and api key" } } }
    },
    "/api/v1/tenants/{id}": {
      "delete": { "summary": "Remove a tenant and its data (admin)", "responses": { "204": { "description": "deleted" } } }
    }
  }
}`

// Package docs registers the generated OpenAPI spec with swaggo/http-swagger.
//
// This file stands in for swag init's generated output; the annotated
// @Summary/@Router comments on the middleware handlers are the source of
// truth and would regenerate this file's contents verbatim.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "dacs7 Middleware",
            "url": "https://github.com/ccLee627/dacs7"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "dacs7 HTTP/WebSocket Middleware API",
	Description:      "REST API for exchanging tag values and alarms with a Siemens S7 PLC",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

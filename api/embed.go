// Package api carries the HTTP and event contracts of the METS services
package api

import _ "embed"

// OpenAPI is the REST contract served under /api/v1
//
//go:embed openapi.yaml
var OpenAPI []byte

// AsyncAPI describes the CloudEvents published on the METS topics
//
//go:embed asyncapi.yaml
var AsyncAPI []byte

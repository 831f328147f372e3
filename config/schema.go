//go:generate go run ../build/gen-config-schema.go schema.json

// Package config embeds the JSON schema of the build configuration file.
package config

import (
	_ "embed"
)

//go:embed "schema.json"
var schema []byte

// Schema returns the JSON schema build configuration files are validated
// against.
func Schema() []byte {
	return schema
}

// Package configs embeds the configuration template written by
// `docrank init --template`.
package configs

import _ "embed"

// ProjectConfigTemplate is a commented .docrank.yaml listing every key with
// its default value. Only version is set, so loading it changes nothing.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string

// Package configs provides embedded configuration templates for ragengine.
//
// How Configuration Templates Work:
//
// Templates are embedded at build time using Go's //go:embed directive.
// This ensures they are available in ALL distributions:
//   - Source builds (go install)
//   - Binary releases
//   - Homebrew installations
//
// The templates are exported as strings only: no ragengine subcommand
// writes them to disk, so a user copies them into place by hand:
//   - project-config.example.yaml → .ragengine.yaml in the documents project
//   - user-config.example.yaml → ~/.config/ragengine/config.yaml
//
// Template files:
//   - project-config.example.yaml: Project-specific settings (documents_dir, chunking, hybrid search)
//   - user-config.example.yaml: Machine-specific settings (embedding service, Ollama/transformers host)
//
// Configuration Hierarchy (see internal/config/config.go Load()):
//  1. Hardcoded defaults (internal/config/config.go NewConfig())
//  2. User config (~/.config/ragengine/config.yaml)
//  3. Project config (.ragengine.yaml)
//  4. Environment variables (RAGENGINE_*)
//
// To modify templates, edit the .yaml files in this directory and rebuild.
// Changes will be embedded in the next build.
package configs

import _ "embed"

// UserConfigTemplate is the template for user/machine-level configuration.
// Location: ~/.config/ragengine/config.yaml (read by config.Load)
// Contains: Machine-specific settings like the embedding service and host.
// Use case: Settings that apply to every documents directory on this machine.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is the template for project-level configuration.
// Location: .ragengine.yaml in the documents directory (read by config.Load).
// Contains: Project-specific settings like chunking, similarity, and hybrid
// search ratios.
// Use case: Settings that are version-controlled alongside the documents.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string

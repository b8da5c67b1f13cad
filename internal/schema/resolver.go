// Package schema resolves the request schema for a protocol action.
//
// Per-action schemas live in {dir}/{action}.yaml. When no per-action file
// exists, the resolver narrows the combined core schema ({dir}/core.yaml)
// to the sub-schema under paths["/{action}"]. Schema resolution never
// fails: a missing file only triggers the next fallback.
package schema

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/avvvet/beckn-intent/internal/models"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Schema is the structural template for one action's request body.
type Schema struct {
	Action     models.Action
	Definition map[string]any
}

// Resolver holds the loaded per-action schemas and the core fallback.
type Resolver struct {
	byAction map[models.Action]*Schema
	core     map[string]any
	logger   zerolog.Logger
}

// Load reads all available schema resources from dir. Per-action files and
// the core file are each optional; an entirely empty dir still yields a
// working resolver backed by the built-in default.
func Load(dir string, logger zerolog.Logger) (*Resolver, error) {
	r := &Resolver{
		byAction: make(map[models.Action]*Schema),
		logger:   logger.With().Str("component", "schema").Logger(),
	}

	for _, action := range models.OrderActions {
		def, err := loadYAML(filepath.Join(dir, string(action)+".yaml"))
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load schema for %s: %w", action, err)
			}
			continue
		}
		r.byAction[action] = &Schema{Action: action, Definition: def}
	}

	core, err := loadYAML(filepath.Join(dir, "core.yaml"))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load core schema: %w", err)
		}
		core = defaultCore()
		r.logger.Warn().Str("dir", dir).Msg("core schema missing, using built-in default")
	}
	r.core = core

	r.logger.Info().Int("schemas", len(r.byAction)).Msg("schemas loaded")
	return r, nil
}

// NewResolver builds a resolver from an explicit schema map, mainly for
// tests. A nil core falls back to the built-in default.
func NewResolver(byAction map[models.Action]*Schema, core map[string]any, logger zerolog.Logger) *Resolver {
	if byAction == nil {
		byAction = make(map[models.Action]*Schema)
	}
	if core == nil {
		core = defaultCore()
	}
	return &Resolver{byAction: byAction, core: core, logger: logger}
}

// Resolve returns the schema for an action. A dedicated schema wins; when
// absent the core schema is narrowed to the matching sub-path. The result
// is always a well-formed object tree.
func (r *Resolver) Resolve(action models.Action) *Schema {
	if s, ok := r.byAction[action]; ok {
		return s
	}

	def := map[string]any{}
	if paths, ok := r.core["paths"].(map[string]any); ok {
		if sub, ok := paths["/"+string(action)].(map[string]any); ok {
			def = map[string]any{
				"paths": map[string]any{
					"/" + string(action): sub,
				},
			}
		}
	}
	if len(def) == 0 {
		// Nothing matched; hand over the whole core document so the
		// composer still has structure to work from.
		def = r.core
	}

	r.logger.Debug().Str("action", string(action)).Msg("using core schema fallback")
	return &Schema{Action: action, Definition: def}
}

func loadYAML(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc := map[string]any{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// defaultCore is the minimal built-in combined schema used when no core
// file is deployed.
func defaultCore() map[string]any {
	body := func(messageProps map[string]any) map[string]any {
		return map[string]any{
			"post": map[string]any{
				"requestBody": map[string]any{
					"properties": map[string]any{
						"context": map[string]any{"type": "object"},
						"message": map[string]any{
							"type":       "object",
							"properties": messageProps,
						},
					},
					"required": []any{"context", "message"},
				},
			},
		}
	}

	return map[string]any{
		"paths": map[string]any{
			"/search": body(map[string]any{
				"intent": map[string]any{"type": "object"},
			}),
			"/select": body(map[string]any{
				"order": map[string]any{"type": "object"},
			}),
			"/init": body(map[string]any{
				"order": map[string]any{"type": "object"},
			}),
			"/confirm": body(map[string]any{
				"order": map[string]any{"type": "object"},
			}),
		},
	}
}

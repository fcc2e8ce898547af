package reconcile

import (
	"context"
	"fmt"

	"sidecar-sync/feature/sidecar/fields"
)

// Plugin is the narrow hook invoked between value extraction and diffing. A
// plugin may inspect and rewrite the proposed update set but cannot touch
// the library directly. Plugins are registered and validated at startup.
type Plugin interface {
	// Name identifies the plugin in logs and registration errors.
	Name() string
	// Transform receives the proposed column updates and the current record
	// and returns the (optionally modified) update set.
	Transform(ctx context.Context, proposed map[string]fields.TypedValue, current *Record) (map[string]fields.TypedValue, error)
}

// Register adds a plugin to the pipeline. It fails on an empty name or a
// duplicate, so misconfigured hooks surface at startup rather than mid-batch.
func (p *Pipeline) Register(plugin Plugin) error {
	if plugin == nil || plugin.Name() == "" {
		return fmt.Errorf("reconcile: plugin has no name")
	}
	for _, existing := range p.plugins {
		if existing.Name() == plugin.Name() {
			return fmt.Errorf("reconcile: plugin %q already registered", plugin.Name())
		}
	}
	p.plugins = append(p.plugins, plugin)
	return nil
}

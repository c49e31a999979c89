// Package strategies holds the per-type migration strategies and the
// default registry that wires them.
package strategies

import (
	"github.com/teranos/ngmigrate/migrate"
)

// Default returns a registry with a strategy for every legacy entity type.
func Default() *migrate.Registry {
	r := migrate.NewRegistry()
	r.Register(Application())
	r.Register(Service())
	r.Register(Environment())
	r.Register(Infrastructure())
	r.Register(Workflow())
	r.Register(Pipeline())
	r.Register(ConfigFile())
	r.Register(Template())
	r.Register(Secret())
	return r
}

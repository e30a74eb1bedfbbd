package app

import (
	"github.com/specialistvlad/paramgrid/internal/orchestrator"
	"github.com/specialistvlad/paramgrid/modules/gates"
	"github.com/specialistvlad/paramgrid/modules/topology"
)

// Module is a bundle of units compiled into the binary.
type Module interface {
	Register(o *orchestrator.Orchestrator) error
}

// coreModules returns every module compiled into the paramgrid binary, with
// default configuration.
func coreModules() []Module {
	return []Module{
		&topology.Module{Config: topology.DefaultConfig()},
		&gates.Module{Config: gates.DefaultConfig()},
	}
}

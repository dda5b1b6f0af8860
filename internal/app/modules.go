package app

import (
	"github.com/vk/phasebot/internal/catalog"
	"github.com/vk/phasebot/modules/simulate"
)

// coreModules builds the definitive list of capability modules compiled
// into the binary. The simulated world backs every component; live runs
// swap only the status/event source, not the capability surface.
func coreModules(world *simulate.World) []catalog.Module {
	return []catalog.Module{
		&simulate.Module{World: world},
	}
}

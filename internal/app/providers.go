package app

import (
	"github.com/vk/refgymgo/internal/registry"
	"github.com/vk/refgymgo/modules/epochlogger"
	"github.com/vk/refgymgo/modules/similaritygame"
	"github.com/vk/refgymgo/modules/tensorops"
)

// coreProviders is the definitive list of module providers compiled into
// the binary.
var coreProviders = []registry.Provider{
	&tensorops.Module{},
	&epochlogger.Module{},
	&similaritygame.Module{},
}

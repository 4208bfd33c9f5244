package inventory

import "go.uber.org/fx"

// Module provides the inventory consistency manager.
var Module = fx.Provide(NewManager)

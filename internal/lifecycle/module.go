package lifecycle

import "go.uber.org/fx"

// Module provides the pending-order state machine.
var Module = fx.Provide(NewMachine)

package score

import "go.uber.org/fx"

// Module provides a calculator using the default weights.
var Module = fx.Provide(func() (*Calculator, error) {
	return NewCalculator(DefaultWeights)
})

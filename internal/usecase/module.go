package usecase

import "go.uber.org/fx"

// Module provides the marketplace use cases to the fx container.
var Module = fx.Provide(
	NewAuthUseCase,
	NewOrderUseCase,
	NewReportUseCase,
)

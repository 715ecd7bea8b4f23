package station

import (
	"github.com/smallbiznis/airbill/internal/station/service"
	"go.uber.org/fx"
)

var Module = fx.Module("station.service",
	fx.Provide(service.New),
)

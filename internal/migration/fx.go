package migration

import (
	"strings"

	clientdomain "github.com/smallbiznis/airbill/internal/client/domain"
	"github.com/smallbiznis/airbill/internal/config"
	invoicedomain "github.com/smallbiznis/airbill/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/airbill/internal/payment/domain"
	ratedomain "github.com/smallbiznis/airbill/internal/rate/domain"
	"github.com/smallbiznis/airbill/internal/rollup"
	stationdomain "github.com/smallbiznis/airbill/internal/station/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if strings.EqualFold(cfg.DBType, "postgres") {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		// mysql and sqlite deployments lean on gorm's schema sync instead
		// of the versioned postgres migrations.
		return conn.AutoMigrate(
			&stationdomain.Station{},
			&clientdomain.Client{},
			&invoicedomain.Invoice{},
			&invoicedomain.InvoiceLine{},
			&paymentdomain.Payment{},
			&ratedomain.Rate{},
			&rollup.Backlog{},
		)
	}),
)

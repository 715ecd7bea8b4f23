package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/airbill/internal/client"
	clientdomain "github.com/smallbiznis/airbill/internal/client/domain"
	"github.com/smallbiznis/airbill/internal/config"
	"github.com/smallbiznis/airbill/internal/dashboard"
	"github.com/smallbiznis/airbill/internal/invoice"
	invoicedomain "github.com/smallbiznis/airbill/internal/invoice/domain"
	"github.com/smallbiznis/airbill/internal/observability"
	"github.com/smallbiznis/airbill/internal/payment"
	paymentdomain "github.com/smallbiznis/airbill/internal/payment/domain"
	"github.com/smallbiznis/airbill/internal/rate"
	ratedomain "github.com/smallbiznis/airbill/internal/rate/domain"
	"github.com/smallbiznis/airbill/internal/rollup"
	"github.com/smallbiznis/airbill/internal/station"
	stationdomain "github.com/smallbiznis/airbill/internal/station/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	observability.Module,
	fx.Provide(NewEngine),
	station.Module,
	client.Module,
	rollup.Module,
	invoice.Module,
	payment.Module,
	rate.Module,
	dashboard.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	stationSvc   stationdomain.Service
	clientSvc    clientdomain.Service
	invoiceSvc   invoicedomain.Service
	paymentSvc   paymentdomain.Service
	rateSvc      ratedomain.Service
	dashboardSvc *dashboard.Service
	rollupSvc    *rollup.Service
}

type ServerParams struct {
	fx.In

	Engine       *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	StationSvc   stationdomain.Service
	ClientSvc    clientdomain.Service
	InvoiceSvc   invoicedomain.Service
	PaymentSvc   paymentdomain.Service
	RateSvc      ratedomain.Service
	DashboardSvc *dashboard.Service
	RollupSvc    *rollup.Service
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:       p.Engine,
		cfg:          p.Cfg,
		log:          p.Log.Named("http.server"),
		stationSvc:   p.StationSvc,
		clientSvc:    p.ClientSvc,
		invoiceSvc:   p.InvoiceSvc,
		paymentSvc:   p.PaymentSvc,
		rateSvc:      p.RateSvc,
		dashboardSvc: p.DashboardSvc,
		rollupSvc:    p.RollupSvc,
	}
	s.RegisterRoutes()
	return s
}

func (s *Server) RegisterRoutes() {
	v1 := s.engine.Group("/v1")

	v1.GET("/station", s.GetStation)
	v1.PATCH("/station", s.UpdateStation)

	v1.POST("/clients", s.CreateClient)
	v1.GET("/clients", s.ListClients)
	v1.GET("/clients/:id", s.GetClientByID)
	v1.PATCH("/clients/:id", s.UpdateClient)
	v1.DELETE("/clients/:id", s.DeleteClient)
	v1.POST("/clients/:id/rollup", s.RefreshClientRollup)

	v1.POST("/invoices", s.CreateInvoice)
	v1.GET("/invoices", s.ListInvoices)
	v1.GET("/invoices/:id", s.GetInvoiceByID)
	v1.GET("/invoices/:id/snapshot", s.GetInvoiceSnapshot)
	v1.PATCH("/invoices/:id", s.UpdateInvoice)
	v1.DELETE("/invoices/:id", s.DeleteInvoice)

	v1.POST("/payments", s.RecordPayment)
	v1.GET("/payments", s.ListPayments)
	v1.GET("/payments/:id", s.GetPaymentByID)
	v1.GET("/payments/:id/receipt", s.GetPaymentReceipt)

	v1.POST("/rates", s.CreateRate)
	v1.GET("/rates", s.ListRates)
	v1.GET("/rates/:id", s.GetRateByID)
	v1.PATCH("/rates/:id", s.UpdateRate)
	v1.DELETE("/rates/:id", s.DeleteRate)

	v1.GET("/dashboard/summary", s.GetDashboardSummary)
}

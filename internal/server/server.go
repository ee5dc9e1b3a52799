package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/leasehold/internal/audit"
	auditdomain "github.com/smallbiznis/leasehold/internal/audit/domain"
	"github.com/smallbiznis/leasehold/internal/config"
	"github.com/smallbiznis/leasehold/internal/invoice"
	invoicedomain "github.com/smallbiznis/leasehold/internal/invoice/domain"
	"github.com/smallbiznis/leasehold/internal/lease"
	leasedomain "github.com/smallbiznis/leasehold/internal/lease/domain"
	"github.com/smallbiznis/leasehold/internal/lock"
	"github.com/smallbiznis/leasehold/internal/meter"
	meterdomain "github.com/smallbiznis/leasehold/internal/meter/domain"
	obslogger "github.com/smallbiznis/leasehold/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/leasehold/internal/observability/metrics"
	obstracing "github.com/smallbiznis/leasehold/internal/observability/tracing"
	"github.com/smallbiznis/leasehold/internal/payment"
	paymentdomain "github.com/smallbiznis/leasehold/internal/payment/domain"
	"github.com/smallbiznis/leasehold/internal/property"
	"github.com/smallbiznis/leasehold/internal/renter"
	"github.com/smallbiznis/leasehold/internal/utility"
	utilitydomain "github.com/smallbiznis/leasehold/internal/utility/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	property.Module,
	renter.Module,
	utility.Module,
	meter.Module,
	lock.Module,
	lease.Module,
	invoice.Module,
	payment.Module,
	audit.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log, obslogger.MiddlewareConfig{
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.Middleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if httpMetrics != nil {
		r.GET("/metrics", gin.WrapH(httpMetrics.Handler()))
	}

	return r
}

func registerGin(cfg config.Config, log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(log, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", srv.Addr))
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
	engine     *gin.Engine
	log        *zap.Logger
	utilitySvc utilitydomain.Service
	meterSvc   meterdomain.Service
	leaseSvc   leasedomain.Service
	invoiceSvc invoicedomain.Service
	paymentSvc paymentdomain.Service
	auditSvc   auditdomain.Service
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Log        *zap.Logger
	UtilitySvc utilitydomain.Service
	MeterSvc   meterdomain.Service
	LeaseSvc   leasedomain.Service
	InvoiceSvc invoicedomain.Service
	PaymentSvc paymentdomain.Service
	AuditSvc   auditdomain.Service `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		log:        p.Log.Named("http.handler"),
		utilitySvc: p.UtilitySvc,
		meterSvc:   p.MeterSvc,
		leaseSvc:   p.LeaseSvc,
		invoiceSvc: p.InvoiceSvc,
		paymentSvc: p.PaymentSvc,
		auditSvc:   p.AuditSvc,
	}

	svc.registerAPIRoutes()
	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", CallerRequired())

	api.GET("/utility-types", s.ListUtilityTypes)
	api.POST("/utility-types", s.CreateUtilityType)

	api.GET("/units/:id/utilities", s.ListUnitUtilities)
	api.PUT("/units/:id/utilities", s.UpsertUnitUtilities)
	api.GET("/units/:id/meter-readings", s.ListMeterReadings)

	api.GET("/leases", s.ListLeases)
	api.POST("/leases", s.CreateLease)
	api.GET("/leases/active", s.ListActiveLeases)
	api.GET("/leases/:id", s.GetLease)
	api.PATCH("/leases/:id", s.UpdateLease)
	api.DELETE("/leases/:id", s.DeleteLease)

	api.GET("/invoices", s.ListInvoices)
	api.POST("/invoices", s.CreateInvoice)
	api.GET("/invoices/:id", s.GetInvoiceByID)
	api.PATCH("/invoices/:id", s.UpdateInvoice)
	api.DELETE("/invoices/:id", s.DeleteInvoice)
	api.GET("/invoices/:id/pdf", s.DownloadInvoicePDF)

	api.GET("/payments", s.ListPayments)
	api.POST("/payments", s.CreatePayment)
	api.PATCH("/payments/:id", s.UpdatePayment)
	api.DELETE("/payments/:id", s.DeletePayment)

	api.GET("/audit-logs", s.ListAuditLogs)
}

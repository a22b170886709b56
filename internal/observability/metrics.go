package observability

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	ItemsAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_items_accepted_total",
			Help: "Records accepted by the ingestion pipeline",
		},
		[]string{"kind"},
	)
	ItemsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_items_dropped_total",
			Help: "Records dropped by the ingestion pipeline",
		},
		[]string{"reason"},
	)
	BrandsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_brands_created_total",
			Help: "Brand identities created during the run",
		},
	)
	BrandsUnresolved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_brands_unresolved_total",
			Help: "Products stored without a brand",
		},
	)
	Fetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawl_fetches_total",
			Help: "Page fetches by outcome",
		},
		[]string{"outcome"},
	)
	VisitsSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crawl_visits_skipped_total",
			Help: "Requests skipped because the resource was already visited",
		},
	)
)

func init() {
	prometheus.MustRegister(ItemsAccepted, ItemsDropped, BrandsCreated, BrandsUnresolved, Fetches, VisitsSkipped)
}

// NewServer serves /metrics and a JSON /status built by status.
func NewServer(status func() any) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, status())
	})
	return r
}

// Start runs the server on addr in the background.
func Start(addr string, status func() any) {
	srv := NewServer(status)
	go func() {
		if err := srv.Run(addr); err != nil {
			zap.L().Error("observability: server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
}

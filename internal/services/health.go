package services

import (
	"context"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/temcen/dishrec/internal/database"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

type namedCheck struct {
	name     string
	critical bool
	check    HealthCheck
}

type HealthService struct {
	logger  *logrus.Logger
	db      *database.Database
	checks  []namedCheck
	details map[string]func() interface{}

	healthCheckStatus   *prometheus.GaugeVec
	lastHealthCheck     *prometheus.GaugeVec
	dbConnectionMetrics *prometheus.GaugeVec
}

type HealthStatus struct {
	Status      string                 `json:"status"`
	Timestamp   time.Time              `json:"timestamp"`
	Services    map[string]string      `json:"services"`
	Critical    []string               `json:"critical_failures,omitempty"`
	NonCritical []string               `json:"non_critical_failures,omitempty"`
	Latency     time.Duration          `json:"latency,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

// NewHealthService registers a check for every connection present in db.
// Postgres is critical; the graph and Redis tiers are not.
func NewHealthService(logger *logrus.Logger, db *database.Database, reg prometheus.Registerer) *HealthService {
	hs := &HealthService{
		logger:  logger,
		db:      db,
		details: make(map[string]func() interface{}),
	}

	hs.healthCheckStatus = registerCollector(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "health_check_status",
		Help: "Health check status (1 = healthy, 0 = unhealthy)",
	}, []string{"service"}), logger)

	hs.lastHealthCheck = registerCollector(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "health_check_timestamp",
		Help: "Timestamp of last health check",
	}, []string{"service"}), logger)

	hs.dbConnectionMetrics = registerCollector(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "database_connection_pool_usage",
		Help: "Database connection pool statistics",
	}, []string{"database", "state"}), logger)

	if db != nil {
		if db.PG != nil {
			hs.AddCheck("postgresql", true, db.PG.Ping)
		}
		if db.Neo4j != nil {
			hs.AddCheck("neo4j", false, db.Neo4j.VerifyConnectivity)
		}
		if db.Redis != nil && db.Redis.Hot != nil {
			hot := db.Redis.Hot
			hs.AddCheck("redis_hot", false, func(ctx context.Context) error { return hot.Ping(ctx).Err() })
		}
		if db.Redis != nil && db.Redis.Warm != nil {
			warm := db.Redis.Warm
			hs.AddCheck("redis_warm", false, func(ctx context.Context) error { return warm.Ping(ctx).Err() })
		}
	}

	return hs
}

func (s *HealthService) AddCheck(name string, critical bool, check HealthCheck) {
	s.checks = append(s.checks, namedCheck{name: name, critical: critical, check: check})
}

// AddDetail attaches a value computed on every health report.
func (s *HealthService) AddDetail(name string, fn func() interface{}) {
	s.details[name] = fn
}

func (s *HealthService) CheckHealth(ctx context.Context) *HealthStatus {
	start := time.Now()
	status := &HealthStatus{
		Timestamp: start,
		Services:  make(map[string]string),
	}

	allCriticalHealthy := true
	for _, c := range s.checks {
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := c.check(checkCtx)
		cancel()

		if err != nil {
			status.Services[c.name] = "unhealthy"
			if c.critical {
				status.Critical = append(status.Critical, c.name)
				allCriticalHealthy = false
				s.logger.WithError(err).Errorf("Critical service %s is unhealthy", c.name)
			} else {
				status.NonCritical = append(status.NonCritical, c.name)
				s.logger.WithError(err).Warnf("Non-critical service %s is unhealthy", c.name)
			}
			s.UpdateHealthMetrics(c.name, false)
			continue
		}
		status.Services[c.name] = "healthy"
		s.UpdateHealthMetrics(c.name, true)
	}
	sort.Strings(status.Critical)
	sort.Strings(status.NonCritical)

	switch {
	case !allCriticalHealthy:
		status.Status = "unhealthy"
	case len(status.NonCritical) > 0:
		status.Status = "degraded"
	default:
		status.Status = "healthy"
	}

	if len(s.details) > 0 {
		status.Details = make(map[string]interface{}, len(s.details))
		for name, fn := range s.details {
			status.Details[name] = fn()
		}
	}

	s.collectDatabaseMetrics()
	status.Latency = time.Since(start)
	return status
}

func (s *HealthService) collectDatabaseMetrics() {
	if s.db == nil || s.db.PG == nil {
		return
	}
	stats := s.db.PG.Stat()

	s.dbConnectionMetrics.WithLabelValues("postgresql", "acquired_conns").Set(float64(stats.AcquiredConns()))
	s.dbConnectionMetrics.WithLabelValues("postgresql", "idle_conns").Set(float64(stats.IdleConns()))
	s.dbConnectionMetrics.WithLabelValues("postgresql", "max_conns").Set(float64(stats.MaxConns()))
	s.dbConnectionMetrics.WithLabelValues("postgresql", "total_conns").Set(float64(stats.TotalConns()))

	if stats.MaxConns() > 0 {
		usage := float64(stats.AcquiredConns()) / float64(stats.MaxConns()) * 100
		s.dbConnectionMetrics.WithLabelValues("postgresql", "usage_percent").Set(usage)
	}
}

func (s *HealthService) UpdateHealthMetrics(serviceName string, healthy bool) {
	if healthy {
		s.healthCheckStatus.WithLabelValues(serviceName).Set(1)
	} else {
		s.healthCheckStatus.WithLabelValues(serviceName).Set(0)
	}
	s.lastHealthCheck.WithLabelValues(serviceName).Set(float64(time.Now().Unix()))
}

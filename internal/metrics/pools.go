// AngelaMos | 2026
// pools.go

package metrics

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

type RedisStatsFunc func() *redis.PoolStats

// redisPoolCollector reads go-redis pool counters on every scrape.
type redisPoolCollector struct {
	stats RedisStatsFunc

	hits       *prometheus.Desc
	misses     *prometheus.Desc
	timeouts   *prometheus.Desc
	totalConns *prometheus.Desc
	idleConns  *prometheus.Desc
	staleConns *prometheus.Desc
}

func NewRedisPoolCollector(stats RedisStatsFunc) prometheus.Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("redis_pool_"+name, help, nil, nil)
	}

	return &redisPoolCollector{
		stats:      stats,
		hits:       desc("hits_total", "Times a free connection was found in the pool."),
		misses:     desc("misses_total", "Times a free connection was not found in the pool."),
		timeouts:   desc("timeouts_total", "Times a wait for a connection timed out."),
		totalConns: desc("connections", "Connections currently in the pool."),
		idleConns:  desc("idle_connections", "Idle connections in the pool."),
		staleConns: desc("stale_connections_total", "Stale connections removed from the pool."),
	}
}

func (c *redisPoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.timeouts
	ch <- c.totalConns
	ch <- c.idleConns
	ch <- c.staleConns
}

func (c *redisPoolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	if s == nil {
		return
	}

	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.timeouts, prometheus.CounterValue, float64(s.Timeouts))
	ch <- prometheus.MustNewConstMetric(c.totalConns, prometheus.GaugeValue, float64(s.TotalConns))
	ch <- prometheus.MustNewConstMetric(c.idleConns, prometheus.GaugeValue, float64(s.IdleConns))
	ch <- prometheus.MustNewConstMetric(c.staleConns, prometheus.CounterValue, float64(s.StaleConns))
}

// RegisterPools exposes database/sql and Redis connection pool statistics.
func RegisterPools(
	reg prometheus.Registerer,
	db *sql.DB,
	dbName string,
	redisStats RedisStatsFunc,
) {
	reg.MustRegister(
		collectors.NewDBStatsCollector(db, dbName),
		NewRedisPoolCollector(redisStats),
	)
}

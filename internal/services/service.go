package services

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strathlearn/api/internal/config"
	"github.com/strathlearn/api/internal/metrics"
)

type Service struct {
	pool    *pgxpool.Pool
	config  *config.Config
	metrics *metrics.Collector
}

func NewService(pool *pgxpool.Pool, config *config.Config, collector *metrics.Collector) *Service {
	return &Service{pool: pool, config: config, metrics: collector}
}

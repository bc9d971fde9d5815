package handlers

import (
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/valstats/matchcache/internal/logic"
	"github.com/valstats/matchcache/internal/worker"
)

// MaxBodySize limits the size of request bodies to 1MB
const MaxBodySize = 1048576

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// BackfillQueue defines the interface for the backfill worker pool
type BackfillQueue interface {
	Enqueue(req logic.FetchRequest) (string, bool)
	Status(id string) (worker.JobStatus, bool)
	QueueDepth() int
}

type Config struct {
	Matches logic.MatchService
	Pool    BackfillQueue
	// DefaultAuth is sent upstream when a request carries no Authorization header.
	DefaultAuth string
	Logger      *zap.Logger
}

type Handler struct {
	matches     logic.MatchService
	pool        BackfillQueue
	defaultAuth string
	logger      *zap.SugaredLogger
	validator   *validator.Validate
}

func New(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Handler{
		matches:     cfg.Matches,
		pool:        cfg.Pool,
		defaultAuth: cfg.DefaultAuth,
		logger:      cfg.Logger.Sugar(),
		validator:   validator.New(),
	}
}

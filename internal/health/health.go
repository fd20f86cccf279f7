package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"bocado/internal/platform/mongodb"
)

type Status struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Services  map[string]interface{} `json:"services"`
}

// SnapshotAgeFunc reports the recommender snapshot age in seconds, -1 when
// no snapshot has been loaded yet.
type SnapshotAgeFunc func() float64

type Service interface {
	Check(ctx context.Context) Status
}

type healthService struct {
	mongo       *mongodb.Service
	redisClient *redis.Client
	snapshotAge SnapshotAgeFunc
}

func NewService(mongo *mongodb.Service, redisClient *redis.Client, snapshotAge SnapshotAgeFunc) Service {
	return &healthService{
		mongo:       mongo,
		redisClient: redisClient,
		snapshotAge: snapshotAge,
	}
}

func (s *healthService) Check(ctx context.Context) Status {
	services := make(map[string]interface{})
	overall := "ok"

	mongoStatus := "ok"
	if err := s.mongo.Ping(ctx); err != nil {
		mongoStatus = "down"
		overall = "degraded"
	}
	services["mongodb"] = map[string]string{"status": mongoStatus}

	// A dead cache degrades latency, not correctness.
	redisStatus := "ok"
	if s.redisClient == nil {
		redisStatus = "disabled"
	} else if err := s.redisClient.Ping(ctx).Err(); err != nil {
		redisStatus = "down"
	}
	services["redis"] = map[string]string{"status": redisStatus}

	services["recommender"] = map[string]interface{}{
		"status":               "ok",
		"snapshot_age_seconds": s.snapshotAge(),
	}

	return Status{
		Status:    overall,
		Timestamp: time.Now(),
		Services:  services,
	}
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *gin.RouterGroup) {
	g.GET("/health", h.HealthCheck)
}

func (h *Handler) HealthCheck(c *gin.Context) {
	status := h.svc.Check(c.Request.Context())
	httpStatus := http.StatusOK
	if status.Status != "ok" {
		httpStatus = http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, status)
}

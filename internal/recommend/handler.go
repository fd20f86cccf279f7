package recommend

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers recommendation endpoints on the provided group.
func (h *Handler) RegisterRoutes(g *gin.RouterGroup) {
	g.POST("/recommend", h.Recommend)
	g.POST("/recommend/details", h.RecommendWithDetails)
	g.GET("/popular", h.Popular)
}

type recommendRequest struct {
	UserID string   `json:"user_id" binding:"required"`
	TopN   int      `json:"top_n"`
	Alpha  *float64 `json:"alpha"`
	Method string   `json:"method"`
}

func (h *Handler) Recommend(c *gin.Context) {
	var req recommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	recs := h.svc.Recommend(c.Request.Context(), Request{
		UserID: req.UserID,
		TopN:   req.TopN,
		Alpha:  req.Alpha,
		Method: req.Method,
	})
	c.JSON(http.StatusOK, gin.H{"recommendations": recs})
}

func (h *Handler) RecommendWithDetails(c *gin.Context) {
	var req recommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	recs, err := h.svc.RecommendWithDetails(c.Request.Context(), Request{
		UserID: req.UserID,
		TopN:   req.TopN,
		Alpha:  req.Alpha,
		Method: req.Method,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enrich recommendations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": recs})
}

func (h *Handler) Popular(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	dishes, err := h.svc.Popular(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rank popular dishes"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dishes": dishes})
}

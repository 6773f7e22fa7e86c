package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/soundshelf/internal/recommendations"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	requestIDHeader     = "X-Request-ID"
	requestIDContextKey = "soundshelf_request_id"
	unmatchedRoute      = "unmatched"
	allowAnyOrigin      = "*"
)

var (
	errMissingRecommendationService = errors.New("recommendation service dependency required")
)

// RecommendationService is the scoring and selection engine behind the HTTP surface.
type RecommendationService interface {
	Insert(ctx context.Context, name, link string) error
	Upvote(ctx context.Context, id int64) error
	Downvote(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (recommendations.Recommendation, error)
	List(ctx context.Context) ([]recommendations.Recommendation, error)
	ListTop(ctx context.Context, amount int) ([]recommendations.Recommendation, error)
	GetRandom(ctx context.Context) (recommendations.Recommendation, error)
	Reset(ctx context.Context) error
}

type Dependencies struct {
	RecommendationService RecommendationService
	Logger                *zap.Logger
	AllowedOrigins        []string
	// VoteRatePerMinute limits votes per client IP; zero disables limiting.
	VoteRatePerMinute int
	// EnableReset registers POST /reset-database.
	EnableReset bool
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.RecommendationService == nil {
		return nil, errMissingRecommendationService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, err
	}
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(deps.AllowedOrigins))

	handler := &httpHandler{
		recommendations: deps.RecommendationService,
		logger:          logger,
		voteLimiter:     newVoteLimiter(deps.VoteRatePerMinute),
	}

	router.Use(handler.assignRequestID)
	router.Use(handler.observeRequest)

	router.GET("/healthz", handler.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/recommendations", handler.handleCreateRecommendation)
	router.GET("/recommendations", handler.handleListRecommendations)
	router.GET("/recommendations/random", handler.handleRandomRecommendation)
	router.GET("/recommendations/top/:amount", handler.handleTopRecommendations)
	router.GET("/recommendations/:id", handler.handleGetRecommendation)
	router.POST("/recommendations/:id/upvote", handler.limitVotes, handler.handleUpvote)
	router.POST("/recommendations/:id/downvote", handler.limitVotes, handler.handleDownvote)

	if deps.EnableReset {
		router.POST("/reset-database", handler.handleResetDatabase)
	}

	return router, nil
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Content-Type", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	origins := make([]string, 0, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == allowAnyOrigin {
			config.AllowAllOrigins = true
			origins = nil
			break
		}
		origins = append(origins, origin)
	}
	if !config.AllowAllOrigins {
		if len(origins) == 0 {
			config.AllowAllOrigins = true
		} else {
			config.AllowOrigins = origins
		}
	}
	return cors.New(config)
}

type httpHandler struct {
	recommendations RecommendationService
	logger          *zap.Logger
	voteLimiter     *voteLimiter
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) handleCreateRecommendation(c *gin.Context) {
	var request createRecommendationPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_request"})
		return
	}

	draft := request.draft()
	if reason := validateDraft(draft); reason != "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": reason})
		return
	}

	if err := h.recommendations.Insert(c.Request.Context(), draft.Name, draft.Link); err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (h *httpHandler) handleListRecommendations(c *gin.Context) {
	records, err := h.recommendations.List(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *httpHandler) handleRandomRecommendation(c *gin.Context) {
	record, err := h.recommendations.GetRandom(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *httpHandler) handleTopRecommendations(c *gin.Context) {
	amount, err := recommendations.ParseAmount(c.Param("amount"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_amount"})
		return
	}
	records, err := h.recommendations.ListTop(c.Request.Context(), amount)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *httpHandler) handleGetRecommendation(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	record, err := h.recommendations.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *httpHandler) handleUpvote(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.recommendations.Upvote(c.Request.Context(), id); err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *httpHandler) handleDownvote(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.recommendations.Downvote(c.Request.Context(), id); err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *httpHandler) handleResetDatabase(c *gin.Context) {
	if err := h.recommendations.Reset(c.Request.Context()); err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func parseIDParam(c *gin.Context) (int64, bool) {
	id, err := recommendations.ParseRecommendationID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_id"})
		return 0, false
	}
	return id, true
}

func (h *httpHandler) respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, recommendations.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, recommendations.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict"})
	default:
		code := ""
		var serviceErr *recommendations.ServiceError
		if errors.As(err, &serviceErr) {
			code = serviceErr.Code()
		}
		h.logger.Error("recommendation request failed",
			zap.String("code", code),
			zap.String("request_id", c.GetString(requestIDContextKey)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "code": code})
	}
}

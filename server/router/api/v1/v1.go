package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/studyquest/internal/profile"
	"github.com/hrygo/studyquest/server/auth"
	"github.com/hrygo/studyquest/server/internal/observability"
	studymiddleware "github.com/hrygo/studyquest/server/middleware"
	"github.com/hrygo/studyquest/server/service/study"
)

// APIV1Service serves the JSON study API under /api/v1.
type APIV1Service struct {
	Profile       *profile.Profile
	Study         study.Service
	Authenticator *auth.Authenticator
	RateLimiter   *studymiddleware.RateLimiter
	Metrics       *observability.Metrics
	Logger        *slog.Logger

	// CacheStats reports snapshot cache state for the metrics endpoint.
	CacheStats func() map[string]any
}

func NewAPIV1Service(profile *profile.Profile, svc study.Service) *APIV1Service {
	return &APIV1Service{
		Profile:       profile,
		Study:         svc,
		Authenticator: auth.NewAuthenticator(profile.Secret),
		RateLimiter:   studymiddleware.NewRateLimiter(profile.RateLimitPerSecond, profile.RateLimitBurst),
		Metrics:       observability.NewMetrics(),
		Logger:        slog.Default(),
	}
}

// Register mounts the API routes on the echo instance.
func (s *APIV1Service) Register(e *echo.Echo) {
	e.HTTPErrorHandler = s.errorHandler

	api := e.Group("/api/v1", middleware.CORS(), s.observe)
	api.GET("/modes", s.ListModes)
	api.GET("/achievements", s.ListAchievements)
	api.GET("/estimate", s.GetEstimate)
	api.GET("/system/metrics", s.GetMetricsOverview)

	studyGroup := api.Group("/study", s.authenticate)
	studyGroup.GET("/profile", s.GetProfile)
	studyGroup.DELETE("/profile", s.ResetProfile)
	studyGroup.POST("/sessions", s.StartSession)
	studyGroup.GET("/sessions/:id", s.GetSession)
	studyGroup.POST("/sessions/:id/reviews", s.RecordReview, studymiddleware.RateLimit(s.RateLimiter, func(c echo.Context) string {
		userID, _ := auth.UserIDFromContext(c.Request().Context())
		return userID
	}))
	studyGroup.POST("/sessions/:id/finish", s.FinishSession)
	studyGroup.GET("/due", s.ListDueCards)
	studyGroup.GET("/report", s.GetReport)
	studyGroup.GET("/feed.atom", s.GetAtomFeed)
	studyGroup.GET("/feed.rss", s.GetRSSFeed)

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})
}

package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/studyquest/plugin/gamification"
	studyerrors "github.com/hrygo/studyquest/server/internal/errors"
	"github.com/hrygo/studyquest/server/service/study"
)

// StartSessionRequest is the body of POST /study/sessions.
type StartSessionRequest struct {
	Mode string `json:"mode"`
}

// ListModes returns the game mode registry.
// GET /api/v1/modes
func (s *APIV1Service) ListModes(c echo.Context) error {
	return c.JSON(http.StatusOK, gamification.Modes())
}

// ListAchievements returns the achievement catalog.
// GET /api/v1/achievements
func (s *APIV1Service) ListAchievements(c echo.Context) error {
	return c.JSON(http.StatusOK, gamification.Achievements())
}

// GetEstimate returns the advisory XP and duration of a round.
// GET /api/v1/estimate?mode=&round=
func (s *APIV1Service) GetEstimate(c echo.Context) error {
	mode := c.QueryParam("mode")
	if mode == "" {
		mode = string(gamification.ModeNormal)
	}
	round, err := intQueryParam(c, "round", 0)
	if err != nil {
		return err
	}
	est, err := s.Study.Estimate(mode, round)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, est)
}

// GetProfile returns the caller's profile with derived values.
// GET /api/v1/study/profile
func (s *APIV1Service) GetProfile(c echo.Context) error {
	view, err := s.Study.GetProfile(c.Request().Context(), userIDFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

// ResetProfile wipes the caller's study data.
// DELETE /api/v1/study/profile
func (s *APIV1Service) ResetProfile(c echo.Context) error {
	if err := s.Study.ResetProfile(c.Request().Context(), userIDFrom(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// StartSession opens a session in the requested mode.
// POST /api/v1/study/sessions
func (s *APIV1Service) StartSession(c echo.Context) error {
	req := &StartSessionRequest{}
	if err := c.Bind(req); err != nil {
		return studyerrors.Wrap(err, studyerrors.ErrCodeInvalidArgument, "invalid request body")
	}
	if req.Mode == "" {
		req.Mode = string(gamification.ModeNormal)
	}
	session, err := s.Study.StartSession(c.Request().Context(), userIDFrom(c), req.Mode)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, session)
}

// GetSession returns a session of the caller.
// GET /api/v1/study/sessions/:id
func (s *APIV1Service) GetSession(c echo.Context) error {
	session, err := s.Study.GetSession(c.Request().Context(), userIDFrom(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}

// RecordReview rates one card inside a session.
// POST /api/v1/study/sessions/:id/reviews
func (s *APIV1Service) RecordReview(c echo.Context) error {
	req := &study.ReviewRequest{}
	if err := c.Bind(req); err != nil {
		return studyerrors.Wrap(err, studyerrors.ErrCodeInvalidArgument, "invalid request body")
	}
	result, err := s.Study.RecordReview(c.Request().Context(), userIDFrom(c), c.Param("id"), req)
	if err != nil {
		return err
	}
	s.Metrics.RecordReview()
	return c.JSON(http.StatusOK, result)
}

// FinishSession closes a session and grants its XP.
// POST /api/v1/study/sessions/:id/finish
func (s *APIV1Service) FinishSession(c echo.Context) error {
	summary, err := s.Study.FinishSession(c.Request().Context(), userIDFrom(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

// ListDueCards lists the caller's cards due within a window.
// GET /api/v1/study/due?within_hours=&filter=
func (s *APIV1Service) ListDueCards(c echo.Context) error {
	within, err := intQueryParam(c, "within_hours", study.DefaultDueWindowHours)
	if err != nil {
		return err
	}
	due, err := s.Study.ListDueCards(c.Request().Context(), userIDFrom(c), within, c.QueryParam("filter"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"cards": due, "count": len(due)})
}

// GetReport renders the caller's study report as an HTML page.
// GET /api/v1/study/report
func (s *APIV1Service) GetReport(c echo.Context) error {
	report, err := s.Study.Report(c.Request().Context(), userIDFrom(c))
	if err != nil {
		return err
	}
	if c.QueryParam("format") == "json" {
		return c.JSON(http.StatusOK, report)
	}
	body, err := report.HTML()
	if err != nil {
		return studyerrors.Internal("failed to render report", err)
	}
	return c.HTML(http.StatusOK, "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Study report</title></head><body>\n"+body+"</body></html>\n")
}

func intQueryParam(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, studyerrors.Wrap(err, studyerrors.ErrCodeInvalidArgument, name+" must be an integer")
	}
	return v, nil
}

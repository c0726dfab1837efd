package v1

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/studyquest/server/auth"
	studyerrors "github.com/hrygo/studyquest/server/internal/errors"
	"github.com/hrygo/studyquest/server/internal/observability"
)

// HeaderRequestID carries a caller supplied request id.
const HeaderRequestID = "X-Request-Id"

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Code    studyerrors.ErrorCode `json:"code"`
	Message string                `json:"message"`
}

// observe attaches a request context, then logs and counts the request.
func (s *APIV1Service) observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		operation := req.Method + " " + c.Path()
		rc := observability.NewRequestContextWithID(s.Logger, req.Header.Get(HeaderRequestID), operation, "")
		c.SetRequest(req.WithContext(observability.WithRequestContext(req.Context(), rc)))
		c.Response().Header().Set(HeaderRequestID, rc.RequestID)

		err := next(c)

		duration := rc.Duration()
		s.Metrics.RecordRequest(operation, duration, err != nil)
		if err != nil {
			se := toStudyError(err)
			attrs := []slog.Attr{
				slog.Int64(observability.LogFieldDuration, duration.Milliseconds()),
				slog.String(observability.LogFieldErrorCode, string(se.Code)),
			}
			if se.Code == studyerrors.ErrCodeInternal {
				rc.Error("request failed", err, attrs...)
			} else {
				rc.Info("request rejected", append(attrs, slog.String("message", se.Message))...)
			}
			return err
		}
		rc.Debug("request completed", slog.Int64(observability.LogFieldDuration, duration.Milliseconds()))
		return nil
	}
}

// authenticate requires a valid bearer token and stores the learner id.
func (s *APIV1Service) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		claims, err := s.Authenticator.Authenticate(req.Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return studyerrors.Wrap(err, studyerrors.ErrCodeUnauthorized, "authentication required")
		}

		ctx := auth.WithUserID(req.Context(), claims.Subject)
		if rc, ok := observability.FromContext(ctx); ok {
			rc.UserID = claims.Subject
		}
		c.SetRequest(req.WithContext(ctx))
		return next(c)
	}
}

func (s *APIV1Service) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	se := toStudyError(err)

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(se.HTTPStatus())
	} else {
		writeErr = c.JSON(se.HTTPStatus(), ErrorResponse{Code: se.Code, Message: se.Message})
	}
	if writeErr != nil {
		s.Logger.Error("failed to write error response", "error", writeErr)
	}
}

// toStudyError maps echo routing errors and plain errors onto StudyError.
func toStudyError(err error) *studyerrors.StudyError {
	var he *echo.HTTPError
	if stderrors.As(err, &he) {
		msg := fmt.Sprint(he.Message)
		switch he.Code {
		case http.StatusBadRequest:
			return studyerrors.Wrap(err, studyerrors.ErrCodeInvalidArgument, msg)
		case http.StatusUnauthorized:
			return studyerrors.Wrap(err, studyerrors.ErrCodeUnauthorized, msg)
		case http.StatusNotFound, http.StatusMethodNotAllowed:
			return studyerrors.Wrap(err, studyerrors.ErrCodeNotFound, msg)
		case http.StatusTooManyRequests:
			return studyerrors.Wrap(err, studyerrors.ErrCodeRateLimitExceeded, msg)
		}
	}
	return studyerrors.From(err)
}

func userIDFrom(c echo.Context) string {
	userID, _ := auth.UserIDFromContext(c.Request().Context())
	return userID
}

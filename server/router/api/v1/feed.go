package v1

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"github.com/labstack/echo/v4"

	"github.com/hrygo/studyquest/plugin/gamification"
	studyerrors "github.com/hrygo/studyquest/server/internal/errors"
	"github.com/hrygo/studyquest/server/service/study"
)

// GetAtomFeed returns the caller's study activity as Atom.
// GET /api/v1/study/feed.atom
func (s *APIV1Service) GetAtomFeed(c echo.Context) error {
	feed, err := s.activityFeed(c)
	if err != nil {
		return err
	}
	atom, err := feed.ToAtom()
	if err != nil {
		return studyerrors.Internal("failed to render atom feed", err)
	}
	return c.Blob(http.StatusOK, "application/atom+xml; charset=utf-8", []byte(atom))
}

// GetRSSFeed returns the caller's study activity as RSS.
// GET /api/v1/study/feed.rss
func (s *APIV1Service) GetRSSFeed(c echo.Context) error {
	feed, err := s.activityFeed(c)
	if err != nil {
		return err
	}
	rss, err := feed.ToRss()
	if err != nil {
		return studyerrors.Internal("failed to render rss feed", err)
	}
	return c.Blob(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(rss))
}

func (s *APIV1Service) activityFeed(c echo.Context) (*feeds.Feed, error) {
	view, err := s.Study.GetProfile(c.Request().Context(), userIDFrom(c))
	if err != nil {
		return nil, err
	}
	baseURL := c.Scheme() + "://" + c.Request().Host
	return buildActivityFeed(view, baseURL), nil
}

// buildActivityFeed turns the daily history into feed items, newest first.
// Achievements carry no unlock date, so they are listed on the newest day.
func buildActivityFeed(view *study.ProfileView, baseURL string) *feeds.Feed {
	p := view.Profile
	reportURL := baseURL + "/api/v1/study/report"

	feed := &feeds.Feed{
		Title:       fmt.Sprintf("Study activity of %s", view.UserID),
		Link:        &feeds.Link{Href: reportURL},
		Description: fmt.Sprintf("Level %d, %d XP, %d day streak", view.Level.Level, p.XP, p.DailyStreak),
		Author:      &feeds.Author{Name: view.UserID},
	}

	for i := len(p.DailyHistory) - 1; i >= 0; i-- {
		h := p.DailyHistory[i]
		day, err := time.Parse(gamification.DateLayout, h.Date)
		if err != nil {
			continue
		}
		description := fmt.Sprintf("Reviewed %d cards, %d correct, earned %d XP.", h.Reviewed, h.Correct, h.XP)
		if i == len(p.DailyHistory)-1 && len(view.Achievements) > 0 {
			titles := make([]string, 0, len(view.Achievements))
			for _, a := range view.Achievements {
				titles = append(titles, a.Title)
			}
			description += " Achievements: " + strings.Join(titles, ", ") + "."
		}
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          fmt.Sprintf("%s/%s", view.UserID, h.Date),
			Title:       fmt.Sprintf("%s: %d cards reviewed", h.Date, h.Reviewed),
			Link:        &feeds.Link{Href: reportURL + "#" + h.Date},
			Description: description,
			Created:     day,
		})
		if feed.Updated.IsZero() {
			feed.Updated = day
			feed.Created = day
		}
	}
	return feed
}

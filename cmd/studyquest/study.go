package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hrygo/studyquest/plugin/gamification"
	"github.com/hrygo/studyquest/server/auth"
	"github.com/hrygo/studyquest/server/service/study"
)

var modesCmd = &cobra.Command{
	Use:   "modes",
	Short: "List game modes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "MODE\tXP\tTIMER\tENDS ON MISS\tDESCRIPTION")
		for _, m := range gamification.Modes() {
			timer := "-"
			if m.HasTimer() {
				timer = fmt.Sprintf("%ds", m.TimerSeconds)
			}
			fmt.Fprintf(w, "%s\tx%.2f\t%s\t%t\t%s\n", m.ID, m.XPMultiplier, timer, m.EndsOnAgain, m.Description)
		}
		return w.Flush()
	},
}

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate XP and duration of a round",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		game, _ := cmd.Flags().GetString("game")
		round, _ := cmd.Flags().GetInt("round")
		est, err := study.NewService(nil, study.Options{}).Estimate(game, round)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s round of %d cards: ~%d XP, ~%d min\n", est.Mode, est.RoundSize, est.XP, est.DurationMinutes)
		return nil
	},
}

var reviewCmd = &cobra.Command{
	Use:   "review card:rating...",
	Short: "Record a study session, e.g. review go-maps:easy sql-joins:again",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		game, _ := cmd.Flags().GetString("game")
		reviews, err := parseReviewArgs(args)
		if err != nil {
			return err
		}

		return withService(cmd, func(ctx context.Context, svc study.Service) error {
			session, err := svc.StartSession(ctx, userID, game)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, req := range reviews {
				res, err := svc.RecordReview(ctx, userID, session.ID, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-20s %-6s next in %d day(s), mastery %d\n", req.CardID, req.Rating, res.Outcome.Card.IntervalDays, res.Outcome.Card.MasteryScore)
				if res.SessionEnded {
					fmt.Fprintln(out, "session ended")
					break
				}
			}

			summary, err := svc.FinishSession(ctx, userID, session.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "+%d XP, level %d (%d/%d)\n", summary.XPEarned, summary.Level.Level, summary.Level.XPInLevel, summary.Level.XPToNext)
			if summary.LeveledUp {
				fmt.Fprintln(out, "level up!")
			}
			for _, id := range summary.NewAchievements {
				fmt.Fprintf(out, "achievement unlocked: %s\n", id)
			}
			return nil
		})
	},
}

var dueCmd = &cobra.Command{
	Use:   "due",
	Short: "List cards due for review",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		userID, _ := cmd.Flags().GetString("user")
		within, _ := cmd.Flags().GetInt("within")
		filterExpr, _ := cmd.Flags().GetString("filter")

		return withService(cmd, func(ctx context.Context, svc study.Service) error {
			due, err := svc.ListDueCards(ctx, userID, within, filterExpr)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(due) == 0 {
				fmt.Fprintln(out, "nothing due")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CARD\tDUE\tINTERVAL\tMASTERY\tLAPSES")
			for _, d := range due {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n", d.CardID, d.DueAt.Format(time.RFC3339), d.State.IntervalDays, d.State.MasteryScore, d.State.Lapses)
			}
			return w.Flush()
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the study report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		userID, _ := cmd.Flags().GetString("user")
		return withService(cmd, func(ctx context.Context, svc study.Service) error {
			report, err := svc.Report(ctx, userID)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), report.Markdown())
			return nil
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all study data of a learner",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		userID, _ := cmd.Flags().GetString("user")
		return withService(cmd, func(ctx context.Context, svc study.Service) error {
			if err := svc.ResetProfile(ctx, userID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "profile of %s reset\n", userID)
			return nil
		})
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign a development access token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		userID, _ := cmd.Flags().GetString("user")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		p, err := loadProfile()
		if err != nil {
			return err
		}
		token, err := auth.NewAuthenticator(p.Secret).GenerateAccessToken(userID, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{reviewCmd, dueCmd, statsCmd, resetCmd, tokenCmd} {
		c.Flags().String("user", "demo", "learner id")
	}
	for _, c := range []*cobra.Command{reviewCmd, estimateCmd} {
		c.Flags().String("game", string(gamification.ModeNormal), "game mode: normal, rapid, survival or mastery")
	}
	estimateCmd.Flags().Int("round", 10, "number of cards in the round")
	dueCmd.Flags().Int("within", study.DefaultDueWindowHours, "look-ahead window in hours")
	dueCmd.Flags().String("filter", "", `CEL filter, e.g. "mastery < 50 && lapses > 0"`)
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
}

// parseReviewArgs parses "card:rating" pairs.
func parseReviewArgs(args []string) ([]*study.ReviewRequest, error) {
	reviews := make([]*study.ReviewRequest, 0, len(args))
	for _, arg := range args {
		idx := strings.LastIndex(arg, ":")
		if idx <= 0 || idx == len(arg)-1 {
			return nil, errors.Errorf("expected card:rating, got %q", arg)
		}
		rating, err := gamification.ParseRating(arg[idx+1:])
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, &study.ReviewRequest{CardID: arg[:idx], Rating: string(rating)})
	}
	return reviews, nil
}

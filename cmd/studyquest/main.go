package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/studyquest/internal/profile"
	"github.com/hrygo/studyquest/internal/version"
	"github.com/hrygo/studyquest/server"
	"github.com/hrygo/studyquest/server/service/study"
	"github.com/hrygo/studyquest/store"
	"github.com/hrygo/studyquest/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "studyquest",
	Short: `Flashcard study engine with spaced repetition, XP, streaks and achievements.`,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		setupLogger(viper.GetString("mode"))
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		instanceProfile, err := loadProfile()
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		storeInstance, err := openStore(ctx, instanceProfile)
		if err != nil {
			return err
		}
		defer storeInstance.Close()

		s, err := server.NewServer(ctx, instanceProfile, storeInstance)
		if err != nil {
			return errors.Wrap(err, "failed to create server")
		}
		printGreetings(cmd, instanceProfile)
		return s.Run(ctx)
	},
}

func init() {
	viper.SetDefault("mode", "demo")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8081)

	flags := rootCmd.PersistentFlags()
	flags.String("mode", "demo", `mode of server, can be "prod" or "dev" or "demo"`)
	flags.String("addr", "", "address of server")
	flags.Int("port", 8081, "port of server")
	flags.String("data", "", "data directory")
	flags.String("driver", "sqlite", "database driver, sqlite or postgres")
	flags.String("dsn", "", "database source name")
	flags.String("secret", "", "HMAC key shared with the auth service")

	for _, name := range []string{"mode", "addr", "port", "data", "driver", "dsn", "secret"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("studyquest")
	viper.AutomaticEnv()

	rootCmd.AddCommand(serveCmd, modesCmd, estimateCmd, reviewCmd, dueCmd, statsCmd, resetCmd, tokenCmd)
}

// loadProfile builds the validated profile from flags and STUDYQUEST_* variables.
func loadProfile() (*profile.Profile, error) {
	mode := viper.GetString("mode")
	p := &profile.Profile{
		Mode:    mode,
		Addr:    viper.GetString("addr"),
		Port:    viper.GetInt("port"),
		Data:    viper.GetString("data"),
		Driver:  viper.GetString("driver"),
		DSN:     viper.GetString("dsn"),
		Version: version.GetCurrentVersion(mode),
	}
	p.FromEnv()
	if secret := viper.GetString("secret"); secret != "" {
		p.Secret = secret
	}
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return p, nil
}

func openStore(ctx context.Context, p *profile.Profile) (*store.Store, error) {
	dbDriver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	storeInstance := store.New(dbDriver, p)
	if err := storeInstance.Migrate(ctx); err != nil {
		storeInstance.Close()
		return nil, errors.Wrap(err, "failed to migrate")
	}
	return storeInstance, nil
}

// withService opens the store and runs fn against a study service.
func withService(cmd *cobra.Command, fn func(ctx context.Context, svc study.Service) error) error {
	p, err := loadProfile()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	storeInstance, err := openStore(ctx, p)
	if err != nil {
		return err
	}
	defer storeInstance.Close()
	return fn(ctx, study.NewService(storeInstance, study.Options{SessionTTL: p.SessionTTL}))
}

func setupLogger(mode string) {
	var handler slog.Handler
	if mode == "prod" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(handler))
}

func printGreetings(cmd *cobra.Command, p *profile.Profile) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "StudyQuest %s started successfully!\n", p.Version)
	if p.IsDev() {
		fmt.Fprintf(out, "Running in %s mode, data directory: %s, driver: %s\n", p.Mode, p.Data, p.Driver)
	}
	addr := p.Addr
	if addr == "" {
		addr = "localhost"
	}
	fmt.Fprintf(out, "API: http://%s:%d/api/v1\n", addr, p.Port)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

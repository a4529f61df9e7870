package cli

import (
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quizlive-service/internal/app"
	"quizlive-service/internal/config"
	pginfra "quizlive-service/internal/infra/postgres"
)

// NewReapCmd runs one stale-session sweep and exits. It is the out-of-band
// administrative trigger; the server also sweeps on its own interval.
func NewReapCmd(configPath *string) *cobra.Command {
	var thresholdFlag string
	cmd := &cobra.Command{
		Use:   "reap",
		Short: "Force-end sessions abandoned beyond the staleness threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			defer logger.Sync()

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()

			service := app.NewGameService(
				pginfra.NewSessionRepo(pool),
				pginfra.NewPlayerRepo(pool),
				pginfra.NewAnswerRepo(pool),
				pginfra.NewQuestionBank(pool),
				logger,
			)

			threshold := config.Duration(thresholdFlag, config.Duration(cfg.Game.StaleAfter, app.DefaultStaleThreshold))
			report, err := service.ReapStaleSessions(ctx, time.Now(), threshold)
			if err != nil {
				return err
			}
			logger.Info("reap complete",
				zap.Int("stale_found", report.StaleFound),
				zap.Int("ended", report.Ended))
			return nil
		},
	}
	cmd.Flags().StringVar(&thresholdFlag, "threshold", "", "staleness threshold (e.g. 2h), defaults to config")
	return cmd
}

package db

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"takehome/internal/domain/salary"
	"takehome/internal/platform/config"
)

// Seed copies the configured rule files into rule_sets for categories that
// have no stored rows.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config, logger *slog.Logger) error {
	files := salary.NewFileSource(cfg.MedicareLevyRules, cfg.BudgetRepairLevyRules, cfg.IncomeTaxRules, logger)
	return salary.SeedFromFiles(ctx, salary.NewStore(pool), files)
}

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"takehome/internal/domain/audit"
	"takehome/internal/domain/salary"
	"takehome/internal/platform/db"
)

func rulesCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and publish deduction rule files",
	}
	cmd.AddCommand(rulesCheckCmd(global), rulesImportCmd(global))
	return cmd
}

func rulesCheckCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load the rule files and report what was accepted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := global.setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			files := salary.NewFileSource(cfg.MedicareLevyRules, cfg.BudgetRepairLevyRules, cfg.IncomeTaxRules, logger)
			book, checkErr := files.Check()
			writeRuleSummary(cmd.OutOrStdout(), book)
			return checkErr
		},
	}
}

// rulesImportCmd replaces the stored rule sets with the current files.
func rulesImportCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Replace the rule_sets table with the configured rule files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := global.setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required to import rules")
			}
			files := salary.NewFileSource(cfg.MedicareLevyRules, cfg.BudgetRepairLevyRules, cfg.IncomeTaxRules, logger)
			book, err := files.Check()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := db.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("db connect failed: %w", err)
			}
			defer pool.Close()
			if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
				return fmt.Errorf("migrations failed: %w", err)
			}

			store := salary.NewStore(pool)
			before, err := salary.NewDBSource(store, logger).LoadRuleBook(ctx)
			if err != nil {
				return err
			}
			for _, category := range salary.Categories {
				set, _ := book.Set(category)
				if err := store.ReplaceRules(ctx, category, set.Source, set.Rules()); err != nil {
					return err
				}
			}
			if err := audit.New(pool).Record(ctx, cliActor(), audit.ActionRulesImport, audit.EntityRuleBook, "all", "", "", before.Counts(), book.Counts()); err != nil {
				logger.Warn("audit record failed", "err", err)
			}
			writeRuleSummary(cmd.OutOrStdout(), book)
			return nil
		},
	}
}

func writeRuleSummary(w io.Writer, book salary.RuleBook) {
	for _, category := range salary.Categories {
		set, _ := book.Set(category)
		fmt.Fprintf(w, "%-20s %2d rules, %d skipped (%s)\n", category, set.Len(), set.Skipped, set.Source)
	}
}

func cliActor() string {
	if user := os.Getenv("USER"); user != "" {
		return "cli:" + user
	}
	return "cli"
}

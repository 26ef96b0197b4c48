package salary

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StoredRule struct {
	Position int
	Source   string
	Rule     ThresholdRule
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.DB.Ping(ctx)
}

func (s *Store) ListRules(ctx context.Context, category Category) ([]StoredRule, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT position, source, lower_threshold, upper_threshold, expression
    FROM rule_sets
    WHERE category = $1
    ORDER BY position
  `, string(category))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredRule
	for rows.Next() {
		var item StoredRule
		if err := rows.Scan(&item.Position, &item.Source, &item.Rule.Lower, &item.Rule.Upper, &item.Rule.Expression); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *Store) CountRules(ctx context.Context, category Category) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM rule_sets WHERE category = $1", string(category)).Scan(&count)
	return count, err
}

// ReplaceRules swaps the stored rows of one category in a single transaction.
func (s *Store) ReplaceRules(ctx context.Context, category Category, source string, rules []ThresholdRule) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "DELETE FROM rule_sets WHERE category = $1", string(category)); err != nil {
		return fmt.Errorf("clear %s rules: %w", category, err)
	}

	batch := &pgx.Batch{}
	for i, rule := range rules {
		batch.Queue(`
      INSERT INTO rule_sets (category, position, source, lower_threshold, upper_threshold, expression)
      VALUES ($1,$2,$3,$4,$5,$6)
    `, string(category), i, source, rule.Lower, rule.Upper, rule.Expression)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert %s rules: %w", category, err)
		}
	}
	return tx.Commit(ctx)
}

// DBSource reads rule books from a StoreAPI. A category whose query fails
// loads empty, matching the behavior of a missing rule file.
type DBSource struct {
	Store  StoreAPI
	Logger *slog.Logger
}

func NewDBSource(store StoreAPI, logger *slog.Logger) *DBSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &DBSource{Store: store, Logger: logger}
}

func (s *DBSource) LoadRuleBook(ctx context.Context) (RuleBook, error) {
	var book RuleBook
	for _, category := range Categories {
		stored, err := s.Store.ListRules(ctx, category)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return RuleBook{}, ctxErr
			}
			s.Logger.Warn("rule set unavailable, treating as empty", "category", category, "err", err)
			_ = book.put(NewRuleSet(category, "db", nil))
			continue
		}
		rules := make([]ThresholdRule, 0, len(stored))
		source := "db"
		for _, item := range stored {
			rules = append(rules, item.Rule)
			if item.Source != "" {
				source = "db:" + item.Source
			}
		}
		_ = book.put(NewRuleSet(category, source, rules))
	}
	return book, nil
}

// SeedFromFiles copies file-backed rule sets into the store for every
// category that has no stored rows yet.
func SeedFromFiles(ctx context.Context, store StoreAPI, files *FileSource) error {
	book, err := files.LoadRuleBook(ctx)
	if err != nil {
		return err
	}
	for _, category := range Categories {
		count, err := store.CountRules(ctx, category)
		if err != nil {
			return fmt.Errorf("count %s rules: %w", category, err)
		}
		if count > 0 {
			continue
		}
		set, _ := book.Set(category)
		if set.Len() == 0 {
			continue
		}
		if err := store.ReplaceRules(ctx, category, set.Source, set.Rules()); err != nil {
			return err
		}
	}
	return nil
}

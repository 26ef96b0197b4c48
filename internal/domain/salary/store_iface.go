package salary

import "context"

type StoreAPI interface {
	ListRules(ctx context.Context, category Category) ([]StoredRule, error)
	ReplaceRules(ctx context.Context, category Category, source string, rules []ThresholdRule) error
	CountRules(ctx context.Context, category Category) (int, error)
	Ping(ctx context.Context) error
}

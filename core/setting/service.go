package setting

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

type (
	Repository interface {
		// EnsureTable creates the settings table if it does not exist yet.
		EnsureTable(ctx context.Context) error
		QuerySettings(ctx context.Context) ([]Setting, error)
		// QuerySettingsByCategory expects the storage form of category.
		QuerySettingsByCategory(ctx context.Context, category string) ([]Setting, error)
		// UpsertSettings creates or replaces all settings atomically.
		UpsertSettings(ctx context.Context, settings []Setting) error
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func group(settings []Setting) Grouped {
	g := make(Grouped)
	for _, s := range settings {
		g.set(s.Category, s.Key, s.Value)
	}
	return g
}

// All returns the built-in settings overlaid with the persisted ones.
func (svc *Service) All(ctx context.Context) (Grouped, error) {
	settings, err := svc.repo.QuerySettings(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying settings")
	}
	all := defaults()
	for _, s := range settings {
		all.set(s.Category, s.Key, s.Value)
	}
	return all, nil
}

// ByCategory returns the persisted settings of category. If none were persisted,
// the built-in settings of the category are returned (empty for unknown categories).
func (svc *Service) ByCategory(ctx context.Context, category string) (map[string]Value, error) {
	settings, err := svc.repo.QuerySettingsByCategory(ctx, StorageCategory(category))
	if err != nil {
		return nil, errors.Wrap(err, "querying settings by category")
	}
	if len(settings) == 0 {
		if defs := CategoryDefaults(category); defs != nil {
			return defs, nil
		}
		return map[string]Value{}, nil
	}

	values := make(map[string]Value, len(settings))
	for _, s := range settings {
		values[s.Key] = s.Value
	}
	return values, nil
}

// Update creates or replaces every setting of bu in a single transaction,
// then returns all the persisted settings.
func (svc *Service) Update(ctx context.Context, bu BulkUpdate) (Grouped, error) {
	if err := bu.Validate(svc.validate); err != nil {
		return nil, err
	}
	if err := svc.repo.EnsureTable(ctx); err != nil {
		return nil, errors.Wrap(err, "ensuring settings table")
	}

	now := time.Now().UTC()
	settings := make([]Setting, 0, len(bu.Settings))
	for _, e := range bu.Settings {
		settings = append(settings, Setting{
			Category:  StorageCategory(e.Category),
			Key:       e.Key,
			Value:     e.Value,
			UpdatedAt: now,
		})
	}
	if err := svc.repo.UpsertSettings(ctx, settings); err != nil {
		return nil, errors.Wrap(err, "upserting settings")
	}

	persisted, err := svc.repo.QuerySettings(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying settings")
	}
	return group(persisted), nil
}

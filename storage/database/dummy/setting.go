package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/edutrack/core/setting"
)

type settingRepository struct {
	db *settingTable
}

var _ setting.Repository = (*settingRepository)(nil) // interface compliance check

func NewSettingRepository(db *DB) setting.Repository {
	return &settingRepository{db: db.setting}
}

func settingKey(category, key string) string {
	return category + "." + key
}

func (repo *settingRepository) EnsureTable(context.Context) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.created = true
	return nil
}

func (repo *settingRepository) query(category string) []setting.Setting {
	settings := make([]setting.Setting, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		if category == "" || s.Category == category {
			settings = append(settings, s)
		}
	}
	sort.Slice(settings, func(i, j int) bool {
		return settingKey(settings[i].Category, settings[i].Key) < settingKey(settings[j].Category, settings[j].Key)
	})
	return settings
}

func (repo *settingRepository) QuerySettings(context.Context) ([]setting.Setting, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(""), nil
}

func (repo *settingRepository) QuerySettingsByCategory(_ context.Context, category string) ([]setting.Setting, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(category), nil
}

func (repo *settingRepository) UpsertSettings(_ context.Context, settings []setting.Setting) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, s := range settings {
		repo.db.table[settingKey(s.Category, s.Key)] = s
	}
	return nil
}

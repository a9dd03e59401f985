package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/core/setting"
)

const (
	ensureSettingsTable = `IF OBJECT_ID(N'dbo.system_settings', N'U') IS NULL
		CREATE TABLE system_settings (
			setting_id    INT IDENTITY(1,1) NOT NULL CONSTRAINT pk_system_settings PRIMARY KEY,
			category      NVARCHAR(50)      NOT NULL,
			setting_key   NVARCHAR(100)     NOT NULL,
			setting_value NVARCHAR(MAX)     NOT NULL,
			value_type    VARCHAR(10)       NULL,
			updated_at    DATETIME2         NOT NULL CONSTRAINT df_system_settings_updated_at DEFAULT SYSUTCDATETIME(),
			CONSTRAINT uq_system_settings UNIQUE (category, setting_key)
		)`

	settingColumns = `category, setting_key, setting_value, value_type, updated_at`

	mergeSetting = `MERGE system_settings WITH (HOLDLOCK) AS t
		USING (VALUES (?, ?, ?, ?, ?)) AS src (category, setting_key, setting_value, value_type, updated_at)
		ON t.category = src.category AND t.setting_key = src.setting_key
		WHEN MATCHED THEN
			UPDATE SET setting_value = src.setting_value, value_type = src.value_type, updated_at = src.updated_at
		WHEN NOT MATCHED THEN
			INSERT (category, setting_key, setting_value, value_type, updated_at)
			VALUES (src.category, src.setting_key, src.setting_value, src.value_type, src.updated_at);`
)

type settingRow struct {
	Category  string      `db:"category"`
	Key       string      `db:"setting_key"`
	Value     string      `db:"setting_value"`
	ValueType null.String `db:"value_type"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (r settingRow) setting() (setting.Setting, error) {
	var val setting.Value
	if r.ValueType.Valid {
		var err error
		if val, err = setting.Decode(r.Value, setting.Kind(r.ValueType.String)); err != nil {
			return setting.Setting{}, errors.Wrapf(err, "decoding setting %s.%s", r.Category, r.Key)
		}
	} else {
		val = setting.DecodeUntyped(r.Value)
	}
	return setting.Setting{Category: r.Category, Key: r.Key, Value: val, UpdatedAt: r.UpdatedAt}, nil
}

type settingRepository struct {
	db core.DB
}

var _ setting.Repository = (*settingRepository)(nil) // interface compliance check

func NewSettingRepository(db core.DB) setting.Repository {
	return &settingRepository{db: db}
}

func (repo *settingRepository) EnsureTable(ctx context.Context) error {
	_, err := repo.db.ExecContext(ctx, ensureSettingsTable)
	return errors.Wrap(err, "creating settings table")
}

func (repo *settingRepository) query(ctx context.Context, q string, args ...interface{}) ([]setting.Setting, error) {
	var rows []settingRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting settings")
	}
	settings := make([]setting.Setting, 0, len(rows))
	for _, r := range rows {
		s, err := r.setting()
		if err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, nil
}

func (repo *settingRepository) QuerySettings(ctx context.Context) ([]setting.Setting, error) {
	return repo.query(ctx, `SELECT `+settingColumns+` FROM system_settings ORDER BY category, setting_key`)
}

func (repo *settingRepository) QuerySettingsByCategory(ctx context.Context, category string) ([]setting.Setting, error) {
	return repo.query(ctx, `SELECT `+settingColumns+` FROM system_settings WHERE category = ? ORDER BY setting_key`, category)
}

func (repo *settingRepository) UpsertSettings(ctx context.Context, settings []setting.Setting) error {
	return core.WithTx(ctx, repo.db, func(tx core.DBTransactor) error {
		q := tx.Rebind(mergeSetting)
		for _, s := range settings {
			text, kind := s.Value.Encode()
			if _, err := tx.ExecContext(ctx, q, s.Category, s.Key, text, string(kind), s.UpdatedAt); err != nil {
				return errors.Wrapf(err, "merging setting %s.%s", s.Category, s.Key)
			}
		}
		return nil
	})
}

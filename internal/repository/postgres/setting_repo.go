// internal/repository/postgres/setting_repo.go
package postgres

import (
	"context"
	"database/sql"

	"notary-service/internal/domain/setting"
	xerrors "notary-service/internal/pkg/errors"
)

type SettingRepository struct {
	gw *Gateway
}

func NewSettingRepository(gw *Gateway) *SettingRepository {
	return &SettingRepository{gw: gw}
}

func (r *SettingRepository) All(ctx context.Context) ([]setting.Setting, error) {
	var out []setting.Setting
	st := r.gw.ScanAll(ctx, func(rows *sql.Rows) error {
		var s setting.Setting
		if err := rows.Scan(&s.ID, &s.Key, &s.Value, &s.Description, &s.UpdatedAt); err != nil {
			return err
		}
		out = append(out, s)
		return nil
	}, `SELECT id, setting_key, setting_value, description, updated_at FROM settings ORDER BY setting_key`)
	if st.Failed() {
		return nil, xerrors.ErrPersistence
	}
	return out, nil
}

func (r *SettingRepository) Get(ctx context.Context, key string) (string, error) {
	var v string
	st := r.gw.ScanOne(ctx, []any{&v}, `SELECT setting_value FROM settings WHERE setting_key = ?`, key)
	if err := statusErr(st); err != nil {
		return "", err
	}
	return v, nil
}

// Set updates an existing key. Unknown keys are ErrNotFound; settings are
// only created by setup.
func (r *SettingRepository) Set(ctx context.Context, key, value string) error {
	_, st := r.gw.Update(ctx, `UPDATE settings SET setting_value = ?, updated_at = NOW() WHERE setting_key = ?`, value, key)
	return statusErr(st)
}

// Seed inserts a setting unless the key exists.
func (r *SettingRepository) Seed(ctx context.Context, key, value, description string) error {
	st := r.gw.Execute(ctx, `
		INSERT INTO settings (setting_key, setting_value, description) VALUES (?, ?, ?)
		ON CONFLICT (setting_key) DO NOTHING`, key, value, description)
	return st.Err()
}

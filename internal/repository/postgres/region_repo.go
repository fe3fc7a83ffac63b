// internal/repository/postgres/region_repo.go
package postgres

import (
	"context"
	"database/sql"

	"notary-service/internal/domain/region"
	xerrors "notary-service/internal/pkg/errors"
)

// RegionRepository manages the province > district > village hierarchy.
type RegionRepository struct {
	gw *Gateway
}

func NewRegionRepository(gw *Gateway) *RegionRepository {
	return &RegionRepository{gw: gw}
}

func (r *RegionRepository) CreateProvince(ctx context.Context, p *region.Province) error {
	id, st := r.gw.Insert(ctx, `INSERT INTO provinces (name, code) VALUES (?, ?)`, p.Name, p.Code)
	if st != StatusOK {
		return xerrors.ErrPersistence
	}
	p.ID = id
	return nil
}

func (r *RegionRepository) CreateDistrict(ctx context.Context, d *region.District) error {
	id, st := r.gw.Insert(ctx, `INSERT INTO districts (province_id, name, code) VALUES (?, ?, ?)`,
		d.ProvinceID, d.Name, d.Code)
	if st != StatusOK {
		return xerrors.ErrPersistence
	}
	d.ID = id
	return nil
}

func (r *RegionRepository) CreateVillage(ctx context.Context, v *region.Village) error {
	id, st := r.gw.Insert(ctx, `INSERT INTO villages (district_id, name, code) VALUES (?, ?, ?)`,
		v.DistrictID, v.Name, v.Code)
	if st != StatusOK {
		return xerrors.ErrPersistence
	}
	v.ID = id
	return nil
}

// CodeTaken reports whether code is already used at the given level.
func (r *RegionRepository) CodeTaken(ctx context.Context, table, code string) (bool, error) {
	ok, st := r.gw.Exists(ctx, table, "code = ?", code)
	if st.Failed() {
		return false, xerrors.ErrPersistence
	}
	return ok, nil
}

// ParentExists checks that the referenced parent row exists.
func (r *RegionRepository) ParentExists(ctx context.Context, table string, id int64) (bool, error) {
	ok, st := r.gw.Exists(ctx, table, "id = ?", id)
	if st.Failed() {
		return false, xerrors.ErrPersistence
	}
	return ok, nil
}

func (r *RegionRepository) Provinces(ctx context.Context) ([]region.Province, error) {
	var out []region.Province
	st := r.gw.ScanAll(ctx, func(rows *sql.Rows) error {
		var p region.Province
		if err := rows.Scan(&p.ID, &p.Name, &p.Code, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	}, `SELECT id, name, code, created_at, updated_at FROM provinces ORDER BY name`)
	if st.Failed() {
		return nil, xerrors.ErrPersistence
	}
	return out, nil
}

func (r *RegionRepository) Districts(ctx context.Context, provinceID int64) ([]region.District, error) {
	var out []region.District
	st := r.gw.ScanAll(ctx, func(rows *sql.Rows) error {
		var d region.District
		if err := rows.Scan(&d.ID, &d.ProvinceID, &d.Name, &d.Code, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return err
		}
		out = append(out, d)
		return nil
	}, `SELECT id, province_id, name, code, created_at, updated_at
		FROM districts WHERE province_id = ? ORDER BY name`, provinceID)
	if st.Failed() {
		return nil, xerrors.ErrPersistence
	}
	return out, nil
}

func (r *RegionRepository) Villages(ctx context.Context, districtID int64) ([]region.Village, error) {
	var out []region.Village
	st := r.gw.ScanAll(ctx, func(rows *sql.Rows) error {
		var v region.Village
		if err := rows.Scan(&v.ID, &v.DistrictID, &v.Name, &v.Code, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return err
		}
		out = append(out, v)
		return nil
	}, `SELECT id, district_id, name, code, created_at, updated_at
		FROM villages WHERE district_id = ? ORDER BY name`, districtID)
	if st.Failed() {
		return nil, xerrors.ErrPersistence
	}
	return out, nil
}

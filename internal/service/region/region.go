// internal/service/region/region.go
package region

import (
	"context"
	"strings"

	"notary-service/internal/domain/region"
	xerrors "notary-service/internal/pkg/errors"
	"notary-service/internal/repository/postgres"
)

type Store interface {
	CreateProvince(ctx context.Context, p *region.Province) error
	CreateDistrict(ctx context.Context, d *region.District) error
	CreateVillage(ctx context.Context, v *region.Village) error
	CodeTaken(ctx context.Context, table, code string) (bool, error)
	ParentExists(ctx context.Context, table string, id int64) (bool, error)
	Provinces(ctx context.Context) ([]region.Province, error)
	Districts(ctx context.Context, provinceID int64) ([]region.District, error)
	Villages(ctx context.Context, districtID int64) ([]region.Village, error)
}

// RegionService maintains the province > district > village hierarchy.
type RegionService struct {
	repo Store
}

func NewRegionService(repo Store) *RegionService {
	return &RegionService{repo: repo}
}

func (s *RegionService) CreateProvince(ctx context.Context, req *region.CreateRequest) (*region.Province, error) {
	name, code, err := s.check(ctx, postgres.TableProvinces, req)
	if err != nil {
		return nil, err
	}
	p := &region.Province{Name: name, Code: code}
	if err := s.repo.CreateProvince(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *RegionService) CreateDistrict(ctx context.Context, req *region.CreateRequest) (*region.District, error) {
	name, code, err := s.check(ctx, postgres.TableDistricts, req)
	if err != nil {
		return nil, err
	}
	if err := s.requireParent(ctx, postgres.TableProvinces, req.ParentID); err != nil {
		return nil, err
	}
	d := &region.District{ProvinceID: req.ParentID, Name: name, Code: code}
	if err := s.repo.CreateDistrict(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *RegionService) CreateVillage(ctx context.Context, req *region.CreateRequest) (*region.Village, error) {
	name, code, err := s.check(ctx, postgres.TableVillages, req)
	if err != nil {
		return nil, err
	}
	if err := s.requireParent(ctx, postgres.TableDistricts, req.ParentID); err != nil {
		return nil, err
	}
	v := &region.Village{DistrictID: req.ParentID, Name: name, Code: code}
	if err := s.repo.CreateVillage(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *RegionService) Provinces(ctx context.Context) ([]region.Province, error) {
	return s.repo.Provinces(ctx)
}

func (s *RegionService) Districts(ctx context.Context, provinceID int64) ([]region.District, error) {
	return s.repo.Districts(ctx, provinceID)
}

func (s *RegionService) Villages(ctx context.Context, districtID int64) ([]region.Village, error) {
	return s.repo.Villages(ctx, districtID)
}

func (s *RegionService) check(ctx context.Context, table string, req *region.CreateRequest) (string, string, error) {
	name := strings.TrimSpace(req.Name)
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if name == "" {
		return "", "", xerrors.Invalid("name", "Name is required")
	}
	if code == "" {
		return "", "", xerrors.Invalid("code", "Code is required")
	}
	taken, err := s.repo.CodeTaken(ctx, table, code)
	if err != nil {
		return "", "", err
	}
	if taken {
		return "", "", xerrors.ErrDuplicateEntry
	}
	return name, code, nil
}

func (s *RegionService) requireParent(ctx context.Context, table string, id int64) error {
	if id <= 0 {
		return xerrors.Invalid("parent_id", "Parent is required")
	}
	ok, err := s.repo.ParentExists(ctx, table, id)
	if err != nil {
		return err
	}
	if !ok {
		return xerrors.Invalid("parent_id", "Parent does not exist")
	}
	return nil
}

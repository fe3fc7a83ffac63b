package region

import "time"

// Province is the top level of the administrative hierarchy.
type Province struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Code      string    `json:"code" db:"code"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type District struct {
	ID         int64     `json:"id" db:"id"`
	ProvinceID int64     `json:"province_id" db:"province_id"`
	Name       string    `json:"name" db:"name"`
	Code       string    `json:"code" db:"code"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

type Village struct {
	ID         int64     `json:"id" db:"id"`
	DistrictID int64     `json:"district_id" db:"district_id"`
	Name       string    `json:"name" db:"name"`
	Code       string    `json:"code" db:"code"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// CreateRequest is shared by the three levels; ParentID is ignored for
// provinces.
type CreateRequest struct {
	ParentID int64  `json:"parent_id"`
	Name     string `json:"name" binding:"required,max=150"`
	Code     string `json:"code" binding:"required,max=20"`
}

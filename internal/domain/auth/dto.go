package auth

// LoginRequest for user login
type LoginRequest struct {
	Username  string `json:"username" form:"username"`
	Password  string `json:"password" form:"password"`
	Next      string `json:"next" form:"next"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResult is returned to the handler after a successful login.
type LoginResult struct {
	SessionID string
	Principal *Principal
	Redirect  string
}

// ForgotPasswordRequest for password reset
type ForgotPasswordRequest struct {
	Email string `json:"email" form:"email" binding:"required,email"`
}

// ResetPasswordRequest for completing password reset
type ResetPasswordRequest struct {
	Token           string `json:"token" form:"token" binding:"required"`
	NewPassword     string `json:"new_password" form:"new_password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

// ChangePasswordRequest for password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" form:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" form:"new_password" binding:"required"`
}

// CreateUserRequest for creating accounts from the administrator area
type CreateUserRequest struct {
	Username      string `json:"username" binding:"required,max=50"`
	Email         string `json:"email" binding:"required,email"`
	Password      string `json:"password" binding:"required"`
	FullName      string `json:"full_name" binding:"required,max=150"`
	Phone         string `json:"phone"`
	Role          Role   `json:"role" binding:"required"`
	LicenseID     *int64 `json:"license_id"`
	ProvinceID    *int64 `json:"province_id"`
	DistrictID    *int64 `json:"district_id"`
	OfficeAddress string `json:"office_address"`
}

// UpdateProfileRequest for profile updates
type UpdateProfileRequest struct {
	FullName      string `json:"full_name" form:"full_name" binding:"required,max=150"`
	Phone         string `json:"phone" form:"phone"`
	OfficeAddress string `json:"office_address" form:"office_address"`
}

// UserFilters for listing users
type UserFilters struct {
	Role   string `form:"role"`
	Active *bool  `form:"active"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

package license

// CreateLicenseRequest for issuing a license
type CreateLicenseRequest struct {
	LicenseNumber string `json:"license_number" binding:"required"`
	IssueDate     string `json:"issue_date" binding:"required"`
	ExpiryDate    string `json:"expiry_date" binding:"required"`
	Notes         string `json:"notes"`
}

// ChangeStatusRequest for suspending, revoking or reinstating a license
type ChangeStatusRequest struct {
	Status Status `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

// ListFilters for license listing
type ListFilters struct {
	Status Status `form:"status"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

package contract

// CreateContractRequest for drafting a contract
type CreateContractRequest struct {
	ContractTypeID int64  `json:"contract_type_id" binding:"required"`
	Title          string `json:"title" binding:"required,max=255"`
	PartyA         string `json:"party_a" binding:"required,max=255"`
	PartyB         string `json:"party_b" binding:"required,max=255"`
	Content        string `json:"content"`
	VillageID      *int64 `json:"village_id"`
	ContractDate   string `json:"contract_date" binding:"required"`
}

// CreateTypeRequest for adding a contract type
type CreateTypeRequest struct {
	Name        string `json:"name" binding:"required,max=150"`
	Description string `json:"description"`
}

// ReviewRequest for a supervisor decision on a submission
type ReviewRequest struct {
	Status SubmissionStatus `json:"status" binding:"required"`
	Notes  string           `json:"notes"`
}

// SubmissionFilters for listing submissions
type SubmissionFilters struct {
	Status SubmissionStatus `form:"status"`
	Limit  int              `form:"limit"`
	Offset int              `form:"offset"`
}

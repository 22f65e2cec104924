package domain

// EnforceRequest asks whether Role may perform Action on Resource.
// Subject is carried for audit only.
type EnforceRequest struct {
	Subject  string `json:"subject"`
	Role     string `json:"role" binding:"required"`
	Resource string `json:"resource" binding:"required"`
	Action   string `json:"action" binding:"required"`
}

type EnforceResponse struct {
	Allowed bool `json:"allowed"`
}

type PermissionResponse struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

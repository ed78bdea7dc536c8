package dto

// SwitchEnvironmentRequest selects the caller's active environment.
type SwitchEnvironmentRequest struct {
	Environment string `json:"environment" validate:"required"`
}

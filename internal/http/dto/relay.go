package dto

type RelayResponse struct {
	OK         bool   `json:"ok"`
	Repository string `json:"repository"`
	DeliveryID string `json:"delivery_id"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ServiceResponse struct {
	Service string `json:"service"`
	Status  string `json:"status"`
}

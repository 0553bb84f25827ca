package models

// User mirrors the user-service representation consumed by the pipeline.
type User struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	Role   string `json:"role"`
	Active bool   `json:"is_active"`
	Email  string `json:"email,omitempty"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

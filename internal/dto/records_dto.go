package dto

import "github.com/ahmetcoskunkizilkaya/citizen-admin/internal/records"

type ProfileResponse struct {
	Profile  *records.Profile `json:"profile"`
	Message  string           `json:"message"`
	Redirect string           `json:"redirect,omitempty"`
}

type ProfileListResponse struct {
	Items []records.Profile `json:"items"`
	Total int               `json:"total"`
}

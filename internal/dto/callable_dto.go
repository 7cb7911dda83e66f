package dto

import "encoding/json"

// CallableRequest is the envelope of the account RPC endpoints.
type CallableRequest struct {
	Data json.RawMessage `json:"data"`
}

type CallableResponse struct {
	Result any `json:"result"`
}

type CallableErrorResponse struct {
	Error CallableError `json:"error"`
}

type CallableError struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

package http

// APIResponse is the envelope every JSON endpoint writes. Status mirrors the
// HTTP status. Data holds the payload on success and a list of
// *AppError or ValidationError on failure.
type APIResponse struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationError describes one rejected request field, using the field's
// wire name.
type ValidationError struct {
	Code    string                 `json:"code"`
	Field   string                 `json:"field"`
	Message string                 `json:"message"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// ListData wraps list payloads with their row count.
type ListData struct {
	Rows  interface{} `json:"rows"`
	Total int         `json:"total"`
}

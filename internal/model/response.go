package model

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *Meta     `json:"meta,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Meta carries pagination state. Offset listings fill Page/Limit/Total;
// cursor listings fill the cursor fields instead.
type Meta struct {
	Page       int     `json:"page,omitempty"`
	Limit      int     `json:"limit,omitempty"`
	Total      int     `json:"total"`
	TotalPages int     `json:"total_pages,omitempty"`
	HasNext    bool    `json:"has_next"`
	HasPrev    bool    `json:"has_prev"`
	NextCursor *string `json:"next_cursor,omitempty"`
	PrevCursor *string `json:"prev_cursor,omitempty"`
}

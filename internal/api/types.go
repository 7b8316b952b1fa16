package api

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// MemoriesResponse lists every stored memory fragment for the caller
type MemoriesResponse struct {
	Memories []string `json:"memories"`
	Count    int      `json:"count"`
}

package models

// Envelope is the body shape shared by every response. Handlers embed it or
// send it directly for data-less replies.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type DataResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

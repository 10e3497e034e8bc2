package model

// Page is a fully rendered response body together with its media type.
// Values are built once at startup and handed out by copy.
type Page struct {
	ContentType string `json:"content_type"`
	Body        string `json:"body"`
}

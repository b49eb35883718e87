package catalog

type Laptop struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Brand     string `json:"brand"`
	Price     int64  `json:"price"`
	UserEmail string `json:"user_email"`
	CreatedAt string `json:"created_at"`
	ImageID   string `json:"image_id"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// CreateRequest is sent as multipart/form-data. Price travels as the raw
// text the user typed; the server owns its parsing.
type CreateRequest struct {
	Title     string
	Brand     string
	Price     string
	UserEmail string
	Image     []byte
	MediaType string
	Filename  string
}

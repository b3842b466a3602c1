package public

// submitRequest is the JSON body posted by the registration form.
type submitRequest struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"required"`
	DOB         string `json:"dob" validate:"omitempty,datetime=2006-01-02"`
	Street      string `json:"street"`
	City        string `json:"city"`
	State       string `json:"state"`
	Postal      string `json:"postal"`
	Country     string `json:"country"`
	Institution string `json:"institution"`
	StudentID   string `json:"student-id"`
	Message     string `json:"message"`
}

// submitResponse is read by the form handler: a redirect wins over the message.
type submitResponse struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}

const (
	msgNoData        = "No data provided"
	msgTooLarge      = "Request body too large"
	msgRequired      = "Name, email, and phone are required"
	msgInvalidEmail  = "Invalid email address."
	msgInvalidDate   = "Invalid date format. Use YYYY-MM-DD."
	msgSubmitSuccess = "Data submitted successfully!"
)

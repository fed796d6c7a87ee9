package servicedef

const (
	// RegisterPath is the path of the registration endpoint, relative to the service base URL.
	RegisterPath = "/api/v1/users/register"

	// ContentTypeJSON is the media type of request and response bodies.
	ContentTypeJSON = "application/json"

	MessageUserCreated           = "User created"
	MessageUsernameAlreadyExists = "Username already exists"

	// PasswordHashSize is the number of bytes the service stores in users.password_hash.
	PasswordHashSize = 32

	// SaltSize is the number of bytes the service stores in users.salt.
	SaltSize = 16
)

// RegisterUserParams is the request body of POST RegisterPath.
type RegisterUserParams struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// StatusResponse is the response body of POST RegisterPath. Exactly one of the fields is set.
type StatusResponse struct {
	Success string `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
}

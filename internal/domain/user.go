package domain

type ContextKey string

const UserContextKey ContextKey = "user"

// User carries the identity attached to a request by the auth middleware.
// Account management itself lives outside this service.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

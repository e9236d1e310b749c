package user

import "github.com/frahmantamala/expense-tracker/internal/access"

// Profile is the /users/me view: identity plus effective rights.
type Profile struct {
	ID         string        `json:"id"`
	Email      string        `json:"email"`
	Name       string        `json:"name"`
	Department string        `json:"department,omitempty"`
	Registered bool          `json:"registered"`
	Rights     access.Rights `json:"rights"`
}

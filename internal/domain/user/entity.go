package user

// User represents an authenticated identity. It is immutable once issued and
// never carries credential material.
type User struct {
	ID    string `json:"id"`    // ID selects the partition the user's tickets live under
	Name  string `json:"name"`  // Name is the display name of the user
	Email string `json:"email"` // Email is the unique login identifier
}

package models

// Profile is the minimal identity snapshot cached after a successful online
// login or profile refresh. An offline session is materialized from it;
// missing fields degrade to zero values rather than blocking login, since
// identity is already proven by the credential hash match.
type Profile struct {
	UserID     int64  `json:"user_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Department string `json:"department"`
	Position   string `json:"position"`
	Status     string `json:"status"`
	IsActive   bool   `json:"is_active"`
}

package authmodel

// UserType identifies which portal a user belongs to. The backend declares it
// once identity is confirmed and it drives every authorization decision.
type UserType string

const (
	UserTypeStudent UserType = "student"
	UserTypeTeacher UserType = "teacher"
	UserTypeAdmin   UserType = "admin"
)

// Valid reports whether t is one of the known user types.
func (t UserType) Valid() bool {
	switch t {
	case UserTypeStudent, UserTypeTeacher, UserTypeAdmin:
		return true
	}
	return false
}

// User is the confirmed identity attached to an authenticated session.
type User struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	UserType UserType `json:"user_type"`
}

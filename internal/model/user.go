package model

// Role identifies what a directory user is allowed to do
type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleDoctor  Role = "Doctor"
	RolePatient Role = "Patient"
)

// User is a record in the identity directory. Registration and credential
// handling live outside this service; the directory is read-only here and
// consumed to resolve doctor identity and authorize actions.
type User struct {
	Base
	FirstName  string `db:"first_name" json:"first_name"`
	LastName   string `db:"last_name" json:"last_name"`
	Email      string `db:"email" json:"email"`
	Phone      string `db:"phone" json:"phone"`
	Role       Role   `db:"role" json:"role"`
	Department string `db:"department" json:"department,omitempty"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

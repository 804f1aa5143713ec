package model

type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleProvider UserRole = "provider"
	UserRoleAdmin    UserRole = "admin"
)

// User is the directory record consulted for identity and city lookups.
type User struct {
	Base
	Name  string   `db:"name" json:"name"`
	Email string   `db:"email" json:"email"`
	City  string   `db:"city" json:"city"`
	Role  UserRole `db:"role" json:"role"`
}

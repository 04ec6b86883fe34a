package domain

// Role enumerates operator roles recognised by transition rules.
type Role string

const (
	RoleAgent Role = "AGENT"
	RoleAdmin Role = "ADMIN"
)

// Actor identifies the caller of a mutating command.
type Actor struct {
	ID   string
	Role Role
}

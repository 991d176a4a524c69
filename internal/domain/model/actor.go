package model

// Role identifies who is allowed to drive an order transition.
type Role string

const (
	RoleVendor   Role = "vendor"
	RoleSupplier Role = "supplier"
	// RoleSystem is reserved for internal workers and never issued to callers.
	RoleSystem Role = "system"
)

// Valid reports whether the role is known.
func (r Role) Valid() bool {
	return r == RoleVendor || r == RoleSupplier || r == RoleSystem
}

// Actor is the authenticated principal performing an operation.
type Actor struct {
	ID   string
	Role Role
}

// SystemActor is used by background workers.
var SystemActor = Actor{ID: "system", Role: RoleSystem}

package masterdata

import "time"

// Outlet is a sales location. Code is the short uppercase prefix stamped on
// every order number the outlet issues.
type Outlet struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Employee is a staff member of one outlet. PINHash is a bcrypt digest of the
// numeric PIN used for shift open and close; it never leaves the server.
type Employee struct {
	ID        int64     `json:"id"`
	OutletID  int64     `json:"outlet_id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	PINHash   string    `json:"-"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Employee roles.
const (
	RoleOwner   = "owner"
	RoleManager = "manager"
	RoleCashier = "cashier"
)

package models

type Role string

const (
	RoleAdmin       Role = "Admin"
	RoleLoanOfficer Role = "Loan Officer"
)

type User struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
	Branch      string `json:"branch,omitempty"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

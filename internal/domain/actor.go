package domain

// Role определяет права инициатора операции.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Valid проверяет, что роль известна.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

// Actor — инициатор операции. Передаётся явно в каждую операцию жизненного цикла.
type Actor struct {
	ID   string
	Role Role
}

// IsAdmin сообщает, обладает ли актор правами администратора.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

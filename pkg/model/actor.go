package model

// 角色
const (
	RoleUser   = "user"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)

// Actor 当前请求的调用方，由认证中间件解析
type Actor struct {
	UserID string
	Role   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) IsSeller() bool {
	return a.Role == RoleSeller
}

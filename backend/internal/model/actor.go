package model

// Actor 当前操作者，每个业务操作显式传入
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) IsAdmin() bool     { return a.Role == RoleAdmin }
func (a Actor) IsCounselor() bool { return a.Role == RoleCounselor }
func (a Actor) IsAgent() bool     { return a.Role == RoleAgent }

package domain

import (
	"time"
)

type Role string

const (
	RoleStandard Role = "USER"
	RoleElevated Role = "ADMIN"
)

func (r Role) Valid() bool {
	return r == RoleStandard || r == RoleElevated
}

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// ParseStatus 只接受三种审批状态之一
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.Valid() {
		return "", ErrInvalidStatus
	}
	return status, nil
}

type Identity struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	DisplayName  *string   `json:"name" db:"display_name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	Status       Status    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

func (i *Identity) IsElevated() bool {
	return i.Role == RoleElevated
}

func (i *Identity) IsApproved() bool {
	return i.Status == StatusApproved
}

// InitialRoleAndStatus 第一个注册的用户自动成为已审批的管理员，其余用户均为待审批的普通用户
func InitialRoleAndStatus(first bool) (Role, Status) {
	if first {
		return RoleElevated, StatusApproved
	}
	return RoleStandard, StatusPending
}

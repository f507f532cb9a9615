package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrPendingApproval    = errors.New("Your account is pending approval")
	ErrEmailTaken         = errors.New("User already exists")
	ErrIdentityNotFound   = errors.New("User not found")
	ErrInvalidStatus      = errors.New("Invalid status")
)

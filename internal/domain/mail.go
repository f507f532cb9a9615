package domain

const (
	MailTypeSignupPending = "signup_pending"
	MailTypeStatusChanged = "status_changed"
)

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type SignupPendingMailData struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

type StatusChangedMailData struct {
	DisplayName string `json:"displayName"`
	Status      Status `json:"status"`
}

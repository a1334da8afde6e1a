package domain

const (
	MailTypeWelcome        = "welcome"
	MailTypeAccountCreated = "account_created"
	MailTypeResetPassword  = "reset_password"
	MailTypeChangeEmail    = "change_email"
)

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type WelcomeMailData struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
}

type AccountCreatedMailData struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Password string `json:"password"`
}

type ResetPasswordMailData struct {
	Name       string `json:"name"`
	OTP        string `json:"otp"`
	Expiration int    `json:"expiration"`
}

type ChangeEmailMailData struct {
	Name       string `json:"name"`
	NewEmail   string `json:"newEmail"`
	OTP        string `json:"otp"`
	Expiration int    `json:"expiration"`
}

package handlers

// GenerateKeyRequest is the body of mfa.generate-key
type GenerateKeyRequest struct {
	Username string `json:"username" validate:"required,max=255"`
}

// AttachRequest is the body of mfa.attach
type AttachRequest struct {
	Username string `json:"username" validate:"required,max=255"`
	Secret   string `json:"secret" validate:"required,max=128"`
	TOTP     string `json:"totp" validate:"required,max=64"`
}

// CodeRequest is the body of mfa.verify, mfa.regenerate-codes and mfa.detach.
// TOTP carries either a time based code or a recovery code.
type CodeRequest struct {
	Username string `json:"username" validate:"required,max=255"`
	TOTP     string `json:"totp" validate:"required,max=64"`
}

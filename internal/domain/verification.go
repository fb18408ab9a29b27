package domain

// StateRecord is a short-lived entry in the expiring state store.
// PK: state_key. ExpiresAt is a Unix timestamp used as DynamoDB TTL;
// readers treat a record whose ExpiresAt has passed as absent.
type StateRecord struct {
	Key       string `json:"key" dynamodbav:"state_key"`
	Value     string `json:"value,omitempty" dynamodbav:"value,omitempty"`
	Count     int64  `json:"count,omitempty" dynamodbav:"count,omitempty"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
}

// Key builders for the per-email OTP state. Records for users and sellers share one namespace.
func OTPKey(email string) string             { return "otp:" + email }
func OTPCooldownKey(email string) string     { return "otp_cooldown:" + email }
func OTPRequestCountKey(email string) string { return "otp_request_count:" + email }
func OTPSpamLockKey(email string) string     { return "otp_spam_lock:" + email }
func OTPAttemptsKey(email string) string     { return "otp_attempts:" + email }
func OTPLockKey(email string) string         { return "otp_lock:" + email }
func PasswordResetKey(email string) string   { return "password_reset:" + email }

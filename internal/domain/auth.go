package domain

// Credentials carries a login attempt. The password is plaintext and lives only for the request.
type Credentials struct {
	Username string
	Password string
}

// String keeps the password out of logs and fmt output.
func (c Credentials) String() string {
	return "Credentials{Username: " + c.Username + ", Password: [REDACTED]}"
}

// GoString mirrors String for %#v.
func (c Credentials) GoString() string {
	return c.String()
}

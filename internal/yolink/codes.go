package yolink

// CodeSuccess is the response code for a successful upstream call.
const CodeSuccess = "000000"

// userCodes are non-success codes caused by transient, user-relevant
// conditions (rate limiting, busy devices, token scope). They are logged at
// warn level; everything else non-success is logged at error level. Both
// classes raise an *APIError to the caller.
var userCodes = map[string]string{
	"000201": "cannot connect to device",
	"000203": "device is busy",
	"010104": "access token expired",
	"010301": "request rate limited",
	"020104": "device token is invalid for this call",
}

// authCodes are codes that invalidate the current session and force a
// re-login before the next upstream call.
var authCodes = map[string]bool{
	"010104": true, // expired access token
	"010103": true, // invalid access token
}

// IsUserCode reports whether code is a known user-relevant warning.
func IsUserCode(code string) bool {
	_, ok := userCodes[code]
	return ok
}

// IsAuthCode reports whether code indicates an authentication failure.
func IsAuthCode(code string) bool {
	return authCodes[code]
}

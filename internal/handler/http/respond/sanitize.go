package respond

import (
	"regexp"
)

var (
	// Query parameters carrying provider credentials
	corpSecretPattern   = regexp.MustCompile(`(corpsecret=)[^&\s"]+`)
	accessTokenPattern  = regexp.MustCompile(`(access_token=)[^&\s"]+`)
	clientSecretPattern = regexp.MustCompile(`(client_secret=)[^&\s"]+`)

	// Bot tokens, either in a Bot API path (/bot123:abc/) or on their own
	botPathPattern  = regexp.MustCompile(`/bot\d+:[A-Za-z0-9_-]+`)
	botTokenPattern = regexp.MustCompile(`\b\d{5,}:[A-Za-z0-9_-]{30,}`)

	// Password inside a DSN
	dbPasswordPattern = regexp.MustCompile(`://([^:/@\s]+):([^@\s]+)@`)
)

// SanitizeError returns err's message with credentials masked, for logging.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error())
}

// SanitizeString masks credentials in msg. Path tokens are masked before
// bare tokens since the bare pattern would otherwise leave the /bot prefix dangling.
func SanitizeString(msg string) string {
	msg = corpSecretPattern.ReplaceAllString(msg, "${1}****")
	msg = accessTokenPattern.ReplaceAllString(msg, "${1}****")
	msg = clientSecretPattern.ReplaceAllString(msg, "${1}****")
	msg = botPathPattern.ReplaceAllString(msg, "/bot****")
	msg = botTokenPattern.ReplaceAllString(msg, "****")
	msg = dbPasswordPattern.ReplaceAllString(msg, "://$1:****@")
	return msg
}

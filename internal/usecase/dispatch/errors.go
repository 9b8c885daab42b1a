package dispatch

// Caller-facing messages. They are returned verbatim in the error_message field.
const (
	MsgInvalidKey    = "Invalid key."
	MsgUnknownAppID  = "Unknown APP ID."
	MsgNoCredentials = "No WeChat/Telegram credentials are configured."
	MsgNoMessage     = "No message is provided."
	MsgBlocked       = "Message blocked."
)

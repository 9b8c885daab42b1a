// Package policy applies a tenant's content rules to an inbound message
// before it is relayed.
package policy

import (
	"fmt"
	"regexp"
	"strings"

	"pipehub/internal/domain/entity"
)

// senderPattern matches a message that opens with a full-width bracketed
// sender name, e.g. "【Acme】your code is AB12CD".
var senderPattern = regexp.MustCompile(`^【(?P<Sender>.+)】`)

// codeTokenPattern splits the remainder of the message into code candidates.
var codeTokenPattern = regexp.MustCompile(`[a-zA-Z0-9-]+`)

const (
	minCodeLength = 4
	maxCodeLength = 8
)

// BlockWords splits a comma-separated block list into its non-empty, trimmed words.
func BlockWords(blockList string) []string {
	parts := strings.Split(blockList, ",")
	words := make([]string, 0, len(parts))
	for _, part := range parts {
		if word := strings.TrimSpace(part); word != "" {
			words = append(words, word)
		}
	}
	return words
}

// ApplyBlockList returns message unchanged unless it contains one of the
// block list words, in which case the error wraps entity.ErrBlocked.
// Matching is a case-sensitive substring test.
func ApplyBlockList(message, blockList string) (string, error) {
	for _, word := range BlockWords(blockList) {
		if strings.Contains(message, word) {
			return "", fmt.Errorf("%w: contains %q", entity.ErrBlocked, word)
		}
	}
	return message, nil
}

// ApplyCaptcha prefixes the message with "{code} - {sender}" when it looks like
// a verification code notice. Other messages are returned unchanged.
//
// The code is the first standalone run of 4 to 8 characters from
// [a-zA-Z0-9-] after the sender that contains at least one digit.
func ApplyCaptcha(message string) string {
	loc := senderPattern.FindStringSubmatchIndex(message)
	if loc == nil {
		return message
	}
	sender := message[loc[2]:loc[3]]

	code, ok := findCode(message[loc[1]:])
	if !ok {
		return message
	}
	return fmt.Sprintf("%s - %s\n%s", code, sender, message)
}

func findCode(text string) (string, bool) {
	for _, token := range codeTokenPattern.FindAllString(text, -1) {
		if len(token) < minCodeLength || len(token) > maxCodeLength {
			continue
		}
		if strings.ContainsAny(token, "0123456789") {
			return token, true
		}
	}
	return "", false
}

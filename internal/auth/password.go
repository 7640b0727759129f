package auth

import (
	"unicode"

	"github.com/dmitrijs2005/gophvault/internal/common"
)

// MinPasswordLength is counted in bytes of the UTF-8 encoding, so a
// password of four CJK characters and two digits (14 bytes) passes.
const MinPasswordLength = 8

// ValidatePasswordStrength returns common.ErrWeakPassword unless password is
// at least MinPasswordLength bytes long and contains a letter and a
// digit. There are no case or symbol requirements.
func ValidatePasswordStrength(password []byte) error {
	if len(password) < MinPasswordLength {
		return common.ErrWeakPassword
	}

	var hasLetter, hasNumber bool
	for _, r := range string(password) {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsNumber(r):
			hasNumber = true
		}
	}
	if !hasLetter || !hasNumber {
		return common.ErrWeakPassword
	}
	return nil
}

package password

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const MinLength = 12

// Symbols is the punctuation set a strong password must draw at least one character from.
const Symbols = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

var ErrTooLong = errors.New("password too long")

// IsStrong reports whether pw has at least MinLength characters and contains an
// uppercase letter, a lowercase letter, a digit and a symbol.
func IsStrong(pw string) bool {
	if utf8.RuneCountInString(pw) < MinLength {
		return false
	}

	var upper, lower, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(Symbols, r):
			symbol = true
		}
	}
	return upper && lower && digit && symbol
}

func Hash(pw string) (string, error) {
	hashbytes, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrTooLong
		}
		return "", err
	}
	return string(hashbytes), nil
}

func Check(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

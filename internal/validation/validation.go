// Package validation содержит проверки пользовательского ввода.
package validation

import (
	"net/mail"
	"strings"
	"unicode"
)

const (
	maxUsernameLen = 150
	minPasswordLen = 8
)

// IsValidUsername проверяет, что имя пользователя не пустое и состоит
// из букв, цифр и символов ._- без пробелов.
func IsValidUsername(username string) bool {
	if username == "" || len(username) > maxUsernameLen {
		return false
	}

	for _, r := range username {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		if r == '.' || r == '_' || r == '-' {
			continue
		}
		return false
	}

	return true
}

// IsValidEmail проверяет синтаксическую корректность адреса электронной почты.
func IsValidEmail(email string) bool {
	if email == "" || strings.ContainsAny(email, " \t") {
		return false
	}

	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}

	// mail.ParseAddress принимает формы с отображаемым именем, здесь нужен только адрес.
	return addr.Address == email
}

// IsValidPassword проверяет минимальную длину пароля.
func IsValidPassword(password string) bool {
	return len(password) >= minPasswordLen
}

package util

import (
	"regexp"
)

// Broker client IDs are short uppercase alphanumerics (e.g. "AB1234").
var userIDRegex = regexp.MustCompile(`^[A-Z0-9]{3,12}$`)

func IsValidUserID(s string) bool {
	return userIDRegex.MatchString(s)
}

func IsValidEnum(value string, validValues []string) bool {
	if value == "" {
		return true
	}
	for _, v := range validValues {
		if value == v {
			return true
		}
	}
	return false
}

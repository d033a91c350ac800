package api

import (
	"errors"
	"strings"
)

// ErrInvalidCompanyNumber rejects input that cannot be a registry number.
var ErrInvalidCompanyNumber = errors.New("invalid company number")

// companyNumberPrefixes are the alpha prefixes the registry issues for
// non-standard registrations (Scotland, Northern Ireland, LLPs, and so on).
var companyNumberPrefixes = []string{
	"SC", "NI", "OC", "SO", "NC", "R0", "AC", "FC", "GE", "LP",
	"NA", "IP", "SP", "IC", "SI", "NP", "NO", "RC", "NR", "CE",
}

// ValidateCompanyNumber normalises user input into a canonical registry
// company number: whitespace trimmed, uppercased, and all-digit input
// zero-padded to eight characters.
func ValidateCompanyNumber(raw string) (string, error) {
	cleaned := strings.ToUpper(strings.TrimSpace(raw))
	if cleaned == "" {
		return "", ErrInvalidCompanyNumber
	}

	if isDigits(cleaned) {
		for len(cleaned) < 8 {
			cleaned = "0" + cleaned
		}
	}
	if len(cleaned) < 2 || len(cleaned) > 8 {
		return "", ErrInvalidCompanyNumber
	}

	if isDigits(cleaned) {
		return cleaned, nil
	}
	for _, prefix := range companyNumberPrefixes {
		if strings.HasPrefix(cleaned, prefix) && isDigits(cleaned[len(prefix):]) {
			return cleaned, nil
		}
	}
	return "", ErrInvalidCompanyNumber
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

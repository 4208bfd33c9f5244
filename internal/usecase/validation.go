package usecase

import "unicode"

const maxIDLength = 128

// ValidateDocumentID accepts non-empty identifiers of letters, digits,
// '-' and '_' that every storage backend can key on.
func ValidateDocumentID(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}
	for _, r := range id {
		if r > unicode.MaxASCII {
			return false
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

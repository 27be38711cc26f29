package record

import "strings"

// Property type tokens. A property's Type must be one of these, compared
// case-insensitively; the stored value keeps the author's spelling.
const (
	TypeHexAddressPackage = "hexadecimal-address-package"
	TypeHexInteger        = "hexadecimal-integer"
	TypeInteger           = "integer"
	TypeString            = "string"
)

// ValidTypes returns the recognized type tokens.
func ValidTypes() []string {
	return []string{TypeHexAddressPackage, TypeHexInteger, TypeInteger, TypeString}
}

// ValidType reports whether s is one of the recognized type tokens.
func ValidType(s string) bool {
	for _, t := range ValidTypes() {
		if strings.EqualFold(s, t) {
			return true
		}
	}

	return false
}

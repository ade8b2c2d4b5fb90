package coordinator

import "strings"

// providerEnum maps a configured provider name onto the storage enum value.
func providerEnum(provider string) string {
	return strings.ToUpper(provider)
}

// Package config provides application configuration helpers
package config

import "os"

// GetEnv retrieves the value of an environment variable with a fallback value if not set
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// Categories is the preset list of topic domains a job can target
var Categories = []string{
	"의료/약학",
	"IT/테크",
	"여행",
	"맛집/요리",
	"육아/교육",
	"재테크/경제",
	"뷰티/패션",
	"운동/다이어트",
	"반려동물",
	"자기계발",
}

// DefaultIncludeImage is the default for the include_image job option
const DefaultIncludeImage = true

// DefaultIncludeEmoji is the default for the include_emoji job option
const DefaultIncludeEmoji = true

// ValidCategory reports whether name is one of the preset categories
func ValidCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

// Package constants provides centralized definitions of constants used throughout the application
package constants

// Environment variable names
const (
	// EnvNaverID is the environment variable containing the Naver account id
	EnvNaverID = "NAVER_ID"

	// EnvNaverPW is the environment variable containing the Naver account password
	EnvNaverPW = "NAVER_PW"

	// EnvGeminiAPIKey is the environment variable containing the Gemini API key
	EnvGeminiAPIKey = "GEMINI_API_KEY"

	// EnvListenAddr is the environment variable containing the API listen address
	EnvListenAddr = "BLOGPILOT_LISTEN_ADDR"

	// EnvDBPath is the environment variable containing the sqlite database path
	EnvDBPath = "BLOGPILOT_DB_PATH"

	// EnvDBDSN is the environment variable containing a postgres DSN, which
	// takes precedence over the sqlite path when set
	EnvDBDSN = "BLOGPILOT_DB_DSN"

	// EnvHeadless is the environment variable toggling headless browser mode
	EnvHeadless = "BLOGPILOT_HEADLESS"
)

// Service identifiers used for rate limiting
const (
	// ServiceGemini is the rate limit bucket for the content generation service
	ServiceGemini = "gemini"

	// ServicePollinations is the rate limit bucket for the image generation service
	ServicePollinations = "pollinations"
)

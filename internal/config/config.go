package config

import (
	"os"
	"strings"
)

type Config struct {
	MongoURI         string
	RedisURI         string
	Port             string
	Environment      string // ENV: production, development, etc.
	FrontendURL      string
	AllowedOrigins   []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL

	JWTSecret        string // signs session tokens (cookie "token" / "seller_token")
	ActivationSecret string // signs activation tokens (2h window)

	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))

	frontendURL := getEnv("FRONTEND_URL", "http://localhost:3000")

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		for _, u := range []string{frontendURL, getEnv("FRONTEND_URL_2", "")} {
			u = strings.TrimSpace(u)
			if u != "" {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	return &Config{
		MongoURI:         getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/bazario")),
		RedisURI:         getEnv("REDIS_URI", "redis://localhost:6379/0"),
		Port:             getEnv("PORT", "8000"),
		Environment:      env,
		FrontendURL:      frontendURL,
		AllowedOrigins:   allowedOrigins,
		JWTSecret:        getEnv("JWT_SECRET_KEY", "your-secret-key-change-in-production"),
		ActivationSecret: getEnv("ACTIVATION_SECRET", "your-activation-secret-change-in-production"),

		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),

		SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", getEnv("SMTP_USER", "")),
	}
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

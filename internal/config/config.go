package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr  string
	PublicURL string

	DBDriver string
	DBDSN    string

	BlobBasePath string // archived bulk-upload files

	AuthHMACSecret string

	// Result-processing thresholds. Callers can override per request; these
	// are the deployment defaults.
	PassingCGPA   float64
	ProbationCGPA float64

	CORSOrigins []string
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:       addr,
		PublicURL:      os.Getenv("PUBLIC_URL"),
		DBDriver:       envOr("DB_DRIVER", "sqlite"),
		DBDSN:          envOr("DB_DSN", ""),
		BlobBasePath:   envOr("BLOB_BASE_PATH", "./data"),
		AuthHMACSecret: envOr("AUTH_HMAC_SECRET", "registrar-dev-key"),
		PassingCGPA:    envFloat("PASSING_CGPA", 2.0),
		ProbationCGPA:  envFloat("PROBATION_CGPA", 1.5),
		CORSOrigins:    csvOr("CORS_ORIGINS", "http://localhost:3000"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envFloat(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

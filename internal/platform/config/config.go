package config

import "os"

// Server captures process-level configuration for the audit read API.
type Server struct {
	Addr        string
	DatabaseURL string
}

// FromEnv builds a Server config from environment variables so main stays
// lean. An empty DatabaseURL selects the in-memory store (development only:
// the trail does not survive the process and flushes are not transactional).
func FromEnv() Server {
	addr := os.Getenv("ENTITYLOG_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Server{
		Addr:        addr,
		DatabaseURL: os.Getenv("ENTITYLOG_DATABASE_URL"),
	}
}

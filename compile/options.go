package compile

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Options control the generated resolver.
type Options struct {
	// ClassName is the generated type name.
	ClassName string
	// Package is the generated package name.
	Package string
	// Validate refuses to compile while container.Validate reports issues.
	// It never participates in the fingerprint.
	Validate bool
}

// DefaultOptions returns the options used when none are supplied.
func DefaultOptions() Options {
	return Options{
		ClassName: "CompiledContainer",
		Package:   "compiled",
		Validate:  true,
	}
}

// OptionsFromEnv reads .env (if present) and populates Options from
// environment variables. Call once at bootstrap:
//
//	opts := compile.OptionsFromEnv()
func OptionsFromEnv(envFiles ...string) Options {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	return Options{
		ClassName: env("CONTAINER_COMPILE_CLASS", "CompiledContainer"),
		Package:   env("CONTAINER_COMPILE_PACKAGE", "compiled"),
		Validate:  envBool("CONTAINER_COMPILE_VALIDATE", true),
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

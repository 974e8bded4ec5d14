package app

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SIMBATCH_"

// LoadDotEnv loads KEY=VALUE files into the process environment. Variables
// that are already set win. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
		present = append(present, f)
	}
	if len(present) == 0 {
		return nil
	}
	return godotenv.Load(present...)
}

// EnvDefault returns SIMBATCH_<KEY> when it is set and fallback otherwise.
func EnvDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(EnvPrefix + strings.ToUpper(key)); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

// EnvVars collects SIMBATCH_VAR_<NAME>=value pairs as lower-cased HCL variables.
func EnvVars() map[string]string {
	prefix := EnvPrefix + "VAR_"
	vars := map[string]string{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, prefix) || len(k) == len(prefix) {
			continue
		}
		vars[strings.ToLower(strings.TrimPrefix(k, prefix))] = v
	}
	return vars
}

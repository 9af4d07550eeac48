package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	appEnvVar              = "APP_ENV"
	environmentDevelopment = "development"
	environmentProduction  = "production"
	environmentStaging     = "staging"
)

const (
	// EnvironmentDevelopment is the default APP_ENV.
	EnvironmentDevelopment = environmentDevelopment
	EnvironmentProduction  = environmentProduction
	EnvironmentStaging     = environmentStaging
)

var environmentAliases = map[string]string{
	"dev":   environmentDevelopment,
	"prod":  environmentProduction,
	"stag":  environmentStaging,
	"stage": environmentStaging,
}

// getAppEnvironment reads APP_ENV and defaults to development.
func getAppEnvironment() string {
	env := strings.ToLower(strings.TrimSpace(os.Getenv(appEnvVar)))
	if env == "" {
		return environmentDevelopment
	}
	if canonical, ok := environmentAliases[env]; ok {
		return canonical
	}
	return env
}

// envConfigPaths lists existing config.<env>.yml siblings of defaultPath.
func envConfigPaths(defaultPath string) map[string]string {
	dir := filepath.Dir(defaultPath)
	ext := filepath.Ext(defaultPath)
	base := strings.TrimSuffix(filepath.Base(defaultPath), ext)

	paths := map[string]string{}
	for _, env := range []string{environmentDevelopment, environmentStaging, environmentProduction} {
		p := filepath.Join(dir, base+"."+env+ext)
		if _, err := os.Stat(p); err == nil {
			paths[env] = p
		}
	}
	return paths
}

// resolveEnvSpecificPath swaps the default path for the environment specific
// file when one exists. Explicit paths are kept.
func resolveEnvSpecificPath(path, defaultPath string, envPaths map[string]string) string {
	if path == "" {
		path = defaultPath
	}

	env := getAppEnvironment()
	if envPath, ok := envPaths[env]; ok {
		if path == defaultPath || path == envPath {
			return envPath
		}
	}

	return path
}

// AppEnvironment returns the normalised APP_ENV value.
func AppEnvironment() string {
	return getAppEnvironment()
}

// IsProductionLike reports whether env must not silently fall back to the
// built-in defaults when the config file is missing.
func IsProductionLike(env string) bool {
	switch env {
	case environmentProduction, environmentStaging:
		return true
	default:
		return false
	}
}

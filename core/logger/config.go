package logger

import "strings"

// Config holds configuration for the logger.
type Config struct {
	// Level is the minimum level to log (debug, info, warn, error).
	Level string `mapstructure:"level" default:"info"`
	// Format is the output encoding (json, console).
	Format string `mapstructure:"format" default:"json"`
	// Output is a comma separated list of sinks (stderr, stdout or file paths).
	Output string `mapstructure:"output" default:"stderr"`
}

// OutputPaths splits Output, defaulting to stderr.
func (c Config) OutputPaths() []string {
	var paths []string
	for _, p := range strings.Split(c.Output, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return []string{"stderr"}
	}
	return paths
}

package config

import "os"

// expandEnv expands ${VAR}/$VAR references in raw YAML bytes before
// parsing. Missing variables expand to empty string; validate() catches
// required fields left empty.
func expandEnv(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}

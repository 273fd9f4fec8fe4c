// Package memory implements contact.MemoryStore on top of mem0 or Redis.
package memory

import (
	"fmt"
	"strings"
)

const (
	BackendMem0  = "mem0"
	BackendRedis = "redis"
)

// NormalizeBackend maps a configured backend name to BackendMem0 or BackendRedis.
func NormalizeBackend(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", BackendMem0:
		return BackendMem0, nil
	case BackendRedis:
		return BackendRedis, nil
	default:
		return "", fmt.Errorf("unknown memory backend %q (expected mem0|redis)", s)
	}
}

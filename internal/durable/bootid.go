package durable

import (
	"os"
	"strings"

	"github.com/google/uuid"
)

// ReadBootID parses the kernel boot id, e.g. /proc/sys/kernel/random/boot_id.
func ReadBootID(path string) (uuid.UUID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(strings.TrimSpace(string(data)))
}

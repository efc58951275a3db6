package instance

import (
	"os"

	"github.com/angelmondragon/asala-storefront/pkg/env"
)

const fallbackID = "local"

// GetID returns the process identifier attached to startup logs. DYNO and
// INSTANCE_ID win over the host name.
func GetID() string {
	if id := env.First("DYNO", "INSTANCE_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}

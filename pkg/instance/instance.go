package instance

import (
	"os"

	"github.com/angelmondragon/mycms-backend/pkg/env"
)

const fallbackID = "local"

// ID identifies this process in logs and lock owner tokens. It prefers the
// platform dyno name, then the hostname.
func ID() string {
	if v, ok := env.First("MYCMS_INSTANCE_ID", "DYNO", "HOSTNAME"); ok {
		return v
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}

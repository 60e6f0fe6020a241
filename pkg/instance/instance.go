package instance

import "os"

// GetID identifies this process in logs: DYNO on Heroku-style platforms,
// then AGRIMARKET_INSTANCE_ID, then the hostname.
func GetID() string {
	for _, env := range []string{"DYNO", "AGRIMARKET_INSTANCE_ID"} {
		if id := os.Getenv(env); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}

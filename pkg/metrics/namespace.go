package metrics

const namespace = "agm"

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

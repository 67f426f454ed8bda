package utils

// IsValidInterval whitelists the bucket sizes accepted by the events-over-time
// query. The values are interpolated into a ClickHouse toStartOf<Interval>()
// call, so anything outside this set must be rejected.
func IsValidInterval(interval string) bool {
	switch interval {
	case "Minute", "Hour", "Day", "Week", "Month", "Quarter", "Year":
		return true
	default:
		return false
	}
}

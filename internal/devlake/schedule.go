package devlake

import "fmt"

// cronSchedules maps the user-facing schedule keys to blueprint cron
// expressions. No other values are accepted.
var cronSchedules = map[string]string{
	"daily":     "0 0 * * *",
	"weekly":    "0 0 * * 1",
	"every_6h":  "0 */6 * * *",
	"every_12h": "0 */12 * * *",
}

// CronForSchedule resolves a schedule key to its cron expression. Unknown
// keys are rejected so no remote call is made on a bad schedule.
func CronForSchedule(key string) (string, error) {
	cron, ok := cronSchedules[key]
	if !ok {
		return "", fmt.Errorf("unknown schedule %q (valid: daily, weekly, every_6h, every_12h)", key)
	}
	return cron, nil
}

// ScheduleKeys lists the accepted schedule keys in display order.
func ScheduleKeys() []string {
	return []string{"daily", "weekly", "every_6h", "every_12h"}
}

// ScheduleLabel returns a human-readable label for a schedule key.
func ScheduleLabel(key string) string {
	switch key {
	case "daily":
		return "Daily at midnight"
	case "weekly":
		return "Weekly (Monday)"
	case "every_6h":
		return "Every 6 hours"
	case "every_12h":
		return "Every 12 hours"
	}
	return key
}

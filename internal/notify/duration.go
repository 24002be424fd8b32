package notify

import "fmt"

// FormatDuration renders seconds as H:MM:SS, prefixed with "N day(s), " from
// 24h on: 3725 -> "1:02:05", 90061 -> "1 day, 1:01:01". Negative input is
// treated as zero.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	days := seconds / 86400
	rem := seconds % 86400
	hms := fmt.Sprintf("%d:%02d:%02d", rem/3600, rem%3600/60, rem%60)
	switch {
	case days == 0:
		return hms
	case days == 1:
		return "1 day, " + hms
	default:
		return fmt.Sprintf("%d days, %s", days, hms)
	}
}

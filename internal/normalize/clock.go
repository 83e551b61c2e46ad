package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var clock12 = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})\s*(AM|PM)\s*$`)

// To24Hour converts "H:MM AM/PM" (case-insensitive) to "HH:MM". Noon and
// midnight follow the 12-hour convention: 12 AM -> 00, 12 PM -> 12. Input
// that does not match is returned unchanged.
func To24Hour(timeStr string) string {
	m := clock12.FindStringSubmatch(strings.ToUpper(timeStr))
	if m == nil {
		return timeStr
	}

	hours, err := strconv.Atoi(m[1])
	if err != nil || hours < 1 || hours > 12 {
		return timeStr
	}
	minutes := m[2]
	period := m[3]

	if period == "PM" && hours != 12 {
		hours += 12
	} else if period == "AM" && hours == 12 {
		hours = 0
	}

	return fmt.Sprintf("%02d:%s", hours, minutes)
}

// CombineDateTime joins an ISO date and a 24-hour time into the canonical
// appointment timestamp. No timezone conversion happens here; the system
// runs on clinic-local wall-clock time throughout.
func CombineDateTime(dateStr, time24 string) string {
	return dateStr + "T" + time24 + ":00"
}

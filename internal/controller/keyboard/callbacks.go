package keyboard

import (
	"fmt"
	"strconv"
	"strings"
)

// Callback data prefixes of the booking dialog. Every payload is
// "<prefix><value>", e.g. "pat:42".
const (
	PatientPrefix  = "pat:"
	PackagePrefix  = "pkg:"
	DoctorPrefix   = "doc:"
	PhysioPrefix   = "phy:"
	DurationPrefix = "dur:"
	RulePrefix     = "rule:"
	ConfirmPrefix  = "confirm:"

	CancelData = "cancel"
	// RuleOnce marks a one-off booking in the rule choice.
	RuleOnce = "once"
)

// Data builds callback data for an id.
func Data(prefix string, id int64) string {
	return prefix + strconv.FormatInt(id, 10)
}

// ParseID extracts the numeric part of "<prefix><id>".
func ParseID(data, prefix string) (int64, error) {
	if !strings.HasPrefix(data, prefix) {
		return 0, fmt.Errorf("callback %q has no prefix %q", data, prefix)
	}
	return strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
}

package attendance

import "strconv"

// Checkpoints is the divisor used to prorate an event fine. Events carry
// four checkpoints (AM in/out, PM in/out) but attendance is counted per
// session, so a student present for both sessions still owes half.
const Checkpoints = 4

// Prorate returns the share of fineAmount owed by a student who attended
// sessionsAttended sessions: (fineAmount / 4) * (4 - sessionsAttended).
func Prorate(fineAmount float64, sessionsAttended int) float64 {
	missed := Checkpoints - sessionsAttended
	return fineAmount / Checkpoints * float64(missed)
}

// FormatAmount renders a fine with two decimals for display.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

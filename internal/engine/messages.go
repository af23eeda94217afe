package engine

import "fmt"

// holdBody and positionBody render the notification bodies spec §4.3
// step 8 specifies verbatim.
func holdBody(position, estWait int) string {
	return fmt.Sprintf("On HOLD at position %d. ETA: %d mins", position, estWait)
}

func positionBody(oldPos, newPos, estWait int, helperChanged bool) string {
	body := fmt.Sprintf("Position: %d → %d. ETA: %d mins", oldPos, newPos, estWait)
	if helperChanged {
		body += " Helper reassigned."
	}
	return body
}

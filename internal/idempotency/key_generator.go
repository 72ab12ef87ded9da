package idempotency

import "strconv"

// UpdateKey names the record that guards one Telegram update.
func UpdateKey(updateID int) string {
	return "update:" + strconv.Itoa(updateID)
}

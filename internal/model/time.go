package model

import "time"

// DisplayZone is the fixed UTC+8 offset every timestamp is rendered in.
var DisplayZone = time.FixedZone("UTC+8", 8*60*60)

// FormatTime renders t in DisplayZone as RFC 3339.
func FormatTime(t time.Time) string {
	return t.In(DisplayZone).Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatTime(*t)
	return &s
}

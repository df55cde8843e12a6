package schema

import (
	"time"

	"github.com/ncruces/go-strftime"
)

// goReferenceTime is Go's canonical reference instant, Mon Jan 2 15:04:05
// MST 2006. Formatting it with a strftime pattern via the library yields
// exactly the Go reference-time layout string for that pattern, since
// time.Parse only cares about which digits/names appear where — so this
// sidesteps hand-maintaining a directive table and gets every specifier
// go-strftime supports (%j, %b, %A, %e, …) for free.
var goReferenceTime = time.Date(2006, time.January, 2, 15, 4, 5, 0, time.FixedZone("MST", -7*3600))

// strftimeToGoLayout translates a strftime-style format string into the Go
// reference-time layout Datetime values are parsed with.
func strftimeToGoLayout(format string) (string, error) {
	return strftime.Format(format, goReferenceTime), nil
}

package candidate

import (
	"fmt"

	"github.com/nav-solutions/gnss-rtk-go/pkg/gnss"
)

// SV identifies a single space vehicle by constellation and PRN.
type SV struct {
	System gnss.System
	PRN    uint8
}

func (sv SV) String() string {
	return fmt.Sprintf("%s%02d", sv.System.Abbr(), sv.PRN)
}

// Less orders SVs by system then PRN, used to obtain a deterministic pool
// ordering before the navigation matrices are assembled.
func (sv SV) Less(other SV) bool {
	if sv.System != other.System {
		return sv.System < other.System
	}
	return sv.PRN < other.PRN
}

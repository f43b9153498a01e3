// Package krawall decodes the binary record layouts written by the
// Krawall GBA sound engine: samples, instruments with envelopes,
// patterns with packed event streams, and module headers.
package krawall

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/jackmacwindows/unkrawerter/rom"
)

// Version is Krawall's BCD-packed release date, 0xYYYYMMDD. Two record
// layouts changed at the 2004-07-07 cutoff: the pattern row-count field
// width, and how a row's note+instrument pair is packed.
type Version uint32

// DefaultVersion is used when a ROM carries no recognizable version
// banner and the caller has not overridden it.
const DefaultVersion Version = 0x20050421

// Cutoff is the release date at or after which the newer pattern
// encoding applies. Versions strictly before Cutoff use the older,
// bit-steal encoding (see ReadPattern).
const Cutoff Version = 0x20040707

// Before2004 reports whether v predates Cutoff.
func (v Version) Before2004() bool { return v < Cutoff }

func (v Version) String() string {
	return fmt.Sprintf("%04x-%02x-%02x", uint32(v>>16), uint32((v>>8)&0xFF), uint32(v&0xFF))
}

var (
	mu      sync.Mutex
	current = DefaultVersion
)

// SetVersion overrides the process-wide default version used by decode
// calls that are not given an explicit Version.
func SetVersion(v Version) {
	mu.Lock()
	defer mu.Unlock()
	current = v
}

// CurrentVersion returns the process-wide default version.
func CurrentVersion() Version {
	mu.Lock()
	defer mu.Unlock()
	return current
}

var (
	bannerID   = []byte("$Id: Krawall version.h 8 ")
	bannerDate = []byte("$Date: ")
)

// DetectVersion scans r for Krawall's Subversion keyword banners
// ("$Id: Krawall version.h 8 YYYY-MM-DD ...$", "$Date: YYYY/MM/DD ...$")
// and, if found, returns the BCD-packed date they encode. Krawall ROMs built
// without keyword substitution (or stripped of debug strings) carry no
// banner at all; callers should fall back to DefaultVersion or an
// explicit override when ok is false.
func DetectVersion(r *rom.Handle) (Version, bool) {
	size := r.Size()
	if size <= 0 {
		return 0, false
	}
	const chunk = 1 << 20
	var buf []byte
	for base := int64(0); base < size; base += chunk {
		n := chunk
		if remaining := size - base; remaining < int64(n) {
			n = int(remaining)
		}
		data, err := r.Bytes(uint32(base), n)
		if err != nil {
			break
		}
		buf = data
		if v, ok := parseDateBanner(buf, bannerID, '-'); ok {
			return v, true
		}
		if v, ok := parseDateBanner(buf, bannerDate, '/'); ok {
			return v, true
		}
	}
	return 0, false
}

// parseDateBanner looks for prefix followed by a YYYY?MM?DD date inside
// buf, where ? is sep, and packs the date it finds as BCD. The
// remainder of the SVN keyword (time, day name, revision) is ignored.
func parseDateBanner(buf, prefix []byte, sep byte) (Version, bool) {
	idx := bytes.Index(buf, prefix)
	if idx < 0 {
		return 0, false
	}
	start := idx + len(prefix)
	if start+10 > len(buf) {
		return 0, false
	}
	date := buf[start : start+10]
	if date[4] != sep || date[7] != sep {
		return 0, false
	}
	year, ok1 := bcdDigits(date[0:4])
	month, ok2 := bcdDigits(date[5:7])
	day, ok3 := bcdDigits(date[8:10])
	if !ok1 || !ok2 || !ok3 {
		return 0, false
	}
	return Version(uint32(year)<<16 | uint32(month)<<8 | uint32(day)), true
}

// bcdDigits packs each decimal digit of b into its own hex nibble
// (e.g. "2005" -> 0x2005), matching Krawall's BCD-packed version date.
func bcdDigits(b []byte) (int, bool) {
	v := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*16 + int(c-'0')
	}
	return v, true
}

package contract

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"okinoko-higher_lower/sdk"
)

// ---------- UInt/String Helpers ----------

func UInt64ToString(val uint64) string {
	return strconv.FormatUint(val, 10)
}

// parseU8 parses a small decimal field, rejecting anything but digits.
func parseU8(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a uint8", ErrInvalidInput, s)
	}
	return uint8(v), nil
}

// ---------- Time Helpers ----------

// parseISO8601ToUnix parses "YYYY-MM-DDThh:mm:ss" UTC into UNIX seconds.
// Trailing fractions or zone designators after the seconds are ignored.
func parseISO8601ToUnix(s string) (uint64, error) {
	if len(s) < 19 || s[4] != '-' || s[7] != '-' || s[10] != 'T' || s[13] != ':' || s[16] != ':' {
		return 0, fmt.Errorf("%w: timestamp %q", ErrInvalidInput, s)
	}
	for _, i := range [...]int{0, 1, 2, 3, 5, 6, 8, 9, 11, 12, 14, 15, 17, 18} {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("%w: timestamp %q", ErrInvalidInput, s)
		}
	}
	year := strToUint16Fast(s[0:4])
	month := strToUint8Fast(s[5:7])
	day := strToUint8Fast(s[8:10])
	hour := strToUint8Fast(s[11:13])
	minute := strToUint8Fast(s[14:16])
	second := strToUint8Fast(s[17:19])
	if year < 1970 || month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || second > 59 {
		return 0, fmt.Errorf("%w: timestamp %q", ErrInvalidInput, s)
	}

	days := daysSinceUnixEpoch(year, month, day)
	return days*86400 + uint64(hour)*3600 + uint64(minute)*60 + uint64(second), nil
}

func strToUint16Fast(s string) uint16 {
	var n uint16
	for i := 0; i < len(s); i++ {
		n = n*10 + uint16(s[i]-'0')
	}
	return n
}

func strToUint8Fast(s string) uint8 {
	var n uint8
	for i := 0; i < len(s); i++ {
		n = n*10 + uint8(s[i]-'0')
	}
	return n
}

func isLeapYear(year uint16) bool {
	y := int(year)
	return (y%4 == 0 && y%100 != 0) || (y%400 == 0)
}

func daysSinceUnixEpoch(year uint16, month uint8, day uint8) uint64 {
	y := int(year) - 1970
	days := uint64(y * 365)
	days += uint64((y+1)/4 - (y+69)/100 + (y+369)/400)

	var monthDays = [12]uint8{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	for i := uint8(1); i < month; i++ {
		days += uint64(monthDays[i-1])
		if i == 2 && isLeapYear(year) {
			days++
		}
	}

	return days + uint64(day-1)
}

// ---------- Parsing Helpers ----------

func nextField(s *string) string {
	i := strings.IndexByte(*s, '|')
	if i < 0 {
		f := *s
		*s = ""
		return f
	}
	f := (*s)[:i]
	*s = (*s)[i+1:]
	return f
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func strPtr(s string) *string { return &s }

// ---------- Binary Writers ----------

func appendU64BE(out []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(out, tmp[:]...)
}

func appendAmount(out []byte, a sdk.Amount) []byte {
	b := a.Bytes16()
	return append(out, b[:]...)
}

// appendString16 writes a u16 length prefix followed by the bytes.
// Callers validate lengths before encoding.
func appendString16(out []byte, s string) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], uint16(len(s)))
	out = append(out, tmp[:]...)
	return append(out, s...)
}

// ---------- Binary Reader ----------

// rd is a binary reader over a byte slice. The first short read sets err and
// every later read returns zero values, so decoders check err once at the end.
type rd struct {
	b   []byte // raw buffer
	i   int    // current read index
	err error
}

func (r *rd) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.i+n > len(r.b) {
		r.err = fmt.Errorf("%w: decode overflow at %d", ErrCorruptState, r.i)
		return false
	}
	return true
}

func (r *rd) u8() byte {
	if !r.need(1) {
		return 0
	}
	v := r.b[r.i]
	r.i++
	return v
}

func (r *rd) u16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(r.b[r.i : r.i+2])
	r.i += 2
	return v
}

// u64 reads a uint64 in big-endian format.
func (r *rd) u64() uint64 {
	if !r.need(8) {
		return 0
	}
	v := binary.BigEndian.Uint64(r.b[r.i : r.i+8])
	r.i += 8
	return v
}

func (r *rd) str() string {
	l := int(r.u16())
	if !r.need(l) {
		return ""
	}
	v := string(r.b[r.i : r.i+l])
	r.i += l
	return v
}

func (r *rd) amount() sdk.Amount {
	if !r.need(16) {
		return sdk.Amount{}
	}
	var tmp [16]byte
	copy(tmp[:], r.b[r.i:r.i+16])
	r.i += 16
	return sdk.AmountFromBytes16(tmp)
}

// version reads the leading record version and rejects unknown ones.
func (r *rd) version(want uint8) {
	if v := r.u8(); r.err == nil && v != want {
		r.err = fmt.Errorf("%w: unsupported version %d", ErrCorruptState, v)
	}
}

// end verifies that every byte was consumed and returns the first error.
func (r *rd) end() error {
	if r.err != nil {
		return r.err
	}
	if r.i != len(r.b) {
		return fmt.Errorf("%w: trailing bytes", ErrCorruptState)
	}
	return nil
}

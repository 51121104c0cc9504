package s7proto

import (
	"fmt"
	"time"
)

// ClockResponse carries the PLC's current time, decoded from the 8-byte
// BCD-style timestamp the real protocol uses for clock and alarm
// timestamps alike.
type ClockResponse struct {
	Stamp time.Time
}

const clockPayloadSize = 8

func (c *ClockResponse) MarshalBinary() ([]byte, error) {
	buf := make([]byte, clockPayloadSize)
	encodePLCTimestamp(buf, c.Stamp)
	return buf, nil
}

func (c *ClockResponse) UnmarshalBinary(data []byte) error {
	if len(data) < clockPayloadSize {
		return fmt.Errorf("s7proto: clock response requires %d bytes, got %d", clockPayloadSize, len(data))
	}
	c.Stamp = decodePLCTimestamp(data[:clockPayloadSize])
	return nil
}

// encodePLCTimestamp packs t into dst as BCD year/month/day/hour/min/sec
// plus a two-digit hundredths-of-a-second field, the layout shared by
// clock reads and alarm entries. dst needs at least 7 bytes (a shorter
// slice is left untouched) and only its first 7 bytes are written; alarm
// entries pass their stamp field, bytes 5 to 12 of the 16-byte entry.
func encodePLCTimestamp(dst []byte, t time.Time) {
	if len(dst) < 7 {
		return
	}
	put := func(i int, v int) {
		dst[i] = toBCD(v)
	}
	put(0, t.Year()%100)
	put(1, int(t.Month()))
	put(2, t.Day())
	put(3, t.Hour())
	put(4, t.Minute())
	put(5, t.Second())
	if len(dst) >= 7 {
		dst[6] = toBCD(t.Nanosecond() / 10000000)
	}
}

func decodePLCTimestamp(src []byte) time.Time {
	if len(src) < 7 {
		return time.Time{}
	}
	year := 2000 + fromBCD(src[0])
	month := fromBCD(src[1])
	day := fromBCD(src[2])
	hour := fromBCD(src[3])
	min := fromBCD(src[4])
	sec := fromBCD(src[5])
	hundredths := fromBCD(src[6])
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}
	}
	return time.Date(year, time.Month(month), day, hour, min, sec, hundredths*10000000, time.UTC)
}

func toBCD(v int) byte {
	return byte((v/10)<<4 | (v % 10))
}

func fromBCD(b byte) int {
	return int(b>>4)*10 + int(b&0x0F)
}

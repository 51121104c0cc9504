package s7proto

import (
	"encoding/binary"
	"fmt"
	"time"
)

// AlarmState identifies the go/coming state of an alarm in an indication
// or the pending-alarm list.
type AlarmState byte

const (
	AlarmStateGoing  AlarmState = 0x00
	AlarmStateComing AlarmState = 0x01
)

// Alarm is one decoded alarm entry: an id, its state, and the PLC
// timestamp it was raised or cleared at.
type Alarm struct {
	ID    uint32
	State AlarmState
	Stamp time.Time
}

const alarmEntrySize = 16

// MarshalBinary encodes one 16-byte alarm entry.
func (a *Alarm) MarshalBinary() ([]byte, error) {
	buf := make([]byte, alarmEntrySize)
	binary.BigEndian.PutUint32(buf[0:4], a.ID)
	buf[4] = byte(a.State)
	encodePLCTimestamp(buf[5:13], a.Stamp)
	return buf, nil
}

// UnmarshalBinary decodes one 16-byte alarm entry.
func (a *Alarm) UnmarshalBinary(data []byte) error {
	if len(data) < alarmEntrySize {
		return fmt.Errorf("s7proto: alarm entry requires %d bytes, got %d", alarmEntrySize, len(data))
	}
	a.ID = binary.BigEndian.Uint32(data[0:4])
	a.State = AlarmState(data[4])
	a.Stamp = decodePLCTimestamp(data[5:13])
	return nil
}

// AlarmPage is one paged response to a PendingAlarm or AlarmUpdate
// request: the entries carried in this fragment, the sequence number they
// were requested with, and whether more pages follow.
type AlarmPage struct {
	SequenceNumber byte
	LastDataUnit   bool
	Entries        []Alarm
}

// UnmarshalBinary decodes a flat run of alarm entries from a UserData
// response payload.
func (p *AlarmPage) UnmarshalBinary(data []byte) error {
	if len(data)%alarmEntrySize != 0 {
		return fmt.Errorf("s7proto: alarm page length %d not a multiple of %d", len(data), alarmEntrySize)
	}
	n := len(data) / alarmEntrySize
	p.Entries = make([]Alarm, n)
	for i := 0; i < n; i++ {
		if err := p.Entries[i].UnmarshalBinary(data[i*alarmEntrySize:]); err != nil {
			return fmt.Errorf("s7proto: alarm entry %d: %w", i, err)
		}
	}
	return nil
}

// AlarmIndication is an unsolicited, unpaged notification the PLC sends on
// pdu_ref = 0 when a configured alarm changes state.
type AlarmIndication struct {
	Entries []Alarm
}

func (a *AlarmIndication) UnmarshalBinary(data []byte) error {
	page := AlarmPage{}
	if err := page.UnmarshalBinary(data); err != nil {
		return err
	}
	a.Entries = page.Entries
	return nil
}

package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/ccLee627/dacs7/internal/s7proto"
	"github.com/ccLee627/dacs7/internal/tpkt"
)

// frame is one decoded inbound S7 PDU, handed from readLoop to
// dispatchLoop over an unbuffered channel.
type frame struct {
	header s7proto.Header
	params []byte
	data   []byte
}

// readLoop blocks on tpkt.ReadFrame forever, decoding each inbound S7 PDU
// and forwarding it to dispatchLoop. It exits, and triggers Close, the
// first time the transport returns an error.
func (c *Conn) readLoop() {
	for {
		pdu, err := tpkt.ReadFrame(c.netConn)
		if err != nil {
			select {
			case <-c.done:
			default:
				c.setError(fmt.Errorf("dacs7: read loop: %w", err))
				c.logger.Warn("read loop terminated", "error", err)
				c.Close()
			}
			return
		}

		var hdr s7proto.Header
		if err := hdr.UnmarshalBinary(pdu); err != nil {
			c.logger.Warn("dropping undecodable pdu", "error", err)
			continue
		}
		start := hdr.Size()
		paramEnd := start + int(hdr.ParamLength)
		dataEnd := paramEnd + int(hdr.DataLength)
		if dataEnd > len(pdu) {
			c.logger.Warn("dropping truncated pdu", "pdu_ref", hdr.PduReference)
			continue
		}

		f := frame{header: hdr, params: pdu[start:paramEnd], data: pdu[paramEnd:dataEnd]}
		select {
		case c.inbound <- f:
		case <-c.done:
			return
		}
	}
}

// dispatchLoop owns the four in-flight maps and the alarm-subscription
// slot; it is the only goroutine that ever reads c.inbound, so no
// additional locking is needed around the routing decision itself.
func (c *Conn) dispatchLoop() {
	for {
		select {
		case f := <-c.inbound:
			c.route(f)
		case <-c.done:
			return
		}
	}
}

func (c *Conn) route(f frame) {
	if f.header.PduType == s7proto.UserDataPdu {
		var udh s7proto.UserDataHeader
		if err := udh.UnmarshalBinary(f.params); err != nil {
			c.logger.Warn("dropping undecodable user-data pdu", "error", err)
			return
		}
		if f.header.PduReference == 0 {
			c.deliverAlarmIndication(f)
			return
		}
		switch udh.SubFunction {
		case s7proto.SubFuncPendingAlarms, s7proto.SubFuncAlarmUpdate:
			c.resolvePending(callAlarm, f.header.PduReference, Result{Header: f.header, Params: f.params, Data: f.data})
		default:
			c.resolvePending(callBlockInfo, f.header.PduReference, Result{Header: f.header, Params: f.params, Data: f.data})
		}
		return
	}

	if f.header.PduType == s7proto.Job && len(f.params) > 0 && f.params[0] == s7proto.FuncCommSetup {
		c.logger.Debug("ignoring peer-initiated comm-setup after open", "pdu_ref", f.header.PduReference)
		return
	}

	if len(f.params) == 0 {
		c.logger.Warn("dropping pdu with empty params", "pdu_ref", f.header.PduReference)
		return
	}

	switch f.params[0] {
	case s7proto.FuncReadVar:
		c.resolvePending(callRead, f.header.PduReference, Result{Header: f.header, Params: f.params, Data: f.data})
	case s7proto.FuncWriteVar:
		c.resolvePending(callWrite, f.header.PduReference, Result{Header: f.header, Params: f.params, Data: f.data})
	default:
		c.logger.Warn("dropping pdu with unrecognized function", "function", f.params[0], "pdu_ref", f.header.PduReference)
	}
}

func (c *Conn) deliverAlarmIndication(f frame) {
	sub := c.alarmSub.Load()
	if sub == nil || sub.Callback == nil {
		return
	}
	var indication s7proto.AlarmIndication
	if err := indication.UnmarshalBinary(f.data); err != nil {
		c.logger.Warn("dropping undecodable alarm indication", "error", err)
		return
	}
	sub.Callback(indication)
}

func (c *Conn) pendingMap(kind callKind) map[uint16]chan Result {
	switch kind {
	case callRead:
		return c.readPending
	case callWrite:
		return c.writePending
	case callBlockInfo:
		return c.blockInfoPending
	default:
		return c.alarmPending
	}
}

func (c *Conn) registerPending(kind callKind, ref uint16) chan Result {
	ch := make(chan Result, 1)
	c.mapMu.Lock()
	c.pendingMap(kind)[ref] = ch
	c.mapMu.Unlock()
	return ch
}

func (c *Conn) removePending(kind callKind, ref uint16) {
	c.mapMu.Lock()
	delete(c.pendingMap(kind), ref)
	c.mapMu.Unlock()
}

func (c *Conn) resolvePending(kind callKind, ref uint16, result Result) {
	c.mapMu.Lock()
	m := c.pendingMap(kind)
	ch, ok := m[ref]
	if ok {
		delete(m, ref)
	}
	c.mapMu.Unlock()
	if ok {
		ch <- result
	}
}

// Send issues one request/response round trip: acquire a parallelism
// permit, allocate a PDU reference, register the completion, frame and
// send, then wait for the matching response or timeout. It is the single
// algorithm behind Read, Write, ReadBlockInfo, ReadPendingAlarms, and
// ReadClock.
func (c *Conn) Send(ctx context.Context, kind callKind, pduType s7proto.PduType, params, data []byte, timeout time.Duration) (s7proto.Header, []byte, []byte, error) {
	if c.getState() != StateOpened {
		return s7proto.Header{}, nil, nil, ErrNotConnected
	}
	sem := c.sem.Load()
	if sem == nil {
		return s7proto.Header{}, nil, nil, ErrNotConnected
	}
	if err := sem.acquire(ctx); err != nil {
		return s7proto.Header{}, nil, nil, err
	}
	defer sem.release()

	ref := c.refGen.Next()
	ch := c.registerPending(kind, ref)

	hdr := s7proto.Header{PduType: pduType, PduReference: ref, ParamLength: uint16(len(params)), DataLength: uint16(len(data))}
	hdrBuf, err := hdr.MarshalBinary()
	if err != nil {
		c.removePending(kind, ref)
		return s7proto.Header{}, nil, nil, err
	}
	pdu := append(hdrBuf, params...)
	pdu = append(pdu, data...)

	c.sendMu.Lock()
	err = tpkt.WriteFrame(c.netConn, pdu)
	c.sendMu.Unlock()
	if err != nil {
		c.removePending(kind, ref)
		return s7proto.Header{}, nil, nil, fmt.Errorf("dacs7: send pdu: %w", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-ch:
		return res.Header, res.Params, res.Data, res.Err
	case <-timer.C:
		c.removePending(kind, ref)
		return s7proto.Header{}, nil, nil, &TimeoutError{PduRef: ref}
	case <-c.done:
		return s7proto.Header{}, nil, nil, ErrNotConnected
	}
}

// ReadVar sends a Job/FuncReadVar request and returns the AckData's
// params and data.
func (c *Conn) ReadVar(ctx context.Context, params []byte, timeout time.Duration) ([]byte, []byte, error) {
	_, rp, rd, err := c.Send(ctx, callRead, s7proto.Job, params, nil, timeout)
	return rp, rd, err
}

// WriteVar sends a Job/FuncWriteVar request and returns the AckData's
// params and data (the per-item return codes).
func (c *Conn) WriteVar(ctx context.Context, params, data []byte, timeout time.Duration) ([]byte, []byte, error) {
	_, rp, rd, err := c.Send(ctx, callWrite, s7proto.Job, params, data, timeout)
	return rp, rd, err
}

// BlockInfo sends a UserData block-info request and returns the
// response's params and data.
func (c *Conn) BlockInfo(ctx context.Context, params []byte, timeout time.Duration) ([]byte, []byte, error) {
	_, rp, rd, err := c.Send(ctx, callBlockInfo, s7proto.UserDataPdu, params, nil, timeout)
	return rp, rd, err
}

// PendingAlarms sends a UserData alarm-query request and returns the
// response's params and data. Clock reads do not use this map: their
// responses are routed to the block-info map, so they go through BlockInfo.
func (c *Conn) PendingAlarms(ctx context.Context, params []byte, timeout time.Duration) ([]byte, []byte, error) {
	_, rp, rd, err := c.Send(ctx, callAlarm, s7proto.UserDataPdu, params, nil, timeout)
	return rp, rd, err
}

// SubscribeAlarms installs the single alarm-subscription slot. Only one
// subscription may be active at a time; installing a new one replaces
// any previous callback.
func (c *Conn) SubscribeAlarms(cb func(s7proto.AlarmIndication)) {
	c.alarmSub.Store(&AlarmSubscription{Callback: cb})
}

// UnsubscribeAlarms clears the alarm-subscription slot.
func (c *Conn) UnsubscribeAlarms() {
	c.alarmSub.Store(nil)
}

// Package dacs7 provides a Go client library for Siemens S7 communication
// over ISO-on-TCP.
package dacs7

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ccLee627/dacs7/internal/dispatch"
	"github.com/ccLee627/dacs7/internal/pack"
	"github.com/ccLee627/dacs7/internal/s7proto"
	"github.com/ccLee627/dacs7/internal/tag"
	"github.com/ccLee627/dacs7/internal/tpkt"
)

// ConnectionState is the S7 connection lifecycle, re-exported from the
// dispatcher so callers installed via WithStateCallback can compare
// against it without reaching into an internal package.
type ConnectionState = dispatch.ConnectionState

// Re-exported connection states.
const (
	StateClosed             = dispatch.StateClosed
	StatePendingOpenRfc1006 = dispatch.StatePendingOpenRfc1006
	StateTransportOpened    = dispatch.StateTransportOpened
	StatePendingOpenPlc     = dispatch.StatePendingOpenPlc
	StateOpened             = dispatch.StateOpened
)

// Client is an S7 client connection to a single PLC.
type Client struct {
	cfg clientConfig

	connMu  sync.RWMutex
	connPtr *dispatch.Conn

	sub   *Subscription
	subMu sync.Mutex

	closing atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// Option is a functional option for configuring a Client.
type Option func(*clientConfig) error

type clientConfig struct {
	address           string
	rack              int
	slot              int
	connType          tpkt.ConnectionType
	pduSize           uint16
	maxParallelJobs   uint16
	dialTimeout       time.Duration
	callTimeout       time.Duration
	autoReconnect     bool
	maxReconnectDelay time.Duration
	healthCheck       time.Duration
	stateCallback     func(ConnectionState)
	logger            Logger
	metrics           Metrics
}

// WithAddress sets the target TCP address, host:port (required).
func WithAddress(address string) Option {
	return func(c *clientConfig) error {
		if address == "" {
			return fmt.Errorf("dacs7: target address cannot be empty")
		}
		c.address = address
		return nil
	}
}

// WithRack sets the PLC rack number (optional, defaults to 0).
func WithRack(rack int) Option {
	return func(c *clientConfig) error {
		c.rack = rack
		return nil
	}
}

// WithSlot sets the PLC slot number (optional, defaults to 2 — the common
// CPU slot on S7-300/400 racks).
func WithSlot(slot int) Option {
	return func(c *clientConfig) error {
		c.slot = slot
		return nil
	}
}

// WithConnectionType sets the COTP connection type (PG/OP/Basic), which
// selects the role encoded into the remote TSAP (optional, defaults to Pg).
func WithConnectionType(connType tpkt.ConnectionType) Option {
	return func(c *clientConfig) error {
		c.connType = connType
		return nil
	}
}

// WithPDUSize sets the requested PDU size negotiated during COMM-SETUP
// (optional, defaults to 960).
func WithPDUSize(size uint16) Option {
	return func(c *clientConfig) error {
		if size < 64 {
			return fmt.Errorf("dacs7: pdu size must be at least 64")
		}
		c.pduSize = size
		return nil
	}
}

// WithMaxParallelJobs sets the requested MaxAmQCalling/MaxAmQCalled,
// bounding how many requests may be outstanding at once (optional,
// defaults to 8).
func WithMaxParallelJobs(jobs uint16) Option {
	return func(c *clientConfig) error {
		if jobs == 0 {
			return fmt.Errorf("dacs7: max parallel jobs must be positive")
		}
		c.maxParallelJobs = jobs
		return nil
	}
}

// WithTimeout sets the timeout applied to both dialing and individual
// request/response round trips (optional, defaults to 5s).
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) error {
		if timeout <= 0 {
			return fmt.Errorf("dacs7: timeout must be positive")
		}
		c.dialTimeout = timeout
		c.callTimeout = timeout
		return nil
	}
}

// WithAutoReconnect enables a background supervisor that redials and
// redrives the handshake whenever the connection drops unexpectedly.
func WithAutoReconnect(enabled bool) Option {
	return func(c *clientConfig) error {
		c.autoReconnect = enabled
		return nil
	}
}

// WithMaxReconnectDelay caps the exponential backoff the reconnect
// supervisor applies between dial attempts (optional, defaults to 30s).
func WithMaxReconnectDelay(d time.Duration) Option {
	return func(c *clientConfig) error {
		if d <= 0 {
			return fmt.Errorf("dacs7: max reconnect delay must be positive")
		}
		c.maxReconnectDelay = d
		return nil
	}
}

// WithHealthCheck enables a periodic ReadClock probe while connected, at
// the given interval, so a half-open TCP connection is detected and
// recycled by the reconnect supervisor instead of hanging every caller.
func WithHealthCheck(interval time.Duration) Option {
	return func(c *clientConfig) error {
		if interval <= 0 {
			return fmt.Errorf("dacs7: health check interval must be positive")
		}
		c.healthCheck = interval
		return nil
	}
}

// WithStateCallback installs a hook invoked on every connection-state
// transition, including transitions driven by the reconnect supervisor.
func WithStateCallback(cb func(ConnectionState)) Option {
	return func(c *clientConfig) error {
		c.stateCallback = cb
		return nil
	}
}

// New creates a new S7 client and opens the connection.
func New(opts ...Option) (*Client, error) {
	cfg := clientConfig{
		rack:              0,
		slot:              2,
		connType:          tpkt.Pg,
		pduSize:           960,
		maxParallelJobs:   8,
		dialTimeout:       5 * time.Second,
		callTimeout:       5 * time.Second,
		maxReconnectDelay: 30 * time.Second,
		logger:            DefaultLogger,
		metrics:           DefaultMetrics,
	}

	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if cfg.address == "" {
		return nil, fmt.Errorf("dacs7: target address is required")
	}

	client := &Client{cfg: cfg, done: make(chan struct{})}

	conn, err := client.dialAndOpen(context.Background())
	if err != nil {
		return nil, err
	}
	client.connPtr = conn

	if cfg.autoReconnect {
		client.wg.Add(1)
		go client.reconnectSupervisor()
	}
	if cfg.healthCheck > 0 {
		client.wg.Add(1)
		go client.healthCheckLoop()
	}

	return client, nil
}

func (c *Client) dialAndOpen(ctx context.Context) (*dispatch.Conn, error) {
	c.cfg.metrics.ConnectionAttempts()

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.dialTimeout)
	defer cancel()

	dialer := &net.Dialer{}
	netConn, err := dialer.DialContext(dialCtx, "tcp", c.cfg.address)
	if err != nil {
		c.cfg.metrics.ConnectionFailures()
		return nil, fmt.Errorf("dacs7: dial %s: %w", c.cfg.address, err)
	}

	conn := dispatch.NewConn(netConn, c.cfg.rack, c.cfg.slot, c.cfg.connType,
		dispatch.WithLogger(c.cfg.logger),
		dispatch.WithStateCallback(func(s ConnectionState) {
			c.cfg.metrics.ConnectionActive(s == StateOpened)
			if c.cfg.stateCallback != nil {
				c.cfg.stateCallback(s)
			}
		}),
	)

	openCtx, openCancel := context.WithTimeout(ctx, c.cfg.dialTimeout)
	defer openCancel()
	if err := conn.Open(openCtx, c.cfg.pduSize, c.cfg.maxParallelJobs); err != nil {
		c.cfg.metrics.ConnectionFailures()
		return nil, fmt.Errorf("dacs7: open: %w", err)
	}

	c.cfg.metrics.ConnectionSuccesses()
	return conn, nil
}

func (c *Client) conn() *dispatch.Conn {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connPtr
}

func (c *Client) swapConn(conn *dispatch.Conn) {
	c.connMu.Lock()
	c.connPtr = conn
	c.connMu.Unlock()
}

func (c *Client) logger() Logger   { return c.cfg.logger }
func (c *Client) metrics() Metrics { return c.cfg.metrics }

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	return c.conn().State()
}

// Close releases the connection and stops any background supervisors.
// Close is idempotent.
func (c *Client) Close() error {
	if c.closing.Swap(true) {
		return nil
	}
	close(c.done)
	c.wg.Wait()

	c.subMu.Lock()
	if c.sub != nil {
		c.sub.Close()
		c.sub = nil
	}
	c.subMu.Unlock()

	return c.conn().Close()
}

func (c *Client) reconnectSupervisor() {
	defer c.wg.Done()

	backoff := 500 * time.Millisecond
	stateCh := make(chan ConnectionState, 8)

	prevCb := c.cfg.stateCallback
	c.cfg.stateCallback = func(s ConnectionState) {
		if prevCb != nil {
			prevCb(s)
		}
		select {
		case stateCh <- s:
		default:
		}
	}

	for {
		select {
		case <-c.done:
			return
		case s := <-stateCh:
			if s != StateClosed || c.closing.Load() {
				continue
			}
		}

		for {
			select {
			case <-c.done:
				return
			case <-time.After(backoff):
			}

			c.cfg.metrics.Reconnections()
			conn, err := c.dialAndOpen(context.Background())
			if err != nil {
				c.cfg.logger.Warn("reconnect attempt failed", "error", err)
				backoff *= 2
				if backoff > c.cfg.maxReconnectDelay {
					backoff = c.cfg.maxReconnectDelay
				}
				continue
			}

			c.swapConn(conn)
			c.resubscribeAlarms()
			backoff = 500 * time.Millisecond
			break
		}
	}
}

func (c *Client) healthCheckLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.healthCheck)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.cfg.metrics.HealthCheckStarted()
			ctx, cancel := context.WithTimeout(context.Background(), c.cfg.callTimeout)
			_, err := c.ReadClock(ctx)
			cancel()
			c.cfg.metrics.HealthCheckCompleted(err == nil)
			if err != nil {
				c.cfg.logger.Warn("health check failed", "error", err)
				if ClassifyError("health_check", err).Category == CategoryTimeout {
					c.conn().Close()
				}
			}
		}
	}
}

func (c *Client) resubscribeAlarms() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if c.sub == nil {
		return
	}
	c.conn().SubscribeAlarms(c.sub.notify)
}

// addressItemFor builds the wire AddressItem for one logical tag item (or
// item fragment).
func addressItemFor(entry pack.Entry) s7proto.AddressItem {
	it := entry.Item
	length := entry.DataLen
	bitAddr := uint32(it.Offset)
	if entry.Part != nil {
		bitAddr += uint32(entry.Part.OffsetWithinBytes) * 8
	}
	elementCount := length
	if it.Type != tag.Bit && it.Type.ElementSizeBytes() > 0 {
		elementCount = length / it.Type.ElementSizeBytes()
		if elementCount == 0 {
			elementCount = 1
		}
	}
	return s7proto.AddressItem{
		TransportSize: it.TransportSizeCode(),
		Length:        uint16(elementCount),
		DBNumber:      it.Area.DBNumber,
		Area:          it.Area.WireCode(),
		BitAddress:    bitAddr,
	}
}

// Read performs one batch read across the given tag addresses, parsed per
// the tag grammar, planned into PDU-sized packages, and reassembled back
// onto one byte buffer per address in the caller's original order.
func (c *Client) Read(ctx context.Context, addresses []string) ([][]byte, error) {
	items := make([]tag.Item, len(addresses))
	for i, addr := range addresses {
		it, err := tag.Parse(addr)
		if err != nil {
			c.cfg.metrics.ErrorOccurred(CategoryTagParse, "read")
			return nil, NewTagParseError(addr, err)
		}
		items[i] = it
	}
	return c.readItems(ctx, items)
}

// ReadTag performs a single-address read and returns its raw bytes.
func (c *Client) ReadTag(ctx context.Context, address string) ([]byte, error) {
	results, err := c.Read(ctx, []string{address})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

func (c *Client) readItems(ctx context.Context, items []tag.Item) ([][]byte, error) {
	conn := c.conn()
	sess := conn.Session()
	if sess == nil {
		return nil, NewNotConnectedError("read")
	}

	c.cfg.metrics.OperationStarted("read")
	start := time.Now()

	packages, err := pack.PlanReads(items, sess.PduSize, sess.ReadItemMaxLength)
	if err != nil {
		c.cfg.metrics.OperationCompleted("read", time.Since(start), err)
		if cnap, ok := asCouldNotAddPackage(err); ok {
			return nil, NewCouldNotAddPackageError(items[cnap.ItemIndex].String(), cnap.ItemIndex, err)
		}
		return nil, err
	}
	c.cfg.metrics.PackagesSent(len(packages))
	if len(packages) > 1 {
		c.cfg.metrics.PackagesSplit(len(packages) - 1)
	}

	responses := make([][]pack.ItemResult, len(packages))
	for pi, pkg := range packages {
		params := make([]byte, 2, 2+len(pkg.Entries)*s7proto.AddressItemSize)
		params[0] = s7proto.FuncReadVar
		params[1] = byte(len(pkg.Entries))
		for _, entry := range pkg.Entries {
			addrItem := addressItemFor(entry)
			ib, _ := addrItem.MarshalBinary()
			params = append(params, ib...)
		}

		_, respData, err := conn.ReadVar(ctx, params, c.cfg.callTimeout)
		if err != nil {
			c.cfg.metrics.OperationCompleted("read", time.Since(start), err)
			return nil, classifyAndCount(c, "read", err)
		}

		var ack s7proto.ReadJobAck
		if err := ack.UnmarshalBinary(respData, len(pkg.Entries)); err != nil {
			c.cfg.metrics.OperationCompleted("read", time.Since(start), err)
			return nil, NewTransportError("read", err)
		}

		results := make([]pack.ItemResult, len(ack.Items))
		for i, di := range ack.Items {
			results[i] = pack.ItemResult{ReturnCode: di.ReturnCode, Data: di.Data}
		}
		responses[pi] = results

		c.cfg.metrics.BytesReceived(int64(len(respData)))
	}

	buffers, itemErr, err := pack.Reassemble(len(items), packages, responses)
	if err != nil {
		c.cfg.metrics.OperationCompleted("read", time.Since(start), err)
		return nil, NewTransportError("read", err)
	}
	if itemErr != nil {
		protoErr := NewProtocolContentError("read", itemErr.ItemIndex, itemErr.ReturnCode)
		c.cfg.metrics.OperationCompleted("read", time.Since(start), protoErr)
		return buffers, protoErr
	}

	c.cfg.metrics.OperationCompleted("read", time.Since(start), nil)
	return buffers, nil
}

// Write performs one batch write across the given tag addresses, one
// payload per address, planned into PDU-sized packages.
func (c *Client) Write(ctx context.Context, addresses []string, data [][]byte) error {
	if len(addresses) != len(data) {
		return NewValidationError("write", fmt.Errorf("dacs7: %d addresses but %d payloads", len(addresses), len(data)))
	}
	items := make([]tag.Item, len(addresses))
	for i, addr := range addresses {
		it, err := tag.Parse(addr)
		if err != nil {
			c.cfg.metrics.ErrorOccurred(CategoryTagParse, "write")
			return NewTagParseError(addr, err)
		}
		it.Data = data[i]
		items[i] = it
	}
	return c.writeItems(ctx, items)
}

// WriteTag performs a single-address write.
func (c *Client) WriteTag(ctx context.Context, address string, data []byte) error {
	return c.Write(ctx, []string{address}, [][]byte{data})
}

// ReadValue reads a single address and decodes it into a Go value matching
// the address's declared type, per DecodeValue.
func (c *Client) ReadValue(ctx context.Context, address string) (any, error) {
	it, err := tag.Parse(address)
	if err != nil {
		c.cfg.metrics.ErrorOccurred(CategoryTagParse, "read_value")
		return nil, NewTagParseError(address, err)
	}
	raw, err := c.ReadTag(ctx, address)
	if err != nil {
		return nil, err
	}
	value, err := DecodeValue(it.Type, raw)
	if err != nil {
		return nil, NewTransportError("read_value", err)
	}
	return value, nil
}

// WriteValue encodes value per EncodeValue for the address's declared type
// and writes it.
func (c *Client) WriteValue(ctx context.Context, address string, value any) error {
	it, err := tag.Parse(address)
	if err != nil {
		c.cfg.metrics.ErrorOccurred(CategoryTagParse, "write_value")
		return NewTagParseError(address, err)
	}
	data, err := EncodeValue(it.Type, value, it.Count*it.Type.ElementSizeBytes())
	if err != nil {
		return NewValidationError("write_value", err)
	}
	return c.WriteTag(ctx, address, data)
}

func (c *Client) writeItems(ctx context.Context, items []tag.Item) error {
	conn := c.conn()
	sess := conn.Session()
	if sess == nil {
		return NewNotConnectedError("write")
	}

	c.cfg.metrics.OperationStarted("write")
	start := time.Now()

	packages, err := pack.PlanWrites(items, sess.PduSize, sess.WriteItemMaxLength)
	if err != nil {
		c.cfg.metrics.OperationCompleted("write", time.Since(start), err)
		if cnap, ok := asCouldNotAddPackage(err); ok {
			return NewCouldNotAddPackageError(items[cnap.ItemIndex].String(), cnap.ItemIndex, err)
		}
		return err
	}
	c.cfg.metrics.PackagesSent(len(packages))
	if len(packages) > 1 {
		c.cfg.metrics.PackagesSplit(len(packages) - 1)
	}

	responses := make([][]pack.ItemResult, len(packages))
	for pi, pkg := range packages {
		params := make([]byte, 2, 2+len(pkg.Entries)*s7proto.AddressItemSize)
		params[0] = s7proto.FuncWriteVar
		params[1] = byte(len(pkg.Entries))

		var dataBuf []byte
		for ei, entry := range pkg.Entries {
			addrItem := addressItemFor(entry)
			ib, _ := addrItem.MarshalBinary()
			params = append(params, ib...)

			payload := entryPayload(entry)
			di := s7proto.DataItem{TransportSize: entry.Item.TransportSizeCode(), Length: uint16(len(payload)), Data: payload}
			db, _ := di.MarshalBinary(ei != len(pkg.Entries)-1)
			dataBuf = append(dataBuf, db...)
		}

		_, respData, err := conn.WriteVar(ctx, params, dataBuf, c.cfg.callTimeout)
		if err != nil {
			c.cfg.metrics.OperationCompleted("write", time.Since(start), err)
			return classifyAndCount(c, "write", err)
		}

		var ack s7proto.WriteJobAck
		if err := ack.UnmarshalBinary(respData); err != nil {
			c.cfg.metrics.OperationCompleted("write", time.Since(start), err)
			return NewTransportError("write", err)
		}
		results := make([]pack.ItemResult, len(ack.ReturnCodes))
		for i, rc := range ack.ReturnCodes {
			results[i] = pack.ItemResult{ReturnCode: rc}
		}
		responses[pi] = results
		c.cfg.metrics.BytesSent(int64(len(dataBuf)))
	}

	_, itemErr, err := pack.Reassemble(len(items), packages, responses)
	if err != nil {
		c.cfg.metrics.OperationCompleted("write", time.Since(start), err)
		return NewTransportError("write", err)
	}
	if itemErr != nil {
		protoErr := NewProtocolContentError("write", itemErr.ItemIndex, itemErr.ReturnCode)
		c.cfg.metrics.OperationCompleted("write", time.Since(start), protoErr)
		return protoErr
	}

	c.cfg.metrics.OperationCompleted("write", time.Since(start), nil)
	return nil
}

// entryPayload slices the item's backing Data for this entry, honoring
// split fragments the same way pack.Reassemble stitches them back together.
func entryPayload(entry pack.Entry) []byte {
	if entry.Part == nil {
		return entry.Item.Data
	}
	start := entry.Part.OffsetWithinBytes
	end := start + entry.Part.LengthBytes
	if end > len(entry.Item.Data) {
		end = len(entry.Item.Data)
	}
	return entry.Item.Data[start:end]
}

func asCouldNotAddPackage(err error) (*pack.CouldNotAddPackageError, bool) {
	cnap, ok := err.(*pack.CouldNotAddPackageError)
	return cnap, ok
}

func classifyAndCount(c *Client, op string, err error) error {
	classified := ClassifyError(op, err)
	c.cfg.metrics.ErrorOccurred(classified.Category, op)
	return classified
}

// ReadBlockInfo queries metadata for one program block in a single UserData
// request/response round trip; continuation pages are not requested.
func (c *Client) ReadBlockInfo(ctx context.Context, blockType s7proto.BlockType, blockNumber uint16) (*s7proto.BlockInfoResponse, error) {
	conn := c.conn()
	if conn.Session() == nil {
		return nil, NewNotConnectedError("read_block_info")
	}

	req := s7proto.BlockInfoRequest{BlockType: blockType, BlockNumber: blockNumber}
	reqBody, _ := req.MarshalBinary()

	hdr := s7proto.UserDataHeader{FunctionGroup: s7proto.GroupBlockFunctions, SubFunction: s7proto.SubFuncBlockInfo, LastDataUnit: true}
	params, _ := hdr.MarshalBinary()
	data := s7proto.EncodeUserDataResponseData(0, 0, reqBody)

	_, respData, err := conn.BlockInfo(ctx, append(params, data...), c.cfg.callTimeout)
	if err != nil {
		return nil, classifyAndCount(c, "read_block_info", err)
	}

	returnCode, _, payload, err := s7proto.DecodeUserDataResponseData(respData)
	if err != nil {
		return nil, NewTransportError("read_block_info", err)
	}
	if returnCode != s7proto.ReturnCodeOK {
		return nil, NewProtocolContentError("read_block_info", 0, returnCode)
	}

	var info s7proto.BlockInfoResponse
	if err := info.UnmarshalBinary(payload); err != nil {
		return nil, NewTransportError("read_block_info", err)
	}
	return &info, nil
}

// ReadPendingAlarms requests the current set of pending alarms, paging
// through UserData responses by sequence number until the PLC reports
// LastDataUnit.
func (c *Client) ReadPendingAlarms(ctx context.Context) ([]s7proto.Alarm, error) {
	conn := c.conn()
	if conn.Session() == nil {
		return nil, NewNotConnectedError("read_pending_alarms")
	}

	var entries []s7proto.Alarm
	var seq byte

	for {
		hdr := s7proto.UserDataHeader{FunctionGroup: s7proto.GroupTimeFunctions, SubFunction: s7proto.SubFuncPendingAlarms, SequenceNumber: seq}
		params, _ := hdr.MarshalBinary()
		data := s7proto.EncodeUserDataResponseData(0, 0, nil)

		respParams, respData, err := conn.PendingAlarms(ctx, append(params, data...), c.cfg.callTimeout)
		if err != nil {
			return nil, classifyAndCount(c, "read_pending_alarms", err)
		}

		var respHdr s7proto.UserDataHeader
		if err := respHdr.UnmarshalBinary(respParams); err != nil {
			return nil, NewTransportError("read_pending_alarms", err)
		}

		returnCode, _, payload, err := s7proto.DecodeUserDataResponseData(respData)
		if err != nil {
			return nil, NewTransportError("read_pending_alarms", err)
		}
		if returnCode != s7proto.ReturnCodeOK {
			return nil, NewProtocolContentError("read_pending_alarms", 0, returnCode)
		}

		var page s7proto.AlarmPage
		if err := page.UnmarshalBinary(payload); err != nil {
			return nil, NewTransportError("read_pending_alarms", err)
		}
		entries = append(entries, page.Entries...)

		if respHdr.LastDataUnit {
			break
		}
		seq = respHdr.SequenceNumber + 1
	}

	return entries, nil
}

// ReadClock returns the PLC's current time.
func (c *Client) ReadClock(ctx context.Context) (time.Time, error) {
	conn := c.conn()
	if conn.Session() == nil {
		return time.Time{}, NewNotConnectedError("read_clock")
	}

	hdr := s7proto.UserDataHeader{FunctionGroup: s7proto.GroupTimeFunctions, SubFunction: s7proto.SubFuncReadClock, LastDataUnit: true}
	params, _ := hdr.MarshalBinary()
	data := s7proto.EncodeUserDataResponseData(0, 0, nil)

	_, respData, err := conn.BlockInfo(ctx, append(params, data...), c.cfg.callTimeout)
	if err != nil {
		return time.Time{}, classifyAndCount(c, "read_clock", err)
	}

	returnCode, _, payload, err := s7proto.DecodeUserDataResponseData(respData)
	if err != nil {
		return time.Time{}, NewTransportError("read_clock", err)
	}
	if returnCode != s7proto.ReturnCodeOK {
		return time.Time{}, NewProtocolContentError("read_clock", 0, returnCode)
	}

	var clock s7proto.ClockResponse
	if err := clock.UnmarshalBinary(payload); err != nil {
		return time.Time{}, NewTransportError("read_clock", err)
	}
	return clock.Stamp, nil
}

// SubscribeAlarms installs the single alarm-subscription slot and returns a
// Subscription delivering unsolicited alarm indications. Only one
// subscription may be active per Client; calling SubscribeAlarms again
// replaces the previous one.
func (c *Client) SubscribeAlarms(ctx context.Context) (*Subscription, error) {
	conn := c.conn()
	if conn.Session() == nil {
		return nil, NewNotConnectedError("subscribe_alarms")
	}

	c.subMu.Lock()
	defer c.subMu.Unlock()

	if c.sub != nil {
		c.sub.Close()
	}

	sub := newSubscription(c)
	conn.SubscribeAlarms(sub.notify)
	c.sub = sub
	c.cfg.metrics.AlarmSubscriptionActive(true)
	return sub, nil
}

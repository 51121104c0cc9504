package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ccLee627/dacs7"
	"github.com/ccLee627/dacs7/internal/s7proto"
)

// Middleware provides JSON-based operations over a dacs7 client
type Middleware struct {
	client        *dacs7.Client
	subscriptions map[string]*dacs7.Subscription
	subMutex      sync.RWMutex
	subManager    *SubscriptionManager
	config        *Config
	startTime     time.Time
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(client *dacs7.Client, config *Config) *Middleware {
	return &Middleware{
		client:        client,
		subscriptions: make(map[string]*dacs7.Subscription),
		subManager:    NewSubscriptionManager(client, config.Middleware.MaxSubscriptions),
		config:        config,
		startTime:     time.Now(),
	}
}

// ReadTag reads a single tag value
func (m *Middleware) ReadTag(ctx context.Context, tagAddr string) (*TagValueResponse, error) {
	value, err := m.client.ReadValue(ctx, tagAddr)
	if err != nil {
		return &TagValueResponse{
			Success: false,
			Tag:     tagAddr,
			Error:   err.Error(),
		}, nil
	}

	return &TagValueResponse{
		Success: true,
		Tag:     tagAddr,
		Value:   value,
	}, nil
}

// BatchRead reads multiple tags
func (m *Middleware) BatchRead(ctx context.Context, tagAddrs []string) (*BatchReadResponse, error) {
	if len(tagAddrs) > m.config.Middleware.MaxBatchSize {
		return nil, NewBatchSizeExceededError(len(tagAddrs), m.config.Middleware.MaxBatchSize)
	}

	data := make(map[string]interface{})
	errors := make(map[string]string)

	for _, tagAddr := range tagAddrs {
		value, err := m.client.ReadValue(ctx, tagAddr)
		if err != nil {
			errors[tagAddr] = err.Error()
		} else {
			data[tagAddr] = value
		}
	}

	return &BatchReadResponse{
		Success: len(errors) == 0,
		Data:    data,
		Errors:  errors,
	}, nil
}

// WriteTag writes a single tag value
func (m *Middleware) WriteTag(ctx context.Context, tagAddr string, value interface{}) (*WriteTagResponse, error) {
	err := m.client.WriteValue(ctx, tagAddr, value)
	if err != nil {
		return &WriteTagResponse{
			Success: false,
			Tag:     tagAddr,
			Error:   err.Error(),
		}, nil
	}

	return &WriteTagResponse{
		Success: true,
		Tag:     tagAddr,
	}, nil
}

// BatchWrite writes multiple tags
func (m *Middleware) BatchWrite(ctx context.Context, writes map[string]interface{}) (*BatchWriteResponse, error) {
	if len(writes) > m.config.Middleware.MaxBatchSize {
		return nil, NewBatchSizeExceededError(len(writes), m.config.Middleware.MaxBatchSize)
	}

	results := make(map[string]bool)
	errors := make(map[string]string)

	for tagAddr, value := range writes {
		err := m.client.WriteValue(ctx, tagAddr, value)
		if err != nil {
			results[tagAddr] = false
			errors[tagAddr] = err.Error()
		} else {
			results[tagAddr] = true
		}
	}

	return &BatchWriteResponse{
		Success: len(errors) == 0,
		Results: results,
		Errors:  errors,
	}, nil
}

// GetBlockInfo retrieves metadata for a program block
func (m *Middleware) GetBlockInfo(ctx context.Context, blockType string, blockNumber uint16) (*BlockInfoResponse, error) {
	bt, ok := parseBlockType(blockType)
	if !ok {
		return &BlockInfoResponse{
			Success: false,
			Error:   fmt.Sprintf("unknown block type: %s (supported: OB, DB, FC, FB)", blockType),
		}, nil
	}

	info, err := m.client.ReadBlockInfo(ctx, bt, blockNumber)
	if err != nil {
		return &BlockInfoResponse{
			Success:     false,
			BlockNumber: blockNumber,
			Error:       err.Error(),
		}, nil
	}

	return &BlockInfoResponse{
		Success:       true,
		BlockNumber:   blockNumber,
		LoadMemSize:   info.LoadMemSize,
		LocalDataSize: info.LocalDataSize,
		MC7CodeSize:   info.MC7CodeSize,
	}, nil
}

func parseBlockType(s string) (s7proto.BlockType, bool) {
	switch s {
	case "OB":
		return s7proto.BlockTypeOB, true
	case "DB":
		return s7proto.BlockTypeDB, true
	case "FC":
		return s7proto.BlockTypeFC, true
	case "FB":
		return s7proto.BlockTypeFB, true
	default:
		return 0, false
	}
}

// GetPendingAlarms retrieves the current set of pending alarms
func (m *Middleware) GetPendingAlarms(ctx context.Context) (*PendingAlarmsResponse, error) {
	alarms, err := m.client.ReadPendingAlarms(ctx)
	if err != nil {
		return &PendingAlarmsResponse{
			Success: false,
			Error:   err.Error(),
		}, nil
	}

	entries := make([]AlarmEntry, len(alarms))
	for i, a := range alarms {
		entries[i] = AlarmEntry{ID: a.ID, Going: a.State == s7proto.AlarmStateGoing, Stamp: a.Stamp}
	}

	return &PendingAlarmsResponse{
		Success: true,
		Count:   len(entries),
		Alarms:  entries,
	}, nil
}

// GetHealth returns the health status
func (m *Middleware) GetHealth() *HealthResponse {
	return &HealthResponse{
		Status:    "ok",
		Connected: m.client.State() == dacs7.StateOpened,
		Timestamp: time.Now(),
	}
}

// GetInfo returns server and PLC connection information
func (m *Middleware) GetInfo(ctx context.Context) (*InfoResponse, error) {
	return &InfoResponse{
		Target:         m.config.PLC.Target,
		Rack:           m.config.PLC.Rack,
		Slot:           m.config.PLC.Slot,
		ConnectionType: m.config.PLC.ConnectionType,
		Connected:      m.client.State() == dacs7.StateOpened,
		ServerUptime:   time.Since(m.startTime).String(),
	}, nil
}

// GetVersion retrieves the library's runtime version information
func (m *Middleware) GetVersion(ctx context.Context) *VersionResponse {
	return &VersionResponse{
		Success: true,
		Name:    "dacs7",
		Version: dacs7.Version(),
	}
}

// GetState retrieves the current connection state
func (m *Middleware) GetState(ctx context.Context) *StateResponse {
	state := m.client.State()
	return &StateResponse{
		Success:   true,
		State:     state.String(),
		Connected: state == dacs7.StateOpened,
	}
}

// GetClock reads the PLC's current time
func (m *Middleware) GetClock(ctx context.Context) *ClockResponse {
	t, err := m.client.ReadClock(ctx)
	if err != nil {
		return &ClockResponse{Success: false, Error: err.Error()}
	}
	return &ClockResponse{Success: true, Time: t}
}

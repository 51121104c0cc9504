package middleware

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// @title dacs7 HTTP/WebSocket Middleware API
// @version 1.0
// @description REST API for exchanging tag values and alarms with a Siemens S7 PLC
// @description
// @description ## Features
// @description - Read and write PLC tag addresses with automatic type detection
// @description - Batch operations for multiple tags
// @description - Program block metadata lookup
// @description - Pending-alarm retrieval and WebSocket push streaming of alarm indications
//
// @contact.name dacs7 Middleware
// @contact.url https://github.com/ccLee627/dacs7
//
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
//
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
//
// @tag.name tags
// @tag.description Tag read/write operations
// @tag.name blocks
// @tag.description Program block metadata
// @tag.name alarms
// @tag.description Alarm retrieval and streaming
// @tag.name system
// @tag.description Health and info endpoints

// Handler contains HTTP request handlers
type Handler struct {
	middleware *Middleware
	upgrader   *websocket.Upgrader
}

// NewHandler creates a new handler
func NewHandler(middleware *Middleware) *Handler {
	return &Handler{
		middleware: middleware,
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for now (configure CORS properly in production)
			},
		},
	}
}

// HandleReadTag handles GET /api/v1/tags/{address}/value
// @Summary Read tag value
// @Description Read the current value of a PLC tag address with automatic type detection
// @Tags tags
// @Produce json
// @Param address path string true "Tag address" example("DB1.0,dw")
// @Success 200 {object} TagValueResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /tags/{address}/value [get]
func (h *Handler) HandleReadTag(w http.ResponseWriter, r *http.Request) {
	tagAddr := chi.URLParam(r, "address")
	if tagAddr == "" {
		WriteError(w, NewInvalidRequestError("tag address is required"))
		return
	}

	result, err := h.middleware.ReadTag(r.Context(), tagAddr)
	if err != nil {
		WriteError(w, err)
		return
	}

	if !result.Success {
		WriteError(w, NewTagNotFoundError(tagAddr))
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// HandleWriteTag handles POST /api/v1/tags/{address}/value
// @Summary Write tag value
// @Description Write a value to a PLC tag address with automatic type encoding
// @Tags tags
// @Accept json
// @Produce json
// @Param address path string true "Tag address" example("DB1.0,dw")
// @Param body body WriteTagRequest true "Value to write"
// @Success 200 {object} WriteTagResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /tags/{address}/value [post]
func (h *Handler) HandleWriteTag(w http.ResponseWriter, r *http.Request) {
	tagAddr := chi.URLParam(r, "address")
	if tagAddr == "" {
		WriteError(w, NewInvalidRequestError("tag address is required"))
		return
	}

	var req WriteTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid JSON body"))
		return
	}

	result, err := h.middleware.WriteTag(r.Context(), tagAddr, req.Value)
	if err != nil {
		WriteError(w, err)
		return
	}

	if !result.Success {
		WriteError(w, NewWriteFailedError(tagAddr, result.Error))
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// HandleBatchRead handles POST /api/v1/tags/read
// @Summary Batch read tags
// @Description Read multiple tag addresses in a single request
// @Tags tags
// @Accept json
// @Produce json
// @Param body body BatchReadRequest true "List of tag addresses to read"
// @Success 200 {object} BatchReadResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /tags/read [post]
func (h *Handler) HandleBatchRead(w http.ResponseWriter, r *http.Request) {
	var req BatchReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid JSON body"))
		return
	}

	if len(req.Tags) == 0 {
		WriteError(w, NewInvalidRequestError("tags array cannot be empty"))
		return
	}

	result, err := h.middleware.BatchRead(r.Context(), req.Tags)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// HandleBatchWrite handles POST /api/v1/tags/write
// @Summary Batch write tags
// @Description Write multiple tag addresses in a single request
// @Tags tags
// @Accept json
// @Produce json
// @Param body body BatchWriteRequest true "Map of tag addresses to values"
// @Success 200 {object} BatchWriteResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /tags/write [post]
func (h *Handler) HandleBatchWrite(w http.ResponseWriter, r *http.Request) {
	var req BatchWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid JSON body"))
		return
	}

	if len(req.Writes) == 0 {
		WriteError(w, NewInvalidRequestError("writes map cannot be empty"))
		return
	}

	result, err := h.middleware.BatchWrite(r.Context(), req.Writes)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// HandleGetBlockInfo handles GET /api/v1/blocks/{type}/{number}
// @Summary Get program block metadata
// @Description Retrieve size/metadata for an OB, DB, FC, or FB program block
// @Tags blocks
// @Produce json
// @Param type path string true "Block type" example("DB")
// @Param number path int true "Block number" example(1)
// @Success 200 {object} BlockInfoResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /blocks/{type}/{number} [get]
func (h *Handler) HandleGetBlockInfo(w http.ResponseWriter, r *http.Request) {
	blockType := chi.URLParam(r, "type")
	numberStr := chi.URLParam(r, "number")
	number, err := strconv.ParseUint(numberStr, 10, 16)
	if err != nil {
		WriteError(w, NewInvalidRequestError("block number must be a non-negative integer"))
		return
	}

	result, err := h.middleware.GetBlockInfo(r.Context(), blockType, uint16(number))
	if err != nil {
		WriteError(w, err)
		return
	}

	if !result.Success {
		WriteError(w, NewInvalidRequestError(result.Error))
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// HandleGetPendingAlarms handles GET /api/v1/alarms
// @Summary Get pending alarms
// @Description Retrieve the PLC's current set of pending alarms
// @Tags alarms
// @Produce json
// @Success 200 {object} PendingAlarmsResponse
// @Failure 500 {object} ErrorResponse
// @Router /alarms [get]
func (h *Handler) HandleGetPendingAlarms(w http.ResponseWriter, r *http.Request) {
	result, err := h.middleware.GetPendingAlarms(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	if !result.Success {
		WriteError(w, NewInternalError(result.Error))
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// HandleHealth handles GET /api/v1/health
// @Summary Health check
// @Description Check if the server and PLC connection are healthy
// @Tags system
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	result := h.middleware.GetHealth()
	WriteJSON(w, http.StatusOK, result)
}

// HandleInfo handles GET /api/v1/info
// @Summary Server info
// @Description Get server and PLC connection information
// @Tags system
// @Produce json
// @Success 200 {object} InfoResponse
// @Router /info [get]
func (h *Handler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	result, err := h.middleware.GetInfo(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// HandleWebSocket handles WebSocket connections for alarm subscriptions
// @Summary WebSocket alarm subscription endpoint
// @Description Establish a WebSocket connection and push alarm indications as they arrive
// @Tags alarms
// @Accept json
// @Produce json
// @Success 101 {string} string "Switching Protocols"
// @Router /ws/alarms [get]
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.middleware.HandleWebSocket(conn)
}

// HandleGetVersion handles GET /api/v1/version
// @Summary Get runtime version
// @Description Retrieve library name and version information
// @Tags system
// @Produce json
// @Success 200 {object} VersionResponse
// @Failure 500 {object} ErrorResponse
// @Router /version [get]
func (h *Handler) HandleGetVersion(w http.ResponseWriter, r *http.Request) {
	result := h.middleware.GetVersion(r.Context())
	if !result.Success {
		WriteError(w, NewInternalError(result.Error))
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// HandleGetState handles GET /api/v1/state
// @Summary Get connection state
// @Description Retrieve the current PLC connection state
// @Tags system
// @Produce json
// @Success 200 {object} StateResponse
// @Failure 500 {object} ErrorResponse
// @Router /state [get]
func (h *Handler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	result := h.middleware.GetState(r.Context())
	if !result.Success {
		WriteError(w, NewInternalError(result.Error))
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// HandleGetClock handles GET /api/v1/clock
// @Summary Read PLC clock
// @Description Read the PLC's current time-of-day clock
// @Tags system
// @Produce json
// @Success 200 {object} ClockResponse
// @Failure 500 {object} ErrorResponse
// @Router /clock [get]
func (h *Handler) HandleGetClock(w http.ResponseWriter, r *http.Request) {
	result := h.middleware.GetClock(r.Context())
	if !result.Success {
		WriteError(w, NewInternalError(result.Error))
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

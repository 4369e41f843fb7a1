package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"loanwise/logger"
	"loanwise/ml"
	"loanwise/monitoring"
)

const wsWriteWait = 10 * time.Second

// liveReply is one answer on the live channel. Exactly one of Result and
// Error is set.
type liveReply struct {
	Result *predictionResponse `json:"result,omitempty"`
	Error  string              `json:"error,omitempty"`
	Fields validationErrors    `json:"fields,omitempty"`
}

func newUpgrader(origins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range origins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return "http://"+r.Host == origin || "https://"+r.Host == origin
		},
	}
}

// handleLivePredict answers every text frame (one JSON applicant record) with
// one JSON reply, so the page can re-evaluate on each widget change.
func (h *handlers) handleLivePredict(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warning("websocket upgrade failed", logger.Error(err))
		return
	}
	defer conn.Close()

	if h.maxFrame > 0 {
		conn.SetReadLimit(h.maxFrame)
	}
	client := clientIP(r)
	log := h.log.With(
		logger.String("request_id", GetRequestID(r.Context())),
		logger.String("client", client),
	)
	log.Debug("live channel opened")
	h.metrics.AddGauge(monitoring.MetricLiveConnections, 1, nil)
	defer h.metrics.AddGauge(monitoring.MetricLiveConnections, -1, nil)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warning("live channel read failed", logger.Error(err))
			}
			log.Debug("live channel closed")
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var reply liveReply
		if !h.limiter.Allow(client) {
			h.metrics.IncrCounter(monitoring.MetricRateLimited, 1, nil)
			reply.Error = "rate limit exceeded"
		} else {
			reply = h.evaluateFrame(data, log)
		}

		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(reply); err != nil {
			log.Warning("live channel write failed", logger.Error(err))
			return
		}
	}
}

func (h *handlers) evaluateFrame(data []byte, log logger.ILogger) liveReply {
	record := ml.DefaultApplicant()
	if err := json.Unmarshal(data, &record); err != nil {
		return liveReply{Error: "invalid JSON: " + err.Error()}
	}
	if verrs := validateNumbers(record); verrs != nil {
		h.metrics.RecordPrediction("ws", monitoring.OutcomeInvalid, 0)
		return liveReply{Error: "invalid input", Fields: verrs}
	}
	result, err := h.evaluate("ws", record)
	if err != nil {
		log.Error("live prediction failed", logger.Error(err))
		return liveReply{Error: err.Error()}
	}
	resp := newPredictionResponse(result)
	return liveReply{Result: &resp}
}

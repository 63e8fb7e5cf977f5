package usecase

import (
	"context"
	"encoding/json"
	"time"

	"MarketSage/internal/domain/models"
	domrepo "MarketSage/internal/domain/repository"
	pkgkafka "MarketSage/pkg/kafka"
	"MarketSage/pkg/logger"
)

// BarEventsHandler consumes bar events from Kafka and writes them to the
// bar store. Malformed events are dropped with an error so the consumer's
// retry/DLQ machinery can take over.
type BarEventsHandler struct {
	topic   string
	writer  domrepo.BarWriter
	log     *logger.Logger
	metrics domrepo.Metrics
}

func NewBarEventsHandler(topic string, writer domrepo.BarWriter, log *logger.Logger, metrics domrepo.Metrics) *BarEventsHandler {
	return &BarEventsHandler{topic: topic, writer: writer, log: log, metrics: metrics}
}

func (h *BarEventsHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, ts, open, high, low, close, volume}
func (h *BarEventsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol string  `json:"symbol"`
		TS     int64   `json:"ts"`
		Open   float64 `json:"open"`
		High   float64 `json:"high"`
		Low    float64 `json:"low"`
		Close  float64 `json:"close"`
		Volume float64 `json:"volume"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.TS > 1e11 { // ms
		m.TS = m.TS / 1000
	}

	bar := models.PriceBar{
		Timestamp: time.Unix(m.TS, 0).UTC(),
		Open:      m.Open,
		High:      m.High,
		Low:       m.Low,
		Close:     m.Close,
		Volume:    m.Volume,
	}
	if err := (models.PriceSeries{bar}).Validate(); err != nil {
		h.metrics.RecordError("consumer_validate")
		h.log.Warn("dropping malformed bar event",
			logger.String("symbol", m.Symbol),
			logger.Error(err))
		return err
	}

	start := time.Now()
	err := h.writer.InsertBars(ctx, m.Symbol, models.PriceSeries{bar})
	h.metrics.RecordLatency("bar_insert", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*BarEventsHandler)(nil)

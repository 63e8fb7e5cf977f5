package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"MarketSage/internal/domain/models"
)

type fakeBarWriter struct {
	mu   sync.Mutex
	bars map[string]models.PriceSeries
	err  error
}

func (f *fakeBarWriter) InsertBars(_ context.Context, symbol string, bars models.PriceSeries) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.bars == nil {
		f.bars = make(map[string]models.PriceSeries)
	}
	f.bars[symbol] = append(f.bars[symbol], bars...)
	return nil
}

func TestBarEventsHandlerStoresBar(t *testing.T) {
	writer := &fakeBarWriter{}
	h := NewBarEventsHandler("bars", writer, testLogger(t), noopMetrics{})

	if got := h.Topic(); got != "bars" {
		t.Errorf("topic = %q", got)
	}

	msg := []byte(`{"symbol":"AAPL","ts":1735689600,"open":100,"high":102,"low":99,"close":101,"volume":5000}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	series := writer.bars["AAPL"]
	if len(series) != 1 {
		t.Fatalf("stored %d bars, want 1", len(series))
	}
	bar := series[0]
	if !bar.Timestamp.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("timestamp = %v", bar.Timestamp)
	}
	if bar.Close != 101 || bar.Volume != 5000 {
		t.Errorf("bar = %+v", bar)
	}
}

func TestBarEventsHandlerMillisecondTimestamps(t *testing.T) {
	writer := &fakeBarWriter{}
	h := NewBarEventsHandler("bars", writer, testLogger(t), noopMetrics{})

	msg := []byte(`{"symbol":"AAPL","ts":1735689600000,"open":100,"high":102,"low":99,"close":101,"volume":1}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if got := writer.bars["AAPL"][0].Timestamp; !got.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("timestamp = %v, want ms value normalized to seconds", got)
	}
}

func TestBarEventsHandlerRejectsMalformed(t *testing.T) {
	writer := &fakeBarWriter{}
	h := NewBarEventsHandler("bars", writer, testLogger(t), noopMetrics{})

	tests := []struct {
		name string
		msg  string
	}{
		{"bad json", `{"symbol":`},
		{"high below low", `{"symbol":"AAPL","ts":1735689600,"open":100,"high":98,"low":99,"close":100,"volume":1}`},
		{"negative volume", `{"symbol":"AAPL","ts":1735689600,"open":100,"high":102,"low":99,"close":100,"volume":-1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := h.Handle(context.Background(), []byte(tt.msg)); err == nil {
				t.Error("expected error")
			}
		})
	}
	if len(writer.bars) != 0 {
		t.Errorf("malformed events were stored: %+v", writer.bars)
	}
}

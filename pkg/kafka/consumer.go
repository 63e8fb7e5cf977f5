package kafka

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// MessageHandler consumes messages from one topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// Consumer reads from one Kafka reader per registered topic and fans
// messages out to a shared worker pool. Handlers are retried with
// jittered backoff; messages that exhaust their retries go to the DLQ
// topic when one is configured. At most one message per
// (topic, partition) is in flight at a time.
type Consumer struct {
	cfg      *ConsumerConfig
	readers  map[string]*kafka.Reader
	handlers map[string]MessageHandler
	inbox    chan *inbound
	quit     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
	dlq      *kafka.Writer
	locks    map[string]map[int]*sync.Mutex
	hook     ConsumerHook
}

type inbound struct {
	topic string
	data  []byte
	km    kafka.Message
}

// NewConsumer creates a Kafka consumer.
func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:     "default",
		WorkerCount: 1,
		BufferSize:  10,
		RetryMax:    3,
		BackoffMin:  50 * time.Millisecond,
		BackoffMax:  2 * time.Second,
		MinBytes:    10e3,
		MaxBytes:    10e6,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	c := &Consumer{
		cfg:      cfg,
		readers:  make(map[string]*kafka.Reader),
		handlers: make(map[string]MessageHandler),
		inbox:    make(chan *inbound, cfg.BufferSize),
		quit:     make(chan struct{}),
		locks:    make(map[string]map[int]*sync.Mutex),
		hook:     NoopHook{},
	}

	consumerMetricsOnce.Do(registerConsumerMetrics)

	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Balancer: &kafka.LeastBytes{}}
	}

	return c, nil
}

// WithConsumerHook installs a lifecycle hook. A nil hook is ignored.
func (c *Consumer) WithConsumerHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

// RegisterHandler binds a handler to its topic. Only the first handler
// per topic wins.
func (c *Consumer) RegisterHandler(handler MessageHandler) {
	topic := handler.Topic()
	if _, ok := c.handlers[topic]; ok {
		log.Printf("warn: handler already registered for topic %s", topic)
		return
	}
	c.handlers[topic] = handler
}

// Start spins up the worker pool and one read loop per topic.
func (c *Consumer) Start() error {
	for topic := range c.handlers {
		c.readers[topic] = kafka.NewReader(kafka.ReaderConfig{
			Brokers:  c.cfg.Brokers,
			Topic:    topic,
			GroupID:  c.cfg.GroupID,
			MinBytes: c.cfg.MinBytes,
			MaxBytes: c.cfg.MaxBytes,
		})
		log.Printf("kafka consumer: subscribed topic=%s", topic)
	}

	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.wg.Add(1)
		go c.workLoop()
	}
	log.Printf("kafka consumer: running workers=%d", c.cfg.WorkerCount)

	for topic, reader := range c.readers {
		c.wg.Add(1)
		go c.readLoop(topic, reader)
	}

	return nil
}

// Stop shuts the consumer down, waiting for in-flight work up to the
// context deadline.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error

	c.stopOnce.Do(func() {
		log.Println("kafka consumer: stopping")

		close(c.quit)
		close(c.inbox)

		stopErr = c.awaitDone(ctx)

		for topic, reader := range c.readers {
			if err := reader.Close(); err != nil {
				log.Printf("close reader topic=%s: %v", topic, err)
			}
		}
		if c.dlq != nil {
			if err := c.dlq.Close(); err != nil {
				log.Printf("close dlq writer: %v", err)
			}
		}

		if stopErr == nil {
			log.Println("kafka consumer: stopped")
		}
	})

	return stopErr
}

func (c *Consumer) awaitDone(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("waiting for consumer shutdown: %w", ctx.Err())
	case <-done:
		return nil
	}
}

// readLoop polls one reader and enqueues messages, throttling instead
// of dropping when the inbox fills up.
func (c *Consumer) readLoop(topic string, reader *kafka.Reader) {
	defer c.wg.Done()

	for {
		select {
		case <-c.quit:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		msg, err := reader.ReadMessage(ctx)
		cancel()
		if err != nil {
			if !errors.Is(err, context.DeadlineExceeded) {
				log.Printf("read topic=%s: %v", topic, err)
			}
			continue
		}

		if !c.enqueue(&inbound{topic: topic, data: msg.Value, km: msg}) {
			return
		}
	}
}

func (c *Consumer) enqueue(msg *inbound) bool {
	for {
		select {
		case c.inbox <- msg:
			consumerQueueDepth.WithLabelValues(msg.topic).Set(float64(len(c.inbox)))
			consumerQueueFullness.WithLabelValues(msg.topic).Set(float64(len(c.inbox)) / float64(cap(c.inbox)))
			return true
		case <-c.quit:
			return false
		default:
			full := float64(len(c.inbox)) / float64(cap(c.inbox))
			consumerQueueFullness.WithLabelValues(msg.topic).Set(full)
			if full > 0.8 {
				time.Sleep(10 * time.Millisecond)
			} else {
				runtime.Gosched()
			}
		}
	}
}

func (c *Consumer) workLoop() {
	defer c.wg.Done()

	for msg := range c.inbox {
		handler, ok := c.handlers[msg.topic]
		if !ok {
			continue
		}
		c.process(handler, msg)
	}
}

// process runs one message through its handler with retries, then
// commits or dead-letters it. A panicking handler is contained here so
// the worker survives.
func (c *Consumer) process(handler MessageHandler, msg *inbound) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("panic in handler topic=%s: %v", msg.topic, r)
		}
	}()

	// Serialize per (topic, partition) so offsets commit in order.
	pl := c.partitionLock(msg.topic, msg.km.Partition)
	pl.Lock()
	defer pl.Unlock()

	var err error
	attempts := 0
	for {
		attempts++
		hctx, hmsg, hdata, berr := c.hook.BeforeHandle(context.Background(), msg.topic, msg.km, msg.data)
		if berr != nil {
			err = berr
			break
		}

		err = handler.Handle(hctx, hdata)
		c.hook.AfterHandle(hctx, msg.topic, hmsg, hdata, err)
		if err == nil || attempts > c.cfg.RetryMax {
			break
		}

		c.hook.OnError(hctx, msg.topic, hmsg, hdata, err)
		select {
		case <-time.After(jitterBackoff(c.cfg.BackoffMin, c.cfg.BackoffMax, attempts)):
		case <-c.quit:
			return
		}
	}

	if err != nil {
		c.hook.OnError(context.Background(), msg.topic, msg.km, msg.data, err)
		log.Printf("handle topic=%s attempts=%d: %v", msg.topic, attempts-1, err)
		c.deadLetter(msg)
	}

	// Commit on success, or after dead-lettering so a poison message
	// cannot wedge the partition.
	if err == nil || c.dlq != nil {
		if reader := c.readers[msg.topic]; reader != nil {
			_ = c.commit(reader, msg.km, 3)
		}
	}

	consumerHandleLatency.WithLabelValues(msg.topic).Observe(time.Since(start).Seconds())
}

func (c *Consumer) deadLetter(msg *inbound) {
	if c.dlq == nil {
		return
	}
	err := c.dlq.WriteMessages(context.Background(), kafka.Message{
		Topic:   c.cfg.DLQTopic,
		Value:   msg.data,
		Time:    time.Now(),
		Headers: []kafka.Header{{Key: "source_topic", Value: []byte(msg.topic)}},
	})
	if err != nil {
		log.Printf("write dlq topic=%s: %v", c.cfg.DLQTopic, err)
	}
}

// commit commits a single offset with bounded retries.
func (c *Consumer) commit(reader *kafka.Reader, km kafka.Message, max int) error {
	if max <= 0 {
		max = 1
	}
	var err error
	for attempt := 1; attempt <= max; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = reader.CommitMessages(ctx, km)
		cancel()
		if err == nil {
			return nil
		}
		time.Sleep(jitterBackoff(50*time.Millisecond, 500*time.Millisecond, attempt))
	}
	log.Printf("commit after %d attempts: %v", max, err)
	return err
}

// partitionLock lazily creates the mutex for a (topic, partition)
// pair. The maps are only touched from workers holding no other lock;
// the partition lock itself serializes access for a given pair.
func (c *Consumer) partitionLock(topic string, partition int) *sync.Mutex {
	m, ok := c.locks[topic]
	if !ok {
		m = make(map[int]*sync.Mutex)
		c.locks[topic] = m
	}
	l, ok := m[partition]
	if !ok {
		l = &sync.Mutex{}
		m[partition] = l
	}
	return l
}

// jitterBackoff returns an exponential delay capped at max, minus up to
// half of itself as jitter.
func jitterBackoff(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	exp := min * time.Duration(1<<uint(attempt-1))
	if exp > max {
		exp = max
	}
	jitter := time.Duration(rand.Int63n(int64(exp) / 2))
	return exp - jitter
}

var (
	consumerMetricsOnce   sync.Once
	consumerQueueDepth    *prometheus.GaugeVec
	consumerQueueFullness *prometheus.GaugeVec
	consumerHandleLatency *prometheus.HistogramVec
)

func registerConsumerMetrics() {
	consumerQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marketsage_kafka_consumer_queue_depth",
			Help: "Messages waiting in the consumer queue",
		},
		[]string{"topic"},
	)
	consumerQueueFullness = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marketsage_kafka_consumer_queue_fullness",
			Help: "Queue utilization ratio (len/cap)",
		},
		[]string{"topic"},
	)
	consumerHandleLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "marketsage_kafka_consumer_handle_seconds",
			Help: "Handling time per message",
		},
		[]string{"topic"},
	)
}

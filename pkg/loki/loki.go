package loki

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"
)

type Logger interface {
	Error(msg string, args ...any)
}

type Config struct {

	// Url of the push endpoint, e.g. http://loki:3100/loki/api/v1/push
	Url string `validate:"required,url"`

	// Labels are attached to every stream, "level" is added per entry
	Labels map[string]string

	Username string
	Password string `validate:"required_with=Username"`

	BatchMaxSize int           `validate:"gte=1"`
	BatchMaxWait time.Duration `validate:"gte=1"`

	// SendAttempts bounds retries of a batch on network errors and 5xx responses
	SendAttempts int           `validate:"gte=1"`
	RetryDelay   time.Duration `validate:"gte=0"`
}

func (cfg *Config) setDefaults() {
	if cfg.BatchMaxSize == 0 {
		cfg.BatchMaxSize = 500
	}
	if cfg.BatchMaxWait == 0 {
		cfg.BatchMaxWait = 5 * time.Second
	}
	if cfg.SendAttempts == 0 {
		cfg.SendAttempts = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Labels == nil {
		cfg.Labels = map[string]string{}
	}
}

type LogEntry struct {
	Level     string         `json:"-"`
	Message   string         `json:"msg"`
	Caller    string         `json:"caller,omitempty"`
	ErrorType string         `json:"error_type,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`

	time time.Time
}

type pushRequest struct {
	Streams []stream `json:"streams"`
}

type stream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

// ErrStopped is returned by Push after the pusher was stopped.
var ErrStopped = errors.New("loki pusher is stopped")

// Pusher batches log entries and sends them to Loki in the background.
type Pusher struct {
	config  Config
	ctx     context.Context
	cancel  context.CancelFunc
	client  *http.Client
	quit    chan struct{}
	entries chan LogEntry
	batch   []LogEntry
	done    sync.WaitGroup
	logger  Logger
}

func New(ctx context.Context, cfg Config, logger Logger) (*Pusher, error) {

	cfg.setDefaults()
	if err := validator.New().Struct(cfg); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &Pusher{
		config:  cfg,
		ctx:     ctx,
		cancel:  cancel,
		client:  &http.Client{Timeout: 10 * time.Second},
		quit:    make(chan struct{}),
		entries: make(chan LogEntry, cfg.BatchMaxSize),
		batch:   make([]LogEntry, 0, cfg.BatchMaxSize),
		logger:  logger,
	}

	p.done.Add(1)
	go p.run()
	return p, nil
}

// Push queues the entry for the next batch. It blocks only while the buffer is full.
func (p *Pusher) Push(e LogEntry) error {
	e.time = time.Now()
	select {
	case <-p.quit:
		return ErrStopped
	case <-p.ctx.Done():
		return ErrStopped
	case p.entries <- e:
		return nil
	}
}

// Stop flushes what is queued and stops the pusher. It must be called once.
func (p *Pusher) Stop() {
	close(p.quit)
	p.done.Wait()
	p.cancel()
}

func (p *Pusher) run() {
	defer p.done.Done()

	ticker := time.NewTicker(p.config.BatchMaxWait)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.quit:
			p.drain()
			p.flush()
			return
		case entry := <-p.entries:
			p.batch = append(p.batch, entry)
			if len(p.batch) >= p.config.BatchMaxSize {
				p.flush()
			}
		case <-ticker.C:
			p.flush()
		}
	}
}

func (p *Pusher) drain() {
	for {
		select {
		case entry := <-p.entries:
			p.batch = append(p.batch, entry)
		default:
			return
		}
	}
}

func (p *Pusher) flush() {
	if len(p.batch) == 0 {
		return
	}

	body, err := p.encode(p.batch)
	p.batch = p.batch[:0]
	if err != nil {
		p.logger.Error("failed to encode logs", "error", err)
		return
	}

	_, _, err = lo.AttemptWhileWithDelay(p.config.SendAttempts, p.config.RetryDelay,
		func(_ int, _ time.Duration) (error, bool) {
			retryable, sendErr := p.send(body)
			return sendErr, retryable && p.ctx.Err() == nil
		})
	if err != nil {
		p.logger.Error("failed to send logs", "error", err)
	}
}

// encode groups the batch into one stream per level and gzips the push request.
func (p *Pusher) encode(batch []LogEntry) ([]byte, error) {

	byLevel := lo.GroupBy(batch, func(e LogEntry) string { return e.Level })

	request := pushRequest{Streams: make([]stream, 0, len(byLevel))}
	for level, entries := range byLevel {
		labels := lo.Assign(p.config.Labels, map[string]string{"level": level})
		values := make([][2]string, 0, len(entries))
		for _, entry := range entries {
			line, err := json.Marshal(entry)
			if err != nil {
				entry.Fields = nil
				if line, err = json.Marshal(entry); err != nil {
					return nil, err
				}
			}
			values = append(values, [2]string{strconv.FormatInt(entry.time.UnixNano(), 10), string(line)})
		}
		request.Streams = append(request.Streams, stream{Stream: labels, Values: values})
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gz).Encode(request); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p *Pusher) send(body []byte) (retryable bool, err error) {

	req, err := http.NewRequestWithContext(p.ctx, http.MethodPost, p.config.Url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	if p.config.Username != "" {
		req.SetBasicAuth(p.config.Username, p.config.Password)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return true, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK {
		return false, nil
	}

	content, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
		fmt.Errorf("unexpected response from loki: %s, body: %s", resp.Status, string(content))
}

package mpv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dexterlb/mpvipc"

	"danmaku/internal/logging"
	"danmaku/internal/services"
)

// Option configures the client.
type Option func(*Client)

// WithLogger attaches a logger used for protocol-level debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "mpv")
	}
}

// Client talks to one mpv instance through an mpvipc connection and adds
// context support, ordered event delivery and typed property helpers.
type Client struct {
	conn   *mpvipc.Connection
	logger *slog.Logger

	// mpvipc writes a command and its newline terminator separately, so
	// concurrent calls must not overlap on the socket.
	callMu sync.Mutex
	calls  atomic.Int64

	stopEvents chan struct{}
	queueMu    sync.Mutex
	queue      []Event
	signal     chan struct{}
	forwarded  chan struct{}

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the IPC socket at path and waits for mpv to answer a
// client_name request, which also confirms the peer speaks the protocol.
func Dial(ctx context.Context, path string, opts ...Option) (*Client, error) {
	conn := mpvipc.NewConnection(path)
	opened := make(chan error, 1)
	go func() { opened <- conn.Open() }()
	select {
	case err := <-opened:
		if err != nil {
			return nil, fmt.Errorf("dial mpv socket %s: %w", path, err)
		}
	case <-ctx.Done():
		go func() {
			if <-opened == nil {
				_ = conn.Close()
			}
		}()
		return nil, fmt.Errorf("dial mpv socket %s: %w", path, ctx.Err())
	}

	c := &Client{
		conn:       conn,
		logger:     logging.NewNop(),
		stopEvents: make(chan struct{}),
		signal:     make(chan struct{}, 1),
		forwarded:  make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	events := make(chan *mpvipc.Event, 256)
	go conn.ListenForEvents(events, c.stopEvents)
	go c.forward(events)
	go func() {
		conn.WaitUntilClosed()
		close(c.done)
	}()

	if _, err := c.call(ctx, "client_name"); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("handshake with mpv socket %s: %w", path, err)
	}
	return c, nil
}

// Close drops the connection. Pending calls and WaitEvent return ErrClosed.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.stopEvents)
		err = c.conn.Close()
	})
	<-c.done
	<-c.forwarded
	return err
}

// Done is closed once the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// forward moves events from the mpvipc listener into an unbounded queue so a
// slow consumer never stalls the socket reader that replies depend on.
func (c *Client) forward(events <-chan *mpvipc.Event) {
	defer close(c.forwarded)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.enqueue(ev)
		case <-c.done:
			for {
				select {
				case ev, ok := <-events:
					if !ok {
						return
					}
					c.enqueue(ev)
				default:
					c.wake()
					return
				}
			}
		}
	}
}

func (c *Client) enqueue(ev *mpvipc.Event) {
	if ev == nil {
		return
	}
	c.queueMu.Lock()
	c.queue = append(c.queue, Event{Name: ev.Name, Reason: ev.Reason})
	c.queueMu.Unlock()
	c.wake()
}

func (c *Client) wake() {
	select {
	case c.signal <- struct{}{}:
	default:
	}
}

// WaitEvent blocks until mpv delivers an event, the context ends, or the
// connection is lost. Events received before a disconnect are still returned.
func (c *Client) WaitEvent(ctx context.Context) (Event, error) {
	for {
		c.queueMu.Lock()
		if len(c.queue) > 0 {
			ev := c.queue[0]
			c.queue = c.queue[1:]
			c.queueMu.Unlock()
			return ev, nil
		}
		c.queueMu.Unlock()

		select {
		case <-c.forwarded:
			c.queueMu.Lock()
			empty := len(c.queue) == 0
			c.queueMu.Unlock()
			if empty {
				return Event{}, ErrClosed
			}
		default:
		}

		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case <-c.signal:
		case <-c.forwarded:
		}
	}
}

type callResult struct {
	data any
	err  error
}

// call runs one mpv command. Commands still waiting for the socket when ctx
// ends are never sent.
func (c *Client) call(ctx context.Context, args ...any) (any, error) {
	if len(args) == 0 {
		return nil, errors.New("mpv command requires a name")
	}
	name := fmt.Sprint(args[0])
	select {
	case <-c.done:
		return nil, fmt.Errorf("%w: %s", ErrClosed, name)
	default:
	}

	result := make(chan callResult, 1)
	go func() {
		c.callMu.Lock()
		defer c.callMu.Unlock()
		if err := ctx.Err(); err != nil {
			result <- callResult{err: err}
			return
		}
		select {
		case <-c.done:
			result <- callResult{err: ErrClosed}
			return
		default:
		}
		data, err := c.conn.Call(args...)
		result <- callResult{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, fmt.Errorf("%w: %s", ErrClosed, name)
	case r := <-result:
		if r.err == nil {
			return r.data, nil
		}
		if errors.Is(r.err, ErrClosed) || errors.Is(r.err, ctx.Err()) {
			return nil, r.err
		}
		reply, rejected := strings.CutPrefix(r.err.Error(), "mpv error: ")
		if !rejected {
			return nil, fmt.Errorf("%w: %s: %w", ErrClosed, name, r.err)
		}
		seq := strconv.FormatInt(c.calls.Add(1), 10)
		logging.WithContext(services.WithRequestID(ctx, seq), c.logger).Debug("mpv command rejected",
			logging.String("command", name),
			logging.String("reply", reply),
		)
		return nil, replyError(name, reply)
	}
}

// GetString reads a property formatted as a string.
func (c *Client) GetString(ctx context.Context, name string) (string, error) {
	data, err := c.call(ctx, "get_property_string", name)
	if err != nil {
		return "", err
	}
	switch v := data.(type) {
	case nil:
		return "", fmt.Errorf("%w: %s", ErrPropertyUnavailable, name)
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("decode property %s: unexpected %T", name, data)
	}
}

// GetInt reads a numeric property.
func (c *Client) GetInt(ctx context.Context, name string) (int64, error) {
	data, err := c.call(ctx, "get_property", name)
	if err != nil {
		return 0, err
	}
	if data == nil {
		return 0, fmt.Errorf("%w: %s", ErrPropertyUnavailable, name)
	}
	return decodeInt(name, data)
}

func decodeInt(name string, data any) (int64, error) {
	var f float64
	switch v := data.(type) {
	case float64:
		f = v
	case string:
		text := strings.TrimSpace(v)
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return n, nil
		}
		parsed, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return 0, fmt.Errorf("decode property %s: %q is not a number", name, v)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("decode property %s: unexpected %T", name, data)
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("decode property %s: %v is not an integer", name, f)
	}
	return int64(f), nil
}

// SetString writes a property from its string form.
func (c *Client) SetString(ctx context.Context, name, value string) error {
	_, err := c.call(ctx, "set_property_string", name, value)
	return err
}

// AddSubtitle loads path as an external subtitle, selects it and tags it with
// lang and title.
func (c *Client) AddSubtitle(ctx context.Context, path, lang, title string) error {
	_, err := c.call(ctx, "sub-add", path, "select", title, lang)
	return err
}

// RemoveSubtitle unloads the subtitle track with the given track id.
func (c *Client) RemoveSubtitle(ctx context.Context, id int64) error {
	_, err := c.call(ctx, "sub-remove", strconv.FormatInt(id, 10))
	return err
}

// Package viiper streams keyboard reports to a virtual keyboard on a VIIPER
// server. The management protocol is a null-terminated request line
// ("bus/1/add {json}\x00") answered by one JSON line; device streams are
// opened with "bus/<bus>/<dev>\x00" and then carry raw device input one way
// and LED bytes the other.
package viiper

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

// Config controls the connection to the VIIPER API server.
type Config struct {
	Addr         string
	Password     string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.DialTimeout == 0 {
		c.DialTimeout = 3 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 5 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 5 * time.Second
	}
	return c
}

// Device is a device entry as reported by the server.
type Device struct {
	BusID uint32 `json:"busId"`
	DevID string `json:"devId"`
	Vid   string `json:"vid"`
	Pid   string `json:"pid"`
	Type  string `json:"type"`
}

// APIError is the problem document the server answers failures with.
type APIError struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("viiper: %d %s: %s", e.Status, e.Title, e.Detail)
	}
	return fmt.Sprintf("viiper: %d %s", e.Status, e.Title)
}

func parseError(line string) error {
	var problem APIError
	if err := json.Unmarshal([]byte(line), &problem); err == nil && (problem.Status != 0 || problem.Title != "") {
		if problem.Status == 401 {
			return fmt.Errorf("%w: %s", ErrUnauthorized, problem.Detail)
		}
		return &problem
	}
	return nil
}

// Client issues management requests.
type Client struct {
	cfg  Config
	dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

// NewClient creates a client for cfg.Addr.
func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	d := &net.Dialer{Timeout: cfg.DialTimeout}
	return &Client{cfg: cfg, dial: d.DialContext}
}

func (c *Client) connect(ctx context.Context) (net.Conn, error) {
	conn, err := c.dial(ctx, "tcp", c.cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}
	if c.cfg.Password == "" {
		return conn, nil
	}
	key, err := deriveKey(c.cfg.Password)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if c.cfg.WriteTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	sealed, err := handshake(conn, key)
	if err != nil {
		conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})
	return sealed, nil
}

// do sends "path[ payload]\x00" and returns the response line.
func (c *Client) do(ctx context.Context, path, payload string) (string, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	req := path
	if payload != "" {
		req += " " + payload
	}
	if c.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	if _, err := conn.Write([]byte(req + "\x00")); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}
	if c.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	}
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read: %w", err)
	}
	line = strings.TrimSuffix(line, "\n")
	if line == "" {
		return "", errors.New("empty response")
	}
	if err := parseError(line); err != nil {
		return "", err
	}
	return line, nil
}

// DeviceAdd creates a keyboard device on bus.
func (c *Client) DeviceAdd(ctx context.Context, bus uint32) (*Device, error) {
	payload, err := json.Marshal(map[string]string{"type": "keyboard"})
	if err != nil {
		return nil, err
	}
	line, err := c.do(ctx, fmt.Sprintf("bus/%d/add", bus), string(payload))
	if err != nil {
		return nil, fmt.Errorf("device add: %w", err)
	}
	var dev Device
	if err := json.Unmarshal([]byte(line), &dev); err != nil {
		return nil, fmt.Errorf("decode device: %w", err)
	}
	return &dev, nil
}

// DeviceRemove removes a device from its bus.
func (c *Client) DeviceRemove(ctx context.Context, bus uint32, dev string) error {
	if _, err := c.do(ctx, fmt.Sprintf("bus/%d/remove", bus), dev); err != nil {
		return fmt.Errorf("device remove: %w", err)
	}
	return nil
}

// OpenStream opens the input stream of an existing device.
func (c *Client) OpenStream(ctx context.Context, bus uint32, dev string) (net.Conn, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write([]byte(fmt.Sprintf("bus/%d/%s\x00", bus, dev))); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write stream path: %w", err)
	}
	return conn, nil
}

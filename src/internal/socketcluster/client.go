// FILE: actionwisp/src/internal/socketcluster/client.go
package socketcluster

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"actionwisp/src/internal/config"
	ltls "actionwisp/src/internal/tls"
	"actionwisp/src/internal/version"

	"github.com/fasthttp/websocket"
	"github.com/lixenwraith/log"
)

// Client dials the coordinator and drives the session handshake
type Client struct {
	config     *config.CoordinatorConfig
	dialer     *websocket.Dialer
	tlsManager *ltls.ClientManager
	logger     *log.Logger
}

// NewClient creates a client for the configured coordinator endpoint
func NewClient(cfg *config.CoordinatorConfig, logger *log.Logger) (*Client, error) {
	if cfg == nil {
		cfg = config.DefaultCoordinatorConfig()
	}
	if err := config.ValidateCoordinator(cfg); err != nil {
		return nil, err
	}

	tlsManager, err := ltls.NewClientManager(cfg.TLS, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create TLS manager: %w", err)
	}

	c := &Client{
		config:     cfg,
		tlsManager: tlsManager,
		logger:     logger,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: time.Duration(cfg.DialTimeoutMS) * time.Millisecond,
			TLSClientConfig:  tlsManager.GetConfig(),
		},
	}

	if tlsManager != nil {
		logger.Info("msg", "TLS enabled for coordinator connection",
			"component", "socketcluster",
			"url", cfg.URL)
	}

	return c, nil
}

// URL returns the coordinator endpoint
func (c *Client) URL() string {
	return c.config.URL
}

// Connect starts a connection attempt on its own goroutine and returns immediately.
// Lifecycle events are pushed to events until ctx is cancelled.
func (c *Client) Connect(ctx context.Context, events chan<- Event) {
	go c.run(ctx, events)
}

func (c *Client) run(ctx context.Context, events chan<- Event) {
	deliver := func(ev Event) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	c.logger.Debug("msg", "Connecting to coordinator",
		"component", "socketcluster",
		"url", c.config.URL)

	dialCtx, cancel := context.WithTimeout(ctx, time.Duration(c.config.DialTimeoutMS)*time.Millisecond)
	header := http.Header{"User-Agent": []string{version.UserAgent()}}
	conn, _, err := c.dialer.DialContext(dialCtx, c.config.URL, header)
	cancel()
	if err != nil {
		deliver(Closed{Err: stageError(StageConnect, err)})
		return
	}

	sess := newSession(ctx, conn, c.config, c.logger, deliver)
	sess.start()

	c.logger.Info("msg", "Connected to coordinator, waiting for authentication",
		"component", "socketcluster",
		"url", c.config.URL,
		"session_id", sess.ID())

	channel, err := sess.handshake(ctx)
	if err != nil {
		sess.closeWith(err)
		sess.wait()
		deliver(Closed{Session: sess, Err: err})
		return
	}

	deliver(Established{Session: sess, Channel: channel})

	select {
	case <-sess.Done():
	case <-ctx.Done():
		sess.Close()
	}
	sess.wait()

	deliver(Closed{Session: sess, Err: sess.Err()})
}

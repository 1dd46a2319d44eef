// Package signal maintains the long-lived push-notification socket. It is
// a transport only: inbound frames go to the subscriber unparsed, and the
// connection re-establishes itself (with a fresh address discovery) after
// any drop.
package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/avbdr/partyline/internal/core"
)

const (
	pushPath     = "/np/pushNotification"
	subProtocol  = "np-pushpacket"
	redialDelay  = 5 * time.Second
	discoveryCap = 10 * time.Second
)

// Fixed protocol header set the push endpoint expects.
const (
	headerReconnect       = "X-PSN-RECONNECT"
	headerAppVer          = "X-PSN-APP-VER"
	headerOSVer           = "X-PSN-OS-VER"
	headerProtocolVersion = "X-PSN-PROTOCOL-VERSION"
	headerKeepAliveStatus = "X-PSN-KEEP-ALIVE-STATUS-TYPE"
	headerAppType         = "X-PSN-APP-TYPE"

	appVer          = "20.9.3"
	osVer           = "13.5"
	protocolVersion = "2.1"
	keepAliveStatus = "3"
	appType         = "MOBILE_APP.PSAPP"
)

// Client owns the signaling socket. It never mutates session state; it
// publishes raw frames that the owning task consumes serially.
type Client struct {
	discoveryURL string
	doer         core.Doer
	token        func() string
	dialer       *websocket.Dialer
	frames       chan core.Frame

	// wss in production; tests swap in ws against a local server.
	scheme string
}

func NewClient(discoveryURL string, doer core.Doer, token func() string) *Client {
	return &Client{
		discoveryURL: discoveryURL,
		doer:         doer,
		token:        token,
		dialer: &websocket.Dialer{
			Subprotocols:     []string{subProtocol},
			HandshakeTimeout: 10 * time.Second,
		},
		frames: make(chan core.Frame),
		scheme: "wss",
	}
}

// Frames is the inbound push stream.
func (c *Client) Frames() <-chan core.Frame {
	return c.frames
}

// Run connects and pumps frames until ctx is cancelled. Every reconnect
// starts with a fresh discovery call because the assigned address may
// change between connections.
func (c *Client) Run(ctx context.Context) error {
	for {
		fqdn, err := c.discover(ctx)
		if err != nil {
			log.Warn().Err(err).Str("module", "signal").Msg("address discovery failed")
			if !c.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}

		if err := c.pump(ctx, fqdn); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn().Err(err).Str("module", "signal").Str("fqdn", fqdn).Msg("push socket dropped, reconnecting")
		}
		if !c.sleep(ctx) {
			return ctx.Err()
		}
	}
}

func (c *Client) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(redialDelay):
		return true
	}
}

// discover asks the server-address endpoint for the push FQDN.
func (c *Client) discover(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, discoveryCap)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.discoveryURL, nil)
	if err != nil {
		return "", &core.TransportError{Err: err}
	}
	req.Header.Set("Authorization", "bearer "+c.token())

	resp, err := c.doer.Do(req)
	if err != nil {
		return "", &core.TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &core.TransportError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &core.BackendError{Status: resp.StatusCode, Body: string(data)}
	}

	var addr struct {
		FQDN string `json:"fqdn"`
	}
	if err := json.Unmarshal(data, &addr); err != nil {
		return "", &core.TransportError{Err: fmt.Errorf("decode server address: %w", err)}
	}
	if addr.FQDN == "" {
		return "", &core.TransportError{Err: fmt.Errorf("server address response carries no fqdn")}
	}
	return addr.FQDN, nil
}

func (c *Client) headers(origin string) http.Header {
	hdr := http.Header{}
	hdr.Set(headerReconnect, "false")
	hdr.Set(headerAppVer, appVer)
	hdr.Set(headerOSVer, osVer)
	hdr.Set(headerProtocolVersion, protocolVersion)
	hdr.Set(headerKeepAliveStatus, keepAliveStatus)
	hdr.Set(headerAppType, appType)
	hdr.Set("Origin", origin)
	return hdr
}

// pump dials the push socket and reads frames until the connection or ctx
// dies.
func (c *Client) pump(ctx context.Context, fqdn string) error {
	u := fmt.Sprintf("%s://%s%s", c.scheme, fqdn, pushPath)
	conn, _, err := c.dialer.DialContext(ctx, u, c.headers(c.scheme+"://"+fqdn))
	if err != nil {
		return &core.TransportError{Err: err}
	}
	defer conn.Close()
	log.Info().Str("module", "signal").Str("fqdn", fqdn).Msg("push socket connected")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return &core.TransportError{Err: err}
		}
		select {
		case c.frames <- core.Frame(data):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

/*
 * Copyright (C) 2025 The "NetFence" Authors.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

// Package broker implements the client side of the privileged broker's line
// protocol. The broker is a separate root-owned process listening on a unix
// socket; it answers one-line commands with "ok[: payload]" or "error: msg".
package broker

import (
	"bufio"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	commandPing       = "ping"
	commandMode       = "mode"
	commandNetDisable = "net-disable"
	commandNetEnable  = "net-enable"
	commandNetList    = "net-list"

	responseOK    = "ok"
	responseError = "error"
)

// Mode describes how much the broker is allowed to do
type Mode string

const (
	// RootLike means the broker executes commands with full privileges
	RootLike = Mode("rootlike")
	// Restricted means the broker is limited to the app-toggle surface
	Restricted = Mode("restricted")
)

// ErrBrokerUnavailable indicates the broker socket cannot be reached
var ErrBrokerUnavailable = errors.New("privileged broker unavailable")

// Client talks to the privileged broker over its unix socket. Requests are
// serialized; the protocol has no framing beyond one line per message.
type Client struct {
	sockPath       string
	requestTimeout time.Duration

	mu   sync.Mutex
	conn net.Conn
}

// NewClient creates a client for the broker socket. No connection is made
// until the first request.
func NewClient(sockPath string, requestTimeout time.Duration) *Client {
	return &Client{
		sockPath:       sockPath,
		requestTimeout: requestTimeout,
	}
}

// Ping checks broker liveness
func (c *Client) Ping() error {
	_, err := c.request(commandPing)
	return err
}

// Mode asks the broker for its privilege mode
func (c *Client) Mode() (Mode, error) {
	payload, err := c.request(commandMode)
	if err != nil {
		return "", err
	}
	switch Mode(payload) {
	case RootLike, Restricted:
		return Mode(payload), nil
	}
	return "", errors.Errorf("unknown broker mode %q", payload)
}

// DisableNetwork asks the broker to cut all network access for the UID
func (c *Client) DisableNetwork(uid int) error {
	_, err := c.request(commandNetDisable, strconv.Itoa(uid))
	return err
}

// EnableNetwork asks the broker to restore network access for the UID
func (c *Client) EnableNetwork(uid int) error {
	_, err := c.request(commandNetEnable, strconv.Itoa(uid))
	return err
}

// DisabledUIDs lists the UIDs whose network access the broker currently disables
func (c *Client) DisabledUIDs() ([]int, error) {
	payload, err := c.request(commandNetList)
	if err != nil {
		return nil, err
	}
	if payload == "" {
		return nil, nil
	}
	var uids []int
	for _, field := range strings.Split(payload, ",") {
		uid, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, errors.Wrapf(err, "malformed uid list %q", payload)
		}
		uids = append(uids, uid)
	}
	return uids, nil
}

// Close closes the underlying connection, if any
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// request sends one command line and reads one response line. A dead
// connection is redialed once before giving up.
func (c *Client) request(cmd string, args ...string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	line := strings.Join(append([]string{cmd}, args...), " ")
	payload, err := c.roundTrip(line)
	if err == nil {
		return payload, nil
	}

	log.Debug().Err(err).Msg("Broker request failed, redialing")
	c.dropConn()
	if payload, err = c.roundTrip(line); err != nil {
		return "", err
	}
	return payload, nil
}

func (c *Client) roundTrip(line string) (string, error) {
	if err := c.ensureConn(); err != nil {
		return "", err
	}
	deadline := time.Now().Add(c.requestTimeout)
	if err := c.conn.SetDeadline(deadline); err != nil {
		return "", err
	}
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		return "", errors.Wrap(err, "broker write failed")
	}
	response, err := bufio.NewReader(c.conn).ReadString('\n')
	if err != nil {
		return "", errors.Wrap(err, "broker read failed")
	}
	return parseResponse(strings.TrimRight(response, "\n"))
}

func (c *Client) ensureConn() error {
	if c.conn != nil {
		return nil
	}
	dial := func() error {
		conn, err := net.DialTimeout("unix", c.sockPath, c.requestTimeout)
		if err != nil {
			return err
		}
		c.conn = conn
		return nil
	}
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(100*time.Millisecond), 3)
	if err := backoff.Retry(dial, policy); err != nil {
		return errors.Wrap(ErrBrokerUnavailable, err.Error())
	}
	return nil
}

func (c *Client) dropConn() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func parseResponse(response string) (string, error) {
	parts := strings.SplitN(response, ": ", 2)
	switch parts[0] {
	case responseOK:
		if len(parts) == 2 {
			return parts[1], nil
		}
		return "", nil
	case responseError:
		if len(parts) == 2 {
			return "", errors.New("broker: " + parts[1])
		}
		return "", errors.New("broker error without detail")
	}
	return "", errors.Errorf("malformed broker response %q", response)
}

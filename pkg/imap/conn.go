// Package imap speaks the backend's IMAP dialect at the wire level. The
// server's replies deviate from the documented contract in shape and
// ordering, so this package works on raw reply fragments and keeps all
// knowledge of those quirks behind ParseFetch and ParseFolderList.
package imap

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	// ServerAddr is the provider's IMAP endpoint. The drive only ever
	// talks to this host.
	ServerAddr = "imap.mail.yahoo.com:993"

	dialTimeout = 30 * time.Second

	// internalDateLayout is the quoted internal date sent with APPEND.
	internalDateLayout = `"02-Jan-2006 15:04:05 -0700"`
)

// Conn is one raw IMAP connection. It is not safe for concurrent use; each
// Session wraps exactly one Conn and each upload worker owns one Session.
type Conn struct {
	conn net.Conn
	r    *bufio.Reader
	w    *bufio.Writer
	tag  int
	log  zerolog.Logger
}

// response collects the untagged fragments received while waiting for the
// tagged completion of one command.
type response struct {
	fragments []Fragment
}

// DialTLS opens a TLS connection to the fixed server and consumes the
// server greeting.
func DialTLS(ctx context.Context, log zerolog.Logger) (*Conn, error) {
	dialer := tls.Dialer{NetDialer: &net.Dialer{Timeout: dialTimeout}}
	netConn, err := dialer.DialContext(ctx, "tcp", ServerAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", ServerAddr)
	}

	c := &Conn{
		conn: netConn,
		r:    bufio.NewReader(netConn),
		w:    bufio.NewWriter(netConn),
		log:  log,
	}

	greeting, err := c.readLine()
	if err != nil {
		netConn.Close()
		return nil, errors.Wrap(err, "read server greeting")
	}
	if !strings.HasPrefix(greeting, "* OK") {
		netConn.Close()
		return nil, errors.Errorf("unexpected server greeting: %s", greeting)
	}

	return c, nil
}

// Close tears down the underlying TCP connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// execute sends one command and reads replies until its tagged completion.
func (c *Conn) execute(cmd string) (*response, error) {
	tag := c.nextTag()
	if err := c.writeLine(tag + " " + cmd); err != nil {
		return nil, errors.Wrap(err, "send command")
	}
	return c.readResponse(tag)
}

// executeAppend runs the APPEND literal handshake: announce the message
// size, wait for the continuation prompt, then stream the message bytes.
func (c *Conn) executeAppend(mailbox, flags string, msg []byte) error {
	tag := c.nextTag()
	date := time.Now().Format(internalDateLayout)
	cmd := fmt.Sprintf("%s APPEND %s (%s) %s {%d}", tag, mailbox, flags, date, len(msg))
	if err := c.writeLine(cmd); err != nil {
		return errors.Wrap(err, "send APPEND")
	}

	for {
		reply, err := c.readLine()
		if err != nil {
			return errors.Wrap(err, "await APPEND continuation")
		}
		if strings.HasPrefix(reply, "+") {
			break
		}
		if strings.HasPrefix(reply, tag+" ") {
			return errors.Errorf("server refused APPEND: %s", reply)
		}
	}

	if _, err := c.w.Write(msg); err != nil {
		return errors.Wrap(err, "send message literal")
	}
	if _, err := c.w.WriteString("\r\n"); err != nil {
		return errors.Wrap(err, "terminate message literal")
	}
	if err := c.w.Flush(); err != nil {
		return errors.Wrap(err, "flush message literal")
	}

	_, err := c.readResponse(tag)
	return err
}

func (c *Conn) nextTag() string {
	c.tag++
	return fmt.Sprintf("a%04d", c.tag)
}

func (c *Conn) readResponse(tag string) (*response, error) {
	resp := &response{}
	for {
		line, err := c.readLine()
		if err != nil {
			return nil, errors.Wrap(err, "read server reply")
		}
		switch {
		case strings.HasPrefix(line, "* "):
			if err := c.readUntagged(resp, line[2:]); err != nil {
				return nil, err
			}
		case strings.HasPrefix(line, tag+" "):
			status := line[len(tag)+1:]
			if !strings.HasPrefix(status, "OK") {
				return nil, errors.Errorf("server rejected command: %s", status)
			}
			return resp, nil
		default:
			// Continuation prompts and unsolicited lines carry nothing we
			// need outside the APPEND handshake.
		}
	}
}

// readUntagged stores one untagged reply. A payload announcing a literal
// is followed by the literal bytes and the remainder of the reply line
// (usually the closing sentinel), which becomes its own fragment, matching
// the element shape ParseFetch expects.
func (c *Conn) readUntagged(resp *response, payload string) error {
	size, ok := literalSize(payload)
	if !ok {
		resp.fragments = append(resp.fragments, Fragment{Line: []byte(payload)})
		return nil
	}

	literal := make([]byte, size)
	if _, err := io.ReadFull(c.r, literal); err != nil {
		return errors.Wrap(err, "read reply literal")
	}
	c.log.Trace().Int("bytes", size).Msg("server -> client: literal")
	resp.fragments = append(resp.fragments, Fragment{Line: []byte(payload), Literal: literal})

	rest, err := c.readLine()
	if err != nil {
		return errors.Wrap(err, "read reply tail")
	}
	if rest != "" {
		resp.fragments = append(resp.fragments, Fragment{Line: []byte(rest)})
	}
	return nil
}

func (c *Conn) writeLine(line string) error {
	c.traceOut(line)
	if _, err := c.w.WriteString(line + "\r\n"); err != nil {
		return err
	}
	return c.w.Flush()
}

func (c *Conn) readLine() (string, error) {
	line, err := c.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	c.log.Trace().Str("imap_data", line).Msg("server -> client")
	return line, nil
}

// traceOut logs outgoing protocol traffic without ever logging credentials.
func (c *Conn) traceOut(line string) {
	if strings.Contains(strings.ToUpper(line), "LOGIN") {
		c.log.Trace().Str("imap_data", "[LOGIN command, credentials redacted]").Msg("client -> server")
		return
	}
	c.log.Trace().Str("imap_data", line).Msg("client -> server")
}

// literalSize reports the size of the literal announced by a reply line
// ending in {<n>}.
func literalSize(line string) (int, bool) {
	if !strings.HasSuffix(line, "}") {
		return 0, false
	}
	open := strings.LastIndex(line, "{")
	if open < 0 {
		return 0, false
	}
	size, err := strconv.Atoi(line[open+1 : len(line)-1])
	if err != nil || size < 0 {
		return 0, false
	}
	return size, true
}

// linesWithPrefix returns the payloads of bare untagged lines starting
// with the given reply name, prefix stripped.
func (r *response) linesWithPrefix(prefix string) [][]byte {
	var lines [][]byte
	for _, f := range r.fragments {
		if f.Literal == nil && strings.HasPrefix(string(f.Line), prefix) {
			lines = append(lines, f.Line[len(prefix):])
		}
	}
	return lines
}

// fetchFragments returns the data-bearing fragments and closing sentinels
// of a FETCH reply, in wire order.
func (r *response) fetchFragments() []Fragment {
	var out []Fragment
	for _, f := range r.fragments {
		if f.Literal != nil || string(f.Line) == ")" {
			out = append(out, f)
		}
	}
	return out
}

// quoteString wraps s in double quotes for transmission as an IMAP quoted
// string, escaping embedded backslashes and double quotes.
func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' || s[i] == '"' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
	return b.String()
}

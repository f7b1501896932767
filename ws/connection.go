package ws

import (
	"bufio"
	"bytes"
	"compress/flate"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/gobwas/httphead"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsflate"
	"github.com/gobwas/ws/wsutil"

	"luminaflow.lol/context"
)

// Connection is an outbound websocket to one relay, with permessage-deflate
// when the relay agrees to it. Writes, including the pong replies made while
// reading, are serialized by a mutex.
type Connection struct {
	conn    net.Conn
	wmx     sync.Mutex
	deflate bo
	control wsutil.FrameHandlerFunc
	reader  *wsutil.Reader
	writer  *wsutil.Writer
	inflate *wsflate.Reader
	squash  *wsflate.Writer
	rState  wsflate.MessageState
	wState  wsflate.MessageState
}

type lockedWriter struct {
	mx *sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p by) (n no, err er) {
	l.mx.Lock()
	defer l.mx.Unlock()
	return l.w.Write(p)
}

func negotiated(exts []httphead.Option) bo {
	for _, x := range exts {
		if st(x.Name) == wsflate.ExtensionName {
			return true
		}
	}
	return false
}

// NewConnection dials a relay. The context bounds the handshake only.
func NewConnection(c cx, url st, header http.Header,
	tlsConfig *tls.Config) (cn *Connection, err er) {

	dialer := ws.Dialer{
		Header:     ws.HandshakeHeaderHTTP(header),
		Extensions: []httphead.Option{wsflate.DefaultParameters.Option()},
		TLSConfig:  tlsConfig,
	}
	var (
		conn net.Conn
		hs   ws.Handshake
		src  io.Reader
	)
	{
		var br *bufio.Reader
		conn, br, hs, err = dialer.Dial(c, url)
		if err != nil {
			return nil, errorf.D("failed to dial %s: %w", url, err)
		}
		// frames the relay sent straight after the upgrade may already be
		// buffered in the handshake reader
		src = conn
		if br != nil {
			src = br
		}
	}
	cn = &Connection{conn: conn, deflate: negotiated(hs.Extensions)}
	state := ws.StateClientSide
	if cn.deflate {
		state |= ws.StateExtended
		cn.rState.SetCompressed(true)
		cn.wState.SetCompressed(true)
		cn.inflate = wsflate.NewReader(nil, func(r io.Reader) wsflate.Decompressor {
			return flate.NewReader(r)
		})
		cn.squash = wsflate.NewWriter(nil, func(w io.Writer) wsflate.Compressor {
			fw, e := flate.NewWriter(w, 4)
			chk.E(e)
			return fw
		})
	}
	cn.control = wsutil.ControlFrameHandler(&lockedWriter{&cn.wmx, conn},
		ws.StateClientSide)
	cn.reader = &wsutil.Reader{
		Source:         src,
		State:          state,
		OnIntermediate: cn.control,
		Extensions:     []wsutil.RecvExtension{&cn.rState},
	}
	cn.writer = wsutil.NewWriter(conn, state, ws.OpText)
	cn.writer.SetExtensions(&cn.wState)
	return
}

func (cn *Connection) compressed(s *wsflate.MessageState) bo {
	return cn.deflate && s.IsCompressed()
}

// WriteMessage sends one text message.
func (cn *Connection) WriteMessage(c cx, data by) (err er) {
	if c.Err() != nil {
		return context.Canceled
	}
	cn.wmx.Lock()
	defer cn.wmx.Unlock()
	var w io.Writer = cn.writer
	squashed := cn.compressed(&cn.wState)
	if squashed {
		cn.squash.Reset(cn.writer)
		w = cn.squash
	}
	if _, err = io.Copy(w, bytes.NewReader(data)); chk.T(err) {
		return errorf.D("failed to write message: %w", err)
	}
	if squashed {
		if err = cn.squash.Close(); chk.T(err) {
			return errorf.D("failed to close flate writer: %w", err)
		}
	}
	if err = cn.writer.Flush(); chk.T(err) {
		return errorf.D("failed to flush writer: %w", err)
	}
	return
}

// Ping sends a ping control frame.
func (cn *Connection) Ping() (err er) {
	cn.wmx.Lock()
	defer cn.wmx.Unlock()
	return wsutil.WriteClientMessage(cn.conn, ws.OpPing, nil)
}

// next advances to the next data frame, answering control frames and skipping
// anything else.
func (cn *Connection) next(c cx) (err er) {
	for c.Err() == nil {
		var h ws.Header
		if h, err = cn.reader.NextFrame(); err != nil {
			chk.T(cn.conn.Close())
			return errorf.T("failed to advance frame: %w", err)
		}
		switch {
		case h.OpCode.IsControl():
			if err = cn.control(h, cn.reader); chk.T(err) {
				return errorf.T("failed to handle control frame: %w", err)
			}
		case h.OpCode == ws.OpText || h.OpCode == ws.OpBinary:
			return
		}
		if err = cn.reader.Discard(); chk.T(err) {
			return errorf.T("failed to discard: %w", err)
		}
	}
	return context.Canceled
}

// ReadMessage reads the next text or binary message into buf.
func (cn *Connection) ReadMessage(c cx, buf io.Writer) (err er) {
	if err = cn.next(c); err != nil {
		return
	}
	var r io.Reader = cn.reader
	if cn.compressed(&cn.rState) {
		cn.inflate.Reset(cn.reader)
		r = cn.inflate
	}
	if _, err = io.Copy(buf, r); chk.T(err) {
		return errorf.T("failed to read message: %w", err)
	}
	return
}

// Close the Connection.
func (cn *Connection) Close() er { return cn.conn.Close() }

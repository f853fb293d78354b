package ws

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

// CloseCode is a websocket close status.
type CloseCode int

const (
	CloseNormalClosure   CloseCode = websocket.CloseNormalClosure
	ClosePolicyViolation CloseCode = websocket.ClosePolicyViolation
	CloseUnsupportedData CloseCode = websocket.CloseUnsupportedData
	CloseInternalError   CloseCode = websocket.CloseInternalServerErr
)

const closeWriteTimeout = time.Second

// Transport is the client side of one session.
type Transport interface {
	// ReadMessage blocks until the next data frame arrives.
	ReadMessage() ([]byte, error)
	WriteText(data []byte, timeout time.Duration) error
	// SetReadDeadline with a past time interrupts a blocked ReadMessage.
	SetReadDeadline(t time.Time) error
	// Close sends a close frame with code and releases the connection.
	Close(code CloseCode, reason string) error
	RemoteAddr() string
}

// FiberTransport adapts a gofiber websocket connection. Data writes are
// serialized, the connection allows one concurrent data writer.
type FiberTransport struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func NewFiberTransport(conn *websocket.Conn) *FiberTransport {
	return &FiberTransport{conn: conn}
}

func (t *FiberTransport) ReadMessage() ([]byte, error) {
	for {
		messageType, data, err := t.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if messageType == websocket.TextMessage || messageType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (t *FiberTransport) WriteText(data []byte, timeout time.Duration) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := t.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *FiberTransport) SetReadDeadline(deadline time.Time) error {
	return t.conn.SetReadDeadline(deadline)
}

// Close does not take the write lock: WriteControl may run alongside a data
// write, and closing the connection unblocks a write stalled on a slow client.
func (t *FiberTransport) Close(code CloseCode, reason string) error {
	msg := websocket.FormatCloseMessage(int(code), reason)
	writeErr := t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
	if err := t.conn.Close(); err != nil {
		return err
	}
	return writeErr
}

func (t *FiberTransport) RemoteAddr() string {
	if addr := t.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// Package transport provides the stdio line transport for workspace-mcp.
// The output stream carries protocol frames and nothing else: every
// diagnostic goes to the logger, and every emitted frame is flushed before
// the next line is read.
package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"github.com/officekit/workspace-mcp/pkg/logging"
	"github.com/officekit/workspace-mcp/pkg/protocol"
)

// maxLineBytes bounds a single input line. Tool arguments can carry whole
// email bodies, so the limit is generous.
const maxLineBytes = 10 * 1024 * 1024

// Handler consumes one input line and returns the serialized response frame,
// or nil when the line produces no response (notifications).
type Handler interface {
	HandleMessage(ctx context.Context, line []byte) []byte
}

// StdioTransport reads newline-delimited JSON-RPC frames from an input
// stream and writes responses to an output stream, one request at a time.
// Each request runs to completion before the next line is read; there is no
// pipelining.
type StdioTransport struct {
	reader  io.Reader
	writer  *bufio.Writer
	handler Handler
	logger  logging.Logger
}

// NewStdio creates a stdio transport. Nil reader and writer default to
// os.Stdin and os.Stdout; tests pass buffers.
func NewStdio(reader io.Reader, writer io.Writer, handler Handler, logger logging.Logger) *StdioTransport {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &StdioTransport{
		reader:  reader,
		writer:  bufio.NewWriter(writer),
		handler: handler,
		logger:  logger,
	}
}

// Serve runs the blocking read-dispatch-write loop until the input stream
// closes or ctx is canceled. Both are the ordinary shutdown paths and return
// nil: a client hanging up is not an error.
func (t *StdioTransport) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	readerDone := make(chan struct{})

	g.Go(func() error {
		defer close(readerDone)

		reader := bufio.NewReaderSize(t.reader, 64*1024)

		for {
			select {
			case <-gctx.Done():
				return nil
			default:
			}

			line, tooLong, err := readLine(reader)

			if tooLong {
				// The offending line is gone; answer with a parse error
				// and pick up again at the next newline.
				t.logger.Warn("discarding oversized input line",
					logging.Int("limit_bytes", maxLineBytes))
				t.sendParseError("input line exceeds the maximum length")
			}

			if err != nil {
				if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
					t.logger.Error("input stream read failed", logging.ErrorField(err))
				}
				return nil
			}
			if tooLong {
				continue
			}

			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				continue
			}

			t.handleLine(gctx, line)
		}
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
			// Unblock the pending read so the loop can wind down.
			if closer, ok := t.reader.(io.Closer); ok {
				_ = closer.Close()
			}
		case <-readerDone:
		}
		return nil
	})

	return g.Wait()
}

// readLine accumulates one newline-terminated line. When the line exceeds
// maxLineBytes it is drained through the next newline and reported as too
// long so the serve loop can resynchronize. A final unterminated line is
// returned before EOF surfaces.
func readLine(r *bufio.Reader) (line []byte, tooLong bool, err error) {
	var buf []byte
	for {
		chunk, err := r.ReadSlice('\n')
		buf = append(buf, chunk...)

		switch {
		case err == nil:
			return buf, false, nil
		case errors.Is(err, bufio.ErrBufferFull):
			if len(buf) > maxLineBytes {
				return nil, true, drainLine(r)
			}
		case errors.Is(err, io.EOF) && len(buf) > 0:
			return buf, false, nil
		default:
			return nil, false, err
		}
	}
}

// drainLine discards input through the next newline.
func drainLine(r *bufio.Reader) error {
	for {
		_, err := r.ReadSlice('\n')
		if err == nil {
			return nil
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return err
		}
	}
}

// sendParseError emits the error frame for input that never became a
// request: id null, code -32700.
func (t *StdioTransport) sendParseError(detail string) {
	resp := protocol.NewErrorResponse(nil, protocol.ParseError, "parse error", detail)
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := t.send(data); err != nil {
		t.logger.Error("failed to write response", logging.ErrorField(err))
	}
}

// handleLine dispatches one line and writes the response, guarding against
// anything escaping the handler. A panic or a write failure is logged and
// never reaches the output stream: a partial malformed write there would
// desynchronize the client's line parser.
func (t *StdioTransport) handleLine(ctx context.Context, line []byte) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("panic handling input line",
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())))
		}
	}()

	resp := t.handler.HandleMessage(ctx, line)
	if resp == nil {
		return
	}

	if err := t.send(resp); err != nil {
		t.logger.Error("failed to write response", logging.ErrorField(err))
	}
}

// send writes one frame followed by a newline and flushes. No buffered
// output survives an iteration of the serve loop.
func (t *StdioTransport) send(data []byte) error {
	if _, err := t.writer.Write(data); err != nil {
		return err
	}
	if err := t.writer.WriteByte('\n'); err != nil {
		return err
	}
	return t.writer.Flush()
}

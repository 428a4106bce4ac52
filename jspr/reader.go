package jspr

import (
	"errors"
	"io"
	"log/slog"
)

// Reader assembles frames from a non-blocking byte source.
//
// The source must return 0, nil (or io.EOF) when no byte is available, as a
// serial port configured with a short read timeout does. Bytes belonging to
// an incomplete frame are kept between calls.
type Reader struct {
	src    io.Reader
	logger *slog.Logger
	buf    []byte
	chunk  [512]byte
}

// NewReader returns a Reader consuming src. A nil logger disables logging.
func NewReader(src io.Reader, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reader{
		src:    src,
		logger: logger,
		buf:    make([]byte, 0, RxBufferSize),
	}
}

// Receive makes one non-blocking attempt to obtain a frame.
//
// It returns ok == false when the source runs dry before a complete frame
// is available. Frames that fail to parse are dropped. When expectedTarget
// is not empty, frames for other targets are dropped as well and reading
// continues.
func (r *Reader) Receive(expectedTarget string) (resp Response, ok bool, err error) {
	for {
		if advance, frame, _ := Splitter(r.buf, false); advance > 0 {
			resp, perr := Parse(frame)
			r.buf = append(r.buf[:0], r.buf[advance:]...)
			if perr != nil {
				if len(frame) > 0 {
					r.logger.Debug("dropped frame", "error", perr, "len", len(frame))
				}
				continue
			}
			if expectedTarget != "" && resp.Target != expectedTarget {
				r.logger.Debug("skipped frame", "target", resp.Target, "code", int(resp.Code), "expected", expectedTarget)
				continue
			}
			return resp, true, nil
		}

		n, rerr := r.src.Read(r.chunk[:])
		if n > 0 {
			if len(r.buf)+n > RxBufferSize {
				r.logger.Warn("dropped oversized frame", "len", len(r.buf)+n)
				r.buf = r.buf[:0]
				continue
			}
			r.buf = append(r.buf, r.chunk[:n]...)
		}
		if rerr != nil && !errors.Is(rerr, io.EOF) {
			return Response{}, false, rerr
		}
		if n == 0 {
			return Response{}, false, nil
		}
	}
}

// Buffered returns the number of bytes held for an incomplete frame.
func (r *Reader) Buffered() int {
	return len(r.buf)
}

// Reset discards any partially received frame.
func (r *Reader) Reset() {
	r.buf = r.buf[:0]
}

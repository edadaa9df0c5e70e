package rio

import (
	"errors"
	"io"
)

const bufSize = 32 * 1024

// Copy copies from src to dst until src reports io.EOF. The size of every
// chunk written is sent on wch, which the caller must keep draining; a nil
// channel disables metrics. Borrowed from the official go io package.
func Copy(dst io.Writer, src io.Reader, wch chan<- int64) (written int64, err error) {
	size := bufSize
	if l, ok := src.(*io.LimitedReader); ok && int64(size) > l.N {
		if l.N < 1 {
			size = 1
		} else {
			size = int(l.N)
		}
	}
	buf := make([]byte, size)
	for {
		nr, er := src.Read(buf)
		if nr > 0 {
			nw, ew := dst.Write(buf[0:nr])
			if nw < 0 || nr < nw {
				nw = 0
				if ew == nil {
					ew = errors.New("invalid write result")
				}
			}
			written += int64(nw)
			if nw > 0 && wch != nil {
				wch <- int64(nw)
			}
			if ew != nil {
				err = ew
				break
			}
			if nr != nw {
				err = io.ErrShortWrite
				break
			}
		}
		if er != nil {
			if er != io.EOF {
				err = er
			}
			break
		}
	}
	return written, err
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// NopWriteCloser returns an io.WriteCloser with a no-op Close wrapping w.
func NopWriteCloser(w io.Writer) io.WriteCloser {
	return nopWriteCloser{w}
}

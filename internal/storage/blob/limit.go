package blob

import "io"

// LimitedReader читает не больше Max байт. Попытка прочитать больше
// завершается ErrTooLarge, а не молчаливым EOF, как у io.LimitReader.
type LimitedReader struct {
	r        io.Reader
	max      int64
	read     int64
	exceeded bool
}

// NewLimitedReader оборачивает r ограничением max байт.
func NewLimitedReader(r io.Reader, max int64) *LimitedReader {
	return &LimitedReader{r: r, max: max}
}

func (l *LimitedReader) Read(p []byte) (int, error) {
	if l.exceeded {
		return 0, ErrTooLarge
	}
	// Читаем на байт больше лимита, чтобы отличить "ровно max" от "больше max"
	if remaining := l.max - l.read + 1; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.read > l.max {
		l.exceeded = true
		n -= int(l.read - l.max)
		return n, ErrTooLarge
	}
	return n, err
}

// Exceeded — лимит был превышен.
func (l *LimitedReader) Exceeded() bool {
	return l.exceeded
}

// BytesRead — сколько байт отдано вызывающему.
func (l *LimitedReader) BytesRead() int64 {
	if l.exceeded {
		return l.max
	}
	return l.read
}

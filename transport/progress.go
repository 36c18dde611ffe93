package transport

import "io"

// progressReader counts bytes as the HTTP client drains the body and emits
// a 0-100 percentage on every change. When the total is not computable it
// reports 0, once.
type progressReader struct {
	r     io.Reader
	total int64
	read  int64
	last  int
	emit  func(pct int)
}

func newProgressReader(r io.Reader, total int64, emit func(pct int)) *progressReader {
	return &progressReader{r: r, total: total, last: -1, emit: emit}
}

func (pr *progressReader) Read(b []byte) (int, error) {
	n, err := pr.r.Read(b)
	if n > 0 {
		pr.read += int64(n)
		pct := 0
		if pr.total > 0 {
			pct = int(pr.read * 100 / pr.total)
			if pct > 100 {
				pct = 100
			}
		}
		if pct != pr.last {
			pr.last = pct
			pr.emit(pct)
		}
	}
	return n, err
}

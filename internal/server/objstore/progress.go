package objstore

import "io"

// defaultReportInterval is how many bytes may pass between progress callbacks.
const defaultReportInterval = 64 * 1024

// progressReader wraps an io.Reader and reports cumulative progress via a
// callback, at most once per reportInterval bytes plus once at EOF.
type progressReader struct {
	reader         io.Reader
	total          int64
	onProgress     ProgressFunc
	totalRead      int64 // cumulative total
	lastReport     int64 // bytes since last report
	reportInterval int64 // bytes
}

func newProgressReader(r io.Reader, total int64, interval int64, cb ProgressFunc) *progressReader {
	if interval <= 0 {
		interval = defaultReportInterval
	}
	return &progressReader{
		reader:         r,
		total:          total,
		onProgress:     cb,
		reportInterval: interval,
	}
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.totalRead += int64(n)
		pr.lastReport += int64(n)
		if pr.lastReport >= pr.reportInterval || pr.totalRead == pr.total {
			if pr.onProgress != nil {
				pr.onProgress(pr.totalRead, pr.total)
			}
			pr.lastReport = 0
		}
	}
	return n, err
}

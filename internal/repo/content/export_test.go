package content

import "time"

func (r *FileSystemContentRepository) SetClock(now func() time.Time) {
	r.now = now
}

func (r *FileSystemContentRepository) SetRand(rand func([]byte) (int, error)) {
	r.rand = rand
}

var SanitizeName = sanitizeName

package backup

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"poolfi/backend/internal/logging"
)

// uploadTimeout bounds a single background upload.
const uploadTimeout = 60 * time.Second

// Queue uploads document snapshots in the background. Each document has at most one upload in
// flight; snapshots enqueued meanwhile collapse so only the latest is sent next.
// Queue implements docstore.Backup.
type Queue struct {
	uploader Uploader
	log      logrus.FieldLogger

	mu      sync.Mutex
	pending map[string][]byte
	running map[string]bool
	closed  bool
	wg      sync.WaitGroup
}

// NewQueue returns a Queue that uploads through uploader.
func NewQueue(uploader Uploader, log logrus.FieldLogger) *Queue {
	return &Queue{
		uploader: uploader,
		log:      logging.OrDiscard(log).WithField("component", "backup"),
		pending:  make(map[string][]byte),
		running:  make(map[string]bool),
	}
}

// Enqueue schedules data as the next snapshot of path. It never blocks on the network.
func (q *Queue) Enqueue(path string, data []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.pending[path] = append([]byte(nil), data...)
	if q.running[path] {
		return
	}
	q.running[path] = true
	q.wg.Add(1)
	go q.drain(path)
}

func (q *Queue) drain(path string) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		data, ok := q.pending[path]
		if !ok {
			delete(q.running, path)
			q.mu.Unlock()
			return
		}
		delete(q.pending, path)
		q.mu.Unlock()

		q.upload(path, data)
	}
}

func (q *Queue) upload(path string, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()
	log := q.log.WithField("document", path)
	root, err := q.uploader.Upload(ctx, data)
	if err != nil {
		log.WithError(err).Warn("backup upload failed")
		return
	}
	if err := WritePointer(path, root); err != nil {
		log.WithError(err).Warn("backup pointer write failed")
		return
	}
	log.WithField("root", root.Hex()).Debug("backup uploaded")
}

// Restore downloads the snapshot recorded in path's pointer file, or returns (nil, nil) when there is none.
func (q *Queue) Restore(ctx context.Context, path string) ([]byte, error) {
	root, ok, err := ReadPointer(path)
	if err != nil || !ok {
		return nil, err
	}
	return q.uploader.Download(ctx, root)
}

// Close stops accepting snapshots and waits for in-flight uploads until ctx is done.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

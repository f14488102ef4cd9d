package attachments

import (
	"context"
	"sync"

	"github.com/mmdatafocus/property_backend/remote"
)

// fakeFiles scripts the remote files API. listings are served in order; the
// last one repeats.
type fakeFiles struct {
	mu        sync.Mutex
	ticket    *remote.UploadTicket
	ticketErr error
	bucketErr error
	listings  [][]remote.RemoteFile
	listErr   error

	// firstListErr fails only the first listing call.
	firstListErr error

	ticketReqs []remote.FileUploadRequest
	bucketPuts int
	listCalls  int
}

func (f *fakeFiles) CreateUploadRequest(ctx context.Context, in remote.FileUploadRequest) (*remote.UploadTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticketReqs = append(f.ticketReqs, in)
	if f.ticketErr != nil {
		return nil, f.ticketErr
	}
	t := *f.ticket
	return &t, nil
}

func (f *fakeFiles) ListFiles(ctx context.Context, entityType string, entityId int64) ([]remote.RemoteFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listCalls == 1 && f.firstListErr != nil {
		return nil, f.firstListErr
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.listings) == 0 {
		return nil, nil
	}
	i := f.listCalls - 1
	if i >= len(f.listings) {
		i = len(f.listings) - 1
	}
	return f.listings[i], nil
}

func (f *fakeFiles) UploadToBucket(ctx context.Context, ticket *remote.UploadTicket, fileName, mimeType string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bucketPuts++
	return f.bucketErr
}

func files(ids ...int64) []remote.RemoteFile {
	out := make([]remote.RemoteFile, 0, len(ids))
	for _, id := range ids {
		out = append(out, remote.RemoteFile{Id: remote.FlexInt64(id)})
	}
	return out
}

func validTicket() *remote.UploadTicket {
	return &remote.UploadTicket{
		BucketUrl: "https://bucket.example/upload",
		FormData:  map[string]string{"key": "abc", "policy": "p"},
	}
}

func flexPtr(v int64) *remote.FlexInt64 {
	f := remote.FlexInt64(v)
	return &f
}

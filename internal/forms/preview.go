package forms

import (
	"fmt"
	"sync"

	pkgerrors "github.com/craftora/backoffice/pkg/errors"
	"github.com/google/uuid"
)

// PreviewHandle identifies a staged image preview served back to the admin
// frontend. Handles are owned by the draft session that acquired them and
// must be released exactly once.
type PreviewHandle string

type previewEntry struct {
	data     []byte
	mimeType string
}

// PreviewRegistry tracks preview payloads for images staged on a draft but
// not yet uploaded. Persisted images never enter the registry, their remote
// URL is the display source.
type PreviewRegistry struct {
	mu      sync.Mutex
	entries map[PreviewHandle]previewEntry
}

func NewPreviewRegistry() *PreviewRegistry {
	return &PreviewRegistry{entries: make(map[PreviewHandle]previewEntry)}
}

// Acquire registers a staged payload and returns the handle the frontend
// uses to fetch its preview.
func (r *PreviewRegistry) Acquire(data []byte, mimeType string) PreviewHandle {
	handle := PreviewHandle(uuid.NewString())
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[handle] = previewEntry{data: data, mimeType: mimeType}
	return handle
}

// Release drops a handle. Releasing a handle twice, or one the registry
// never issued, is a bug in the caller and reported as such.
func (r *PreviewRegistry) Release(handle PreviewHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[handle]; !ok {
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("preview handle %q already released or unknown", handle))
	}
	delete(r.entries, handle)
	return nil
}

// Get returns the payload behind a live handle.
func (r *PreviewRegistry) Get(handle PreviewHandle) ([]byte, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[handle]
	if !ok {
		return nil, "", false
	}
	return entry.data, entry.mimeType, true
}

// Outstanding reports how many handles are still live.
func (r *PreviewRegistry) Outstanding() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

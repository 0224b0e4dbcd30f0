package forms

import (
	"github.com/craftora/backoffice/internal/imaging"
	pkgerrors "github.com/craftora/backoffice/pkg/errors"
)

// SlotState names the active variant of an ImageSlot.
type SlotState string

const (
	SlotEmpty     SlotState = "empty"
	SlotPersisted SlotState = "persisted"
	SlotPending   SlotState = "pending"
)

// PendingImage is a staged payload waiting for upload, paired with the
// preview handle issued when it was staged.
type PendingImage struct {
	Image   *imaging.NormalizedImage
	Preview PreviewHandle
}

// ImageSlot holds exactly one of: nothing, a durably stored image URL, or a
// staged local payload. Transitions into and out of the pending state go
// through the preview registry so no handle outlives its payload.
type ImageSlot struct {
	state   SlotState
	url     string
	pending *PendingImage
}

func NewEmptySlot() *ImageSlot {
	return &ImageSlot{state: SlotEmpty}
}

func NewPersistedSlot(url string) *ImageSlot {
	if url == "" {
		return NewEmptySlot()
	}
	return &ImageSlot{state: SlotPersisted, url: url}
}

func (s *ImageSlot) State() SlotState {
	if s == nil || s.state == "" {
		return SlotEmpty
	}
	return s.state
}

// URL returns the remote URL of a persisted slot.
func (s *ImageSlot) URL() string {
	if s.State() != SlotPersisted {
		return ""
	}
	return s.url
}

// Pending returns the staged payload of a pending slot.
func (s *ImageSlot) Pending() *PendingImage {
	if s.State() != SlotPending {
		return nil
	}
	return s.pending
}

// DisplaySource is what the frontend renders: the remote URL for persisted
// slots, the preview handle for pending ones.
func (s *ImageSlot) DisplaySource() string {
	switch s.State() {
	case SlotPersisted:
		return s.url
	case SlotPending:
		return string(s.pending.Preview)
	default:
		return ""
	}
}

// Stage replaces the slot's content with a freshly normalized payload,
// acquiring a preview handle for it. Any previously staged payload has its
// handle released first.
func (s *ImageSlot) Stage(registry *PreviewRegistry, img *imaging.NormalizedImage) (PreviewHandle, error) {
	if registry == nil {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "preview registry is required")
	}
	if img == nil || len(img.Bytes) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "image payload is empty")
	}

	if err := s.releasePending(registry); err != nil {
		return "", err
	}

	handle := registry.Acquire(img.Bytes, img.MimeType)
	s.state = SlotPending
	s.url = ""
	s.pending = &PendingImage{Image: img, Preview: handle}
	return handle, nil
}

// Clear empties the slot, releasing the preview handle when one is live.
// Persisted slots carry no local handle so clearing them releases nothing.
func (s *ImageSlot) Clear(registry *PreviewRegistry) error {
	if err := s.releasePending(registry); err != nil {
		return err
	}
	s.state = SlotEmpty
	s.url = ""
	s.pending = nil
	return nil
}

// Persist marks the slot as durably stored at the given URL. Called after a
// successful upload, and when seeding an edit draft from a stored document.
func (s *ImageSlot) Persist(registry *PreviewRegistry, url string) error {
	if url == "" {
		return pkgerrors.New(pkgerrors.CodeInternal, "persisted url is required")
	}
	if err := s.releasePending(registry); err != nil {
		return err
	}
	s.state = SlotPersisted
	s.url = url
	s.pending = nil
	return nil
}

func (s *ImageSlot) releasePending(registry *PreviewRegistry) error {
	if s.State() != SlotPending {
		return nil
	}
	if registry == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "preview registry is required")
	}
	return registry.Release(s.pending.Preview)
}

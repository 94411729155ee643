package storage

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/homepage/pkg/types"
)

// HandlePrefix starts every image handle URL.
const HandlePrefix = "blob:homepage/"

// ImageHandle is a session reference to a stored image. URL is valid only
// while the issuing Manager is alive and the handle has not been revoked;
// it is never persisted. Rebuild it from the image id with GetImage.
type ImageHandle struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
}

// SaveImage stores data under id, replacing any previous image. Handles
// issued for the previous image are revoked.
func (m *Manager) SaveImage(ctx context.Context, id string, data []byte) error {
	if err := m.store.WriteOne(ctx, types.ImagesCollection, types.Record{Key: id, Value: data}); err != nil {
		m.logger.Error("saving image failed", "id", id, "error", err)
		return err
	}
	m.handles.revokeID(id)
	return nil
}

// GetImage returns the handle for the image stored under id, issuing one
// if none is live. Repeated calls return the same handle until it is
// revoked. It returns nil when there is no such image.
func (m *Manager) GetImage(ctx context.Context, id string) (*ImageHandle, error) {
	if h, ok := m.handles.lookup(id); ok {
		return h, nil
	}
	rec, ok, err := m.store.ReadOne(ctx, types.ImagesCollection, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		m.logger.Debug("no image stored", "id", id)
		return nil, nil
	}
	return m.handles.issue(id, rec.Value)
}

// DeleteImage removes the image stored under id and revokes its handle.
func (m *Manager) DeleteImage(ctx context.Context, id string) error {
	if err := m.store.DeleteOne(ctx, types.ImagesCollection, id); err != nil {
		m.logger.Error("deleting image failed", "id", id, "error", err)
		return err
	}
	m.handles.revokeID(id)
	return nil
}

// RevokeImage invalidates a handle URL. Revoking an unknown URL is a no-op.
func (m *Manager) RevokeImage(url string) {
	m.handles.revoke(url)
}

// OpenHandle returns the handle and image bytes behind url.
func (m *Manager) OpenHandle(url string) (*ImageHandle, []byte, bool) {
	return m.handles.open(url)
}

type handleEntry struct {
	handle ImageHandle
	data   []byte
}

// handleRegistry maps issued handle URLs to image bytes. At most one handle
// is live per image id.
type handleRegistry struct {
	mu      sync.Mutex
	entries map[string]handleEntry
	byID    map[string]string
}

func newHandleRegistry() *handleRegistry {
	return &handleRegistry{
		entries: make(map[string]handleEntry),
		byID:    make(map[string]string),
	}
}

func (r *handleRegistry) lookup(id string) (*ImageHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[r.byID[id]]
	if !ok {
		return nil, false
	}
	h := e.handle
	return &h, true
}

// issue registers a handle for data. If another caller issued one for id
// in the meantime, that handle wins.
func (r *handleRegistry) issue(id string, data []byte) (*ImageHandle, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	h := ImageHandle{
		ID:          id,
		URL:         HandlePrefix + u.String(),
		ContentType: http.DetectContentType(data),
		Size:        len(data),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[r.byID[id]]; ok {
		live := e.handle
		return &live, nil
	}
	r.entries[h.URL] = handleEntry{handle: h, data: clone(data)}
	r.byID[id] = h.URL
	return &h, nil
}

func (r *handleRegistry) open(url string) (*ImageHandle, []byte, bool) {
	if !strings.HasPrefix(url, HandlePrefix) {
		url = HandlePrefix + url
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[url]
	if !ok {
		return nil, nil, false
	}
	h := e.handle
	return &h, clone(e.data), true
}

func (r *handleRegistry) revoke(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[url]; ok {
		delete(r.byID, e.handle.ID)
		delete(r.entries, url)
	}
}

func (r *handleRegistry) revokeID(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if url, ok := r.byID[id]; ok {
		delete(r.entries, url)
		delete(r.byID, id)
	}
}

func (r *handleRegistry) live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *handleRegistry) revokeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]handleEntry)
	r.byID = make(map[string]string)
}

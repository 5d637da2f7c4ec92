package graph

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/cuemby/warpgraph/pkg/werrors"
)

// cursorRefName and savedCursorRefPrefix implement the ref naming table
//: refs/warp/<g>/cursor/active and
// refs/warp/<g>/cursor/saved/<name>.
func cursorRefName(graph string) string {
	return "refs/warp/" + graph + "/cursor/active"
}

func savedCursorRefPrefix(graph string) string {
	return "refs/warp/" + graph + "/cursor/saved/"
}

func savedCursorRefName(graph, name string) string {
	return savedCursorRefPrefix(graph) + name
}

// cursorDoc is the content-addressed JSON payload a cursor pointer
// resolves to.
type cursorDoc struct {
	Tick uint64 `json:"tick"`
}

func (h *Handle) writeCursorDoc(ctx context.Context, ref string, tick uint64) error {
	data, err := json.Marshal(cursorDoc{Tick: tick})
	if err != nil {
		return werrors.Wrap(werrors.EInternal, err, "encode cursor document")
	}
	digest, err := h.store.WriteBlob(ctx, data)
	if err != nil {
		return werrors.Wrap(werrors.EInternal, err, "write cursor blob")
	}
	return h.store.UpdateRef(ctx, ref, digest)
}

func (h *Handle) readCursorDoc(ctx context.Context, ref string) (uint64, bool, error) {
	digest, found, err := h.store.ReadRef(ctx, ref)
	if err != nil {
		return 0, false, werrors.Wrap(werrors.EInternal, err, "read cursor pointer")
	}
	if !found {
		return 0, false, nil
	}
	data, err := h.store.ReadBlob(ctx, digest)
	if err != nil {
		return 0, false, werrors.Wrap(werrors.EInternal, err, "read cursor blob")
	}
	var doc cursorDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, false, werrors.Wrap(werrors.EInternal, err, "decode cursor document")
	}
	return doc.Tick, true, nil
}

// SetCursor pins the handle to a fixed point in logical time: subsequent
// Materialize calls apply only patches with lamport ≤ tick, regardless of
// what new patches land afterward. The
// active cursor is also persisted under refs/warp/<g>/cursor/active so
// it survives a process restart.
func (h *Handle) SetCursor(ctx context.Context, tick uint64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen(); err != nil {
		return err
	}
	if err := h.writeCursorDoc(ctx, cursorRefName(h.graph), tick); err != nil {
		return err
	}
	h.cursorCeiling = &tick
	h.state = StateDirty
	return nil
}

// ClearCursor releases the active cursor, returning the handle to
// materializing the full, unbounded patch history.
func (h *Handle) ClearCursor(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen(); err != nil {
		return err
	}
	if err := h.store.DeleteRef(ctx, cursorRefName(h.graph)); err != nil {
		return err
	}
	h.cursorCeiling = nil
	h.state = StateDirty
	return nil
}

// ActiveCursor returns the handle's current cursor tick, if any.
func (h *Handle) ActiveCursor() (tick uint64, active bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cursorCeiling == nil {
		return 0, false
	}
	return *h.cursorCeiling, true
}

// SaveCursor persists the current active cursor under a caller-chosen
// name so it can be recalled later with LoadCursor.
func (h *Handle) SaveCursor(ctx context.Context, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen(); err != nil {
		return err
	}
	if name == "" {
		return werrors.New(werrors.EUsage, "cursor name must not be empty")
	}
	if h.cursorCeiling == nil {
		return werrors.New(werrors.EUsage, "no active cursor to save")
	}
	return h.writeCursorDoc(ctx, savedCursorRefName(h.graph, name), *h.cursorCeiling)
}

// LoadCursor activates a previously saved named cursor.
func (h *Handle) LoadCursor(ctx context.Context, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen(); err != nil {
		return err
	}
	tick, found, err := h.readCursorDoc(ctx, savedCursorRefName(h.graph, name))
	if err != nil {
		return err
	}
	if !found {
		return werrors.New(werrors.ENotFound, "no saved cursor with this name").With("name", name)
	}
	if err := h.writeCursorDoc(ctx, cursorRefName(h.graph), tick); err != nil {
		return err
	}
	h.cursorCeiling = &tick
	h.state = StateDirty
	return nil
}

// DropCursor deletes a named saved cursor. It does not affect the
// currently active cursor, if any.
func (h *Handle) DropCursor(ctx context.Context, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen(); err != nil {
		return err
	}
	return h.store.DeleteRef(ctx, savedCursorRefName(h.graph, name))
}

// ListCursors returns the names of every saved cursor, sorted.
func (h *Handle) ListCursors(ctx context.Context) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen(); err != nil {
		return nil, err
	}
	refs, err := h.store.ListRefs(ctx, savedCursorRefPrefix(h.graph))
	if err != nil {
		return nil, err
	}
	prefix := savedCursorRefPrefix(h.graph)
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		names = append(names, strings.TrimPrefix(ref, prefix))
	}
	sort.Strings(names)
	return names, nil
}

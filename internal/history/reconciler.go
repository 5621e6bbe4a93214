package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/ppiankov/bsdetector/internal/kv"
	"github.com/ppiankov/bsdetector/internal/model"
)

// Remote is the per-user history table
type Remote interface {
	ListHistory(ctx context.Context, userID string, typ model.HistoryType) ([]model.HistoryItem, error)
	InsertHistory(ctx context.Context, userID string, typ model.HistoryType, item model.HistoryItem, at time.Time) error
	ClearHistory(ctx context.Context, userID string, typ model.HistoryType) error
}

// Session returns the signed-in user id, or "" when there is no session
type Session func() string

// StaticSession is a Session fixed to one user id
func StaticSession(userID string) Session {
	return func() string { return userID }
}

// Reconciler merges the local history log with the remote per-user table.
// Remote rows are authoritative; local-only rows are kept until they appear remotely.
type Reconciler struct {
	mu      sync.Mutex // serializes read-modify-write of the local lists
	local   kv.Store
	remote  Remote
	session Session
	logger  *log.Logger
	now     func() time.Time
}

// NewReconciler creates a reconciler. A nil remote or session means local-only.
func NewReconciler(local kv.Store, remote Remote, session Session, logger *log.Logger) *Reconciler {
	if session == nil {
		session = StaticSession("")
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Reconciler{
		local:   local,
		remote:  remote,
		session: session,
		logger:  logger,
		now:     time.Now,
	}
}

// userID returns the session user when a remote store is available
func (r *Reconciler) userID() (string, bool) {
	if r.remote == nil {
		return "", false
	}
	id := r.session()
	return id, id != ""
}

// Get returns the merged history for typ, newest first when a session exists.
// Without a session the local list is returned in stored order.
func (r *Reconciler) Get(ctx context.Context, typ model.HistoryType) Result[[]model.HistoryItem] {
	local := r.loadLocal(typ)

	userID, ok := r.userID()
	if !ok {
		return Result[[]model.HistoryItem]{Value: local}
	}

	remote, err := r.remote.ListHistory(ctx, userID, typ)
	if err != nil {
		r.logger.Warn("history fetch failed, using local copy", "type", typ, "error", err)
		return Result[[]model.HistoryItem]{
			Value:   local,
			SyncErr: &SyncError{Op: "fetch", Type: typ, Err: err},
		}
	}

	return Result[[]model.HistoryItem]{Value: merge(remote, local)}
}

// Save stamps item with a fresh id and timestamp, rewrites the local list as
// the merged view with the item on top, then inserts it remotely when a
// session exists. The error return is reserved for local storage failures.
// A failed remote fetch during the merge is reported even when the insert succeeds.
func (r *Reconciler) Save(ctx context.Context, typ model.HistoryType, item model.HistoryItem) (Result[model.HistoryItem], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := r.now()
	item.ID = uuid.NewString()
	item.Timestamp = at.UnixMilli()
	item.UserID = ""

	current := r.Get(ctx, typ)

	list := make([]model.HistoryItem, 0, len(current.Value)+1)
	list = append(list, item)
	list = append(list, current.Value...)

	if err := r.storeLocal(typ, list); err != nil {
		return Result[model.HistoryItem]{Value: item}, err
	}

	userID, ok := r.userID()
	if !ok {
		return Result[model.HistoryItem]{Value: item}, nil
	}

	if err := r.remote.InsertHistory(ctx, userID, typ, item, time.UnixMilli(item.Timestamp)); err != nil {
		r.logger.Warn("history insert failed, kept locally", "type", typ, "id", item.ID, "error", err)
		return Result[model.HistoryItem]{
			Value:   item,
			SyncErr: errors.Join(&SyncError{Op: "insert", Type: typ, Err: err}, current.SyncErr),
		}, nil
	}

	item.UserID = userID
	r.logger.Debug("history saved", "type", typ, "id", item.ID)
	return Result[model.HistoryItem]{Value: item, SyncErr: current.SyncErr}, nil
}

// Clear removes the local list for typ and, with a session, the user's remote rows
func (r *Reconciler) Clear(ctx context.Context, typ model.HistoryType) (Result[struct{}], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.local.Remove(typ.LocalKey()); err != nil {
		return Result[struct{}]{}, fmt.Errorf("clear local %s history: %w", typ, err)
	}

	userID, ok := r.userID()
	if !ok {
		return Result[struct{}]{}, nil
	}

	if err := r.remote.ClearHistory(ctx, userID, typ); err != nil {
		r.logger.Warn("history clear failed remotely", "type", typ, "error", err)
		return Result[struct{}]{SyncErr: &SyncError{Op: "clear", Type: typ, Err: err}}, nil
	}
	return Result[struct{}]{}, nil
}

// ClearAll clears every history type. A failure on one type does not stop the other.
func (r *Reconciler) ClearAll(ctx context.Context) (Result[struct{}], error) {
	var syncErrs, localErrs []error
	for _, typ := range model.HistoryTypes {
		res, err := r.Clear(ctx, typ)
		if err != nil {
			localErrs = append(localErrs, err)
		}
		if res.SyncErr != nil {
			syncErrs = append(syncErrs, res.SyncErr)
		}
	}
	return Result[struct{}]{SyncErr: errors.Join(syncErrs...)}, errors.Join(localErrs...)
}

// loadLocal reads the local list; absent or corrupt data reads as empty
func (r *Reconciler) loadLocal(typ model.HistoryType) []model.HistoryItem {
	data, ok := r.local.Get(typ.LocalKey())
	if !ok {
		return []model.HistoryItem{}
	}

	var items []model.HistoryItem
	if err := json.Unmarshal(data, &items); err != nil {
		r.logger.Warn("local history is corrupt, ignoring", "type", typ, "error", err)
		return []model.HistoryItem{}
	}
	if items == nil {
		items = []model.HistoryItem{}
	}
	return items
}

func (r *Reconciler) storeLocal(typ model.HistoryType, items []model.HistoryItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal %s history: %w", typ, err)
	}
	if err := r.local.Set(typ.LocalKey(), data); err != nil {
		return fmt.Errorf("write local %s history: %w", typ, err)
	}
	return nil
}

// merge keeps every remote item plus local items whose id is not remote,
// sorted by timestamp descending
func merge(remote, local []model.HistoryItem) []model.HistoryItem {
	seen := make(map[string]bool, len(remote))
	merged := make([]model.HistoryItem, 0, len(remote)+len(local))

	for _, item := range remote {
		seen[item.ID] = true
		merged = append(merged, item)
	}
	for _, item := range local {
		if !seen[item.ID] {
			merged = append(merged, item)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp > merged[j].Timestamp
	})
	return merged
}

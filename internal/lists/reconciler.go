// Package lists reconciles the session-scoped wish, compare and enquiry
// lists against the catalog. Each list is two id arrays in the session:
// plain product ids and variation ids.
package lists

import (
	"context"
	"errors"
	"fmt"

	"github.com/thalesgaldino/silvershop-api/internal/catalog"
	"github.com/thalesgaldino/silvershop-api/internal/session"
)

type Kind string

const (
	KindWish    Kind = "wishList"
	KindCompare Kind = "compareList"
	KindEnquiry Kind = "enquiryList"
)

// ErrUnknownKind is returned for a kind outside the three list features.
var ErrUnknownKind = errors.New("lists: unknown list kind")

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindWish, KindCompare, KindEnquiry:
		return Kind(s), nil
	default:
		return "", ErrUnknownKind
	}
}

func (k Kind) plainKey() string   { return string(k) }
func (k Kind) variantKey() string { return string(k) + "_variations" }

// Result is the merged, ordered view of one list: plain ids first, then
// variation ids.
type Result struct {
	IDs   []int64 `json:"items"`
	Count int     `json:"total_items"`
}

type Reconciler struct {
	catalog catalog.Catalog
	sess    session.Store
}

func NewReconciler(c catalog.Catalog, s session.Store) *Reconciler {
	return &Reconciler{catalog: c, sess: s}
}

// Reconcile resolves every stored id against the catalog and drops the
// ones that no longer exist. The prune is destructive: the session
// arrays are rewritten without the dead entries as a side effect of this
// read. Entries are never pruned on write.
func (r *Reconciler) Reconcile(ctx context.Context, sessionID string, kind Kind) (Result, error) {
	plain, err := r.pruneList(ctx, sessionID, kind.plainKey(), r.productExists)
	if err != nil {
		return Result{}, err
	}
	variants, err := r.pruneList(ctx, sessionID, kind.variantKey(), r.variationExists)
	if err != nil {
		return Result{}, err
	}
	merged := make([]int64, 0, len(plain)+len(variants))
	merged = append(merged, plain...)
	merged = append(merged, variants...)
	return Result{IDs: merged, Count: len(merged)}, nil
}

// Toggle flips membership of id in the list. Adding validates the id
// against the catalog first; removing never consults the catalog, and
// toggling never prunes other entries.
func (r *Reconciler) Toggle(ctx context.Context, sessionID string, kind Kind, id int64, variation bool) (added bool, err error) {
	key := kind.plainKey()
	exists := r.productExists
	if variation {
		key = kind.variantKey()
		exists = r.variationExists
	}

	ids, err := r.sess.GetIDs(ctx, sessionID, key)
	if err != nil {
		return false, err
	}
	for i, existing := range ids {
		if existing == id {
			ids = append(ids[:i], ids[i+1:]...)
			return false, r.sess.SetIDs(ctx, sessionID, key, ids)
		}
	}

	ok, err := exists(ctx, id)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, catalog.ErrNotFound
	}
	return true, r.sess.SetIDs(ctx, sessionID, key, append(ids, id))
}

type existsFunc func(ctx context.Context, id int64) (bool, error)

func (r *Reconciler) pruneList(ctx context.Context, sessionID, key string, exists existsFunc) ([]int64, error) {
	ids, err := r.sess.GetIDs(ctx, sessionID, key)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	kept := ids[:0:0]
	pruned := false
	for _, id := range ids {
		ok, err := exists(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolve list entry %d: %w", id, err)
		}
		if ok {
			kept = append(kept, id)
		} else {
			pruned = true
		}
	}
	if pruned {
		if err := r.sess.SetIDs(ctx, sessionID, key, kept); err != nil {
			return nil, err
		}
	}
	return kept, nil
}

func (r *Reconciler) productExists(ctx context.Context, id int64) (bool, error) {
	_, err := r.catalog.Product(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *Reconciler) variationExists(ctx context.Context, id int64) (bool, error) {
	_, err := r.catalog.Variation(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

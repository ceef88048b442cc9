package service

import (
	"picktrack/internal/services/cache/domain"
)

// unionIDs keeps existing order and appends unseen ids
func unionIDs(old, in []string) ([]string, outcome) {
	seen := make(map[string]struct{}, len(old)+len(in))
	out := make([]string, 0, len(old)+len(in))
	for _, id := range old {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	added := false
	for _, id := range in {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
		added = true
	}
	if !added {
		return old, unchanged
	}
	return out, extended
}

// mergeItems overwrites quantity and timestamp on matched keys and appends the rest
func mergeItems(old, in []domain.LineItem) ([]domain.LineItem, outcome) {
	idx := make(map[string]int, len(old))
	out := make([]domain.LineItem, len(old), len(old)+len(in))
	copy(out, old)
	for i, it := range out {
		idx[it.Key()] = i
	}
	changed := false
	for _, it := range in {
		i, ok := idx[it.Key()]
		if !ok {
			idx[it.Key()] = len(out)
			out = append(out, it)
			changed = true
			continue
		}
		cur := &out[i]
		if cur.Quantity != it.Quantity || !cur.UpdatedAt.Equal(it.UpdatedAt) {
			cur.Quantity = it.Quantity
			cur.UpdatedAt = it.UpdatedAt
			changed = true
		}
		if cur.ProductKey == "" && it.ProductKey != "" {
			cur.ProductKey = it.ProductKey
			changed = true
		}
	}
	if !changed {
		return old, unchanged
	}
	return out, extended
}

// mergeSnapshot replaces only on a value change so an equal refresh keeps its age
func mergeSnapshot(old, in domain.StatusSnapshot) (domain.StatusSnapshot, outcome) {
	if old.Equal(in) {
		return old, unchanged
	}
	return in, replaced
}

// diffItems classifies fetched items against the cached ones
func diffItems(cached []domain.LineItem, have bool, in []domain.LineItem) domain.ChangeSet {
	if !have {
		return domain.ChangeSet{Kind: domain.NewData, Changed: in}
	}
	prev := make(map[string]domain.LineItem, len(cached))
	for _, it := range cached {
		prev[it.Key()] = it
	}
	var changed []domain.LineItem
	seen := make(map[string]struct{}, len(in))
	for _, it := range in {
		seen[it.Key()] = struct{}{}
		p, ok := prev[it.Key()]
		if !ok || !sameItem(p, it) {
			changed = append(changed, it)
		}
	}
	removed := false
	for k := range prev {
		if _, ok := seen[k]; !ok {
			removed = true
			break
		}
	}
	if len(changed) == 0 && !removed {
		return domain.ChangeSet{Kind: domain.NoChanges}
	}
	return domain.ChangeSet{Kind: domain.UpdatedData, Changed: changed}
}

func sameItem(a, b domain.LineItem) bool {
	return a.Name == b.Name &&
		a.Variant == b.Variant &&
		a.ProductKey == b.ProductKey &&
		a.Quantity == b.Quantity &&
		a.UpdatedAt.Equal(b.UpdatedAt)
}

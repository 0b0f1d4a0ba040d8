package scsmap

import (
	"cmp"
	"errors"
	"slices"

	"github.com/cory-johannsen/scsmap/internal/maperr"
)

// Report summarizes one Resolve pass.
type Report struct {
	// Resolved counts placeholders replaced by live objects in this pass.
	Resolved int
	// Merged counts duplicate node copies folded into their canonical node.
	Merged int
	// DuplicateItems lists item UIDs stored in more than one place. The
	// first occurrence in sector order is the one indexed.
	DuplicateItems []uint64
	// Unresolved lists references whose target is not loaded, ordered by
	// owner UID then field.
	Unresolved []maperr.UnresolvedReferenceError
}

// Err returns the unresolved references joined into one error, or nil.
func (r Report) Err() error {
	if len(r.Unresolved) == 0 {
		return nil
	}
	errs := make([]error, len(r.Unresolved))
	for i := range r.Unresolved {
		errs[i] = &r.Unresolved[i]
	}
	return errors.Join(errs...)
}

// Resolve indexes every node and item of every sector and replaces each
// placeholder whose UID is present with the live object.
//
// Sectors are visited in coordinate order. The first copy of a node UID
// becomes canonical unless the UID is already indexed; later copies are
// folded into it, their sector memberships are merged and sector node lists
// are re-pointed. References that are already live are left untouched, so a
// second pass reports zero resolutions and zero merges.
//
// Postcondition: every placeholder whose UID is indexed is live; the rest
// are listed in Report.Unresolved.
func (m *Map) Resolve() Report {
	var rep Report
	sectors := m.Sectors()

	for _, s := range sectors {
		rep.Merged += m.indexNodes(s)
		for _, item := range s.Items {
			existing, ok := m.items[item.UID()]
			switch {
			case !ok:
				m.items[item.UID()] = item
			case existing != item:
				rep.DuplicateItems = append(rep.DuplicateItems, item.UID())
			}
		}
	}

	visitedItems := make(map[MapItem]bool)
	visitedNodes := make(map[*Node]bool)
	for _, s := range sectors {
		for _, item := range s.Items {
			if visitedItems[item] {
				continue
			}
			visitedItems[item] = true
			m.resolveItem(item, &rep)
		}
		for _, n := range s.Nodes {
			if visitedNodes[n] {
				continue
			}
			visitedNodes[n] = true
			m.resolveNode(n, &rep)
		}
	}

	slices.Sort(rep.DuplicateItems)
	rep.DuplicateItems = slices.Compact(rep.DuplicateItems)
	slices.SortStableFunc(rep.Unresolved, func(a, b maperr.UnresolvedReferenceError) int {
		if c := cmp.Compare(a.Owner, b.Owner); c != 0 {
			return c
		}
		return cmp.Compare(a.Field, b.Field)
	})
	return rep
}

// indexNodes registers the nodes of s, folding duplicates into the canonical
// node. It returns the number of copies merged.
func (m *Map) indexNodes(s *Sector) int {
	merged := 0
	out := s.Nodes[:0]
	seen := make(map[*Node]bool, len(s.Nodes))
	for _, n := range s.Nodes {
		canonical, ok := m.nodes[n.uid]
		switch {
		case !ok:
			m.nodes[n.uid] = n
			canonical = n
		case canonical != n:
			for _, c := range n.sectors {
				canonical.addSector(c)
			}
			merged++
		}
		canonical.addSector(s.Coord)
		if !seen[canonical] {
			seen[canonical] = true
			out = append(out, canonical)
		}
	}
	clear(s.Nodes[len(out):])
	s.Nodes = out
	return merged
}

func (m *Map) lookupNode(id uint64) (*Node, bool) {
	n, ok := m.nodes[id]
	return n, ok
}

func (m *Map) lookupItem(id uint64) (MapItem, bool) {
	item, ok := m.items[id]
	return item, ok
}

// lookupObject resolves node link targets: items first, then nodes.
func (m *Map) lookupObject(id uint64) (Object, bool) {
	if item, ok := m.items[id]; ok {
		return item, true
	}
	if n, ok := m.nodes[id]; ok {
		return n, true
	}
	return nil, false
}

func (m *Map) resolveItem(item MapItem, rep *Report) {
	unresolved := func(field string, idx int, target uint64) {
		rep.Unresolved = append(rep.Unresolved, maperr.UnresolvedReferenceError{
			Owner:     item.UID(),
			OwnerKind: item.Kind().String(),
			Field:     fieldName(field, idx),
			Target:    target,
		})
	}
	item.refs(&refVisitor{
		node: func(field string, idx int, r *Ref[*Node]) {
			if r.resolve(m.lookupNode) {
				rep.Resolved++
			} else if !r.Resolved() && !r.IsNull() {
				unresolved(field, idx, r.UID())
			}
		},
		item: func(field string, idx int, r *Ref[MapItem]) {
			if r.resolve(m.lookupItem) {
				rep.Resolved++
			} else if !r.Resolved() && !r.IsNull() {
				unresolved(field, idx, r.UID())
			}
		},
	})
}

func (m *Map) resolveNode(n *Node, rep *Report) {
	for _, link := range []struct {
		field string
		ref   *Ref[Object]
	}{
		{"backward_item", &n.BackwardItem},
		{"forward_item", &n.ForwardItem},
	} {
		if link.ref.resolve(m.lookupObject) {
			rep.Resolved++
		} else if !link.ref.Resolved() && !link.ref.IsNull() {
			rep.Unresolved = append(rep.Unresolved, maperr.UnresolvedReferenceError{
				Owner:     n.uid,
				OwnerKind: "node",
				Field:     link.field,
				Target:    link.ref.UID(),
			})
		}
	}
}

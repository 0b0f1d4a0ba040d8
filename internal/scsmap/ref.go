package scsmap

// Object is anything a reference can point at: a *Node or a MapItem.
type Object interface {
	UID() uint64
}

// Ref is a UID-keyed reference to an Object of type T.
//
// A Ref is in one of three states: null (UID 0, no target), unresolved (a
// placeholder carrying only the UID read from a file), or resolved (holding
// the live object). Placeholders are replaced during Map.Resolve; resolving a
// live reference is a no-op.
type Ref[T Object] struct {
	uid  uint64
	obj  T
	live bool
}

// Unresolved returns a placeholder reference for uid. A zero uid yields the
// null reference.
func Unresolved[T Object](uid uint64) Ref[T] {
	return Ref[T]{uid: uid}
}

// RefTo returns a resolved reference to obj.
//
// Precondition: obj must be non-nil.
func RefTo[T Object](obj T) Ref[T] {
	return Ref[T]{uid: obj.UID(), obj: obj, live: true}
}

// UID returns the referenced UID, or 0 for the null reference.
func (r Ref[T]) UID() uint64 { return r.uid }

// IsNull reports whether r references nothing.
func (r Ref[T]) IsNull() bool { return r.uid == 0 && !r.live }

// Resolved reports whether r holds a live object.
func (r Ref[T]) Resolved() bool { return r.live }

// Get returns the live object and true, or the zero T and false while r is
// null or unresolved.
func (r Ref[T]) Get() (T, bool) {
	return r.obj, r.live
}

// resolve replaces a placeholder with the object lookup finds for its UID.
// It reports whether r changed.
func (r *Ref[T]) resolve(lookup func(uint64) (T, bool)) bool {
	if r.live || r.uid == 0 {
		return false
	}
	obj, ok := lookup(r.uid)
	if !ok {
		return false
	}
	r.obj = obj
	r.live = true
	return true
}

// demote turns a resolved reference back into a placeholder for the same UID.
func (r *Ref[T]) demote() {
	var zero T
	r.obj = zero
	r.live = false
}

// pointsTo reports whether r is resolved to an object with the given UID.
func (r Ref[T]) pointsTo(uid uint64) bool {
	return r.live && r.uid == uid
}

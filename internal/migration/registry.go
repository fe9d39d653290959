package migration

import "fmt"

// Registry holds the statically enumerated step set, indexed by direction
// and source version, so the full migration graph is known before any step
// executes. Construction fails on duplicate version pairs, non-adjacent
// version pairs, and gaps in the forward chain: a missing forward step
// would make every version above the gap unreachable, which is a
// configuration defect rather than a runtime condition.
type Registry struct {
	forward map[int]Step
	revert  map[int]Step
	max     int
}

// NewRegistry builds a registry from the given steps and checks its
// integrity.
func NewRegistry(steps ...Step) (*Registry, error) {
	r := &Registry{
		forward: make(map[int]Step),
		revert:  make(map[int]Step),
	}
	for _, s := range steps {
		src, tgt := s.Source(), s.Target()
		switch {
		case tgt == src+1:
			if _, dup := r.forward[src]; dup {
				return nil, &ConfigurationError{Reason: fmt.Sprintf("duplicate forward step %d->%d", src, tgt)}
			}
			r.forward[src] = s
			if tgt > r.max {
				r.max = tgt
			}
		case tgt == src-1:
			if _, dup := r.revert[src]; dup {
				return nil, &ConfigurationError{Reason: fmt.Sprintf("duplicate revert step %d->%d", src, tgt)}
			}
			r.revert[src] = s
		default:
			return nil, &ConfigurationError{Reason: fmt.Sprintf("step %d->%d does not move between adjacent versions", src, tgt)}
		}
		if src < 0 || tgt < 0 {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("step %d->%d uses a negative version", src, tgt)}
		}
	}
	// Forward steps must form a contiguous chain from 0 to max.
	for v := 0; v < r.max; v++ {
		if _, ok := r.forward[v]; !ok {
			return nil, &ConfigurationError{
				Reason: fmt.Sprintf("forward chain has a gap at %d->%d", v, v+1),
				Err:    ErrPathNotFound,
			}
		}
	}
	return r, nil
}

// MaxVersion returns the highest version reachable by forward steps.
func (r *Registry) MaxVersion() int { return r.max }

// Resolve returns the step for an exact (source, target) pair.
func (r *Registry) Resolve(source, target int) (Step, error) {
	var s Step
	var ok bool
	switch {
	case target == source+1:
		s, ok = r.forward[source]
	case target == source-1:
		s, ok = r.revert[source]
	}
	if !ok {
		return nil, &ConfigurationError{
			Reason: fmt.Sprintf("no step from version %d to %d", source, target),
			Err:    ErrPathNotFound,
		}
	}
	return s, nil
}

// Path returns the ordered chain of steps from current to target: forward
// steps ascending when target > current, revert steps descending when
// target < current, empty when equal. A missing intermediate step fails
// the whole path before anything executes.
func (r *Registry) Path(current, target int) ([]Step, error) {
	if target < 0 {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("target version %d is negative", target)}
	}
	if target > r.max {
		return nil, &ConfigurationError{
			Reason: fmt.Sprintf("unknown target version %d (highest known is %d)", target, r.max),
			Err:    ErrPathNotFound,
		}
	}
	var path []Step
	v := current
	for v != target {
		next := v + 1
		if target < current {
			next = v - 1
		}
		s, err := r.Resolve(v, next)
		if err != nil {
			return nil, err
		}
		path = append(path, s)
		v = next
	}
	return path, nil
}

// Package resolve checks every symbolic reference in a parsed graph against
// an index of defined keys. Diagnostics are batched: the resolver keeps
// collecting dangling references up to a cap instead of failing on the
// first, so one pass reports everything a feed got wrong. Resolution order
// is document order, never map order, so diagnostics are reproducible.
package resolve

import (
	"fmt"

	"github.com/ddexkit/ddex/errors"
	"github.com/ddexkit/ddex/graph"
)

const defaultMaxDiagnostics = 100

// Options configures one resolution pass.
type Options struct {
	// MaxDiagnostics caps how many reference errors are collected before
	// the pass stops early. Zero means the default of 100.
	MaxDiagnostics int
}

// Resolve builds the key index, resolves every reference, and records the
// outcome on the message. It returns an errors.List if any reference is
// dangling, duplicated, or circular; the message's Resolution field is
// populated either way.
func Resolve(msg *graph.Message, opts Options) error {
	maxDiag := opts.MaxDiagnostics
	if maxDiag <= 0 {
		maxDiag = defaultMaxDiagnostics
	}

	r := &resolver{msg: msg, maxDiag: maxDiag}
	r.index()
	r.walk()
	r.cycles()

	msg.Resolution = &graph.Resolution{Entries: r.entries}
	if len(r.errs) > 0 {
		return r.errs
	}
	return nil
}

type resolver struct {
	msg     *graph.Message
	maxDiag int

	resources map[string]int
	releases  map[string]int
	parties   map[string]int

	entries []graph.ResolutionEntry
	errs    errors.List
}

// index builds key -> entity-index maps in document order, flagging
// duplicate keys as they are found.
func (r *resolver) index() {
	r.resources = make(map[string]int, len(r.msg.Resources))
	for i, res := range r.msg.Resources {
		if res.Reference == "" {
			continue
		}
		if _, dup := r.resources[res.Reference]; dup {
			r.report(errors.DuplicateReference(res.Reference, errors.Location{
				Path: fmt.Sprintf("/ResourceList/%d", i),
			}))
			continue
		}
		r.resources[res.Reference] = i
	}

	r.releases = make(map[string]int, len(r.msg.Releases))
	for i, rel := range r.msg.Releases {
		if rel.Reference == "" {
			continue
		}
		if _, dup := r.releases[rel.Reference]; dup {
			r.report(errors.DuplicateReference(rel.Reference, errors.Location{
				Path: fmt.Sprintf("/ReleaseList/%d", i),
			}))
			continue
		}
		r.releases[rel.Reference] = i
	}

	r.parties = make(map[string]int, len(r.msg.Parties))
	for i, p := range r.msg.Parties {
		if p.Reference == "" {
			continue
		}
		if _, dup := r.parties[p.Reference]; dup {
			r.report(errors.DuplicateReference(p.Reference, errors.Location{
				Path: fmt.Sprintf("/PartyList/%d", i),
			}))
			continue
		}
		r.parties[p.Reference] = i
	}
}

// walk resolves every reference used by releases and deals, in document
// order.
func (r *resolver) walk() {
	for i, rel := range r.msg.Releases {
		for j, ref := range rel.ResourceReferences {
			loc := errors.Location{Path: fmt.Sprintf("/ReleaseList/%d/ReleaseResourceReferenceList/%d", i, j)}
			r.resolveOne(ref.Reference, graph.RefResource, r.resources, loc)
		}
		for j, ref := range rel.PartyReferences {
			loc := errors.Location{Path: fmt.Sprintf("/ReleaseList/%d/ReleasePartyReference/%d", i, j)}
			r.resolveOne(ref, graph.RefParty, r.parties, loc)
		}
	}
	for i, deal := range r.msg.Deals {
		loc := errors.Location{Path: fmt.Sprintf("/DealList/%d/DealReleaseReference", i)}
		r.resolveOne(deal.ReleaseReference, graph.RefRelease, r.releases, loc)
	}
	for i, res := range r.msg.Resources {
		for j, ref := range res.LinkedResourceReferences {
			loc := errors.Location{Path: fmt.Sprintf("/ResourceList/%d/LinkedResourceReference/%d", i, j)}
			r.resolveOne(ref, graph.RefResource, r.resources, loc)
		}
	}
}

func (r *resolver) resolveOne(reference string, kind graph.RefKind, index map[string]int, loc errors.Location) {
	if reference == "" {
		return
	}
	entry := graph.ResolutionEntry{Reference: reference, Kind: kind, TargetIndex: -1}
	if target, ok := index[reference]; ok {
		entry.TargetIndex = target
	} else {
		entry.Err = errors.Reference(reference, loc)
		r.report(entry.Err)
	}
	r.entries = append(r.entries, entry)
}

// cycles walks resource-to-resource link chains with a visited set. Chains
// are short in practice; the walk is bounded by the resource count, never
// followed to infinite depth.
func (r *resolver) cycles() {
	state := make(map[string]int, len(r.msg.Resources)) // 0 unvisited, 1 on stack, 2 done
	var chain []string

	var visit func(ref string) *errors.Error
	visit = func(ref string) *errors.Error {
		switch state[ref] {
		case 1:
			cycle := append(append([]string{}, chain...), ref)
			return errors.Circular(cycle)
		case 2:
			return nil
		}
		idx, ok := r.resources[ref]
		if !ok {
			return nil // dangling links are reported by walk
		}
		state[ref] = 1
		chain = append(chain, ref)
		for _, next := range r.msg.Resources[idx].LinkedResourceReferences {
			if err := visit(next); err != nil {
				return err
			}
		}
		chain = chain[:len(chain)-1]
		state[ref] = 2
		return nil
	}

	for _, res := range r.msg.Resources {
		if res.Reference == "" || state[res.Reference] != 0 {
			continue
		}
		if err := visit(res.Reference); err != nil {
			r.report(err)
			return
		}
	}
}

func (r *resolver) report(err *errors.Error) {
	if len(r.errs) >= r.maxDiag {
		return
	}
	r.errs = append(r.errs, err)
}

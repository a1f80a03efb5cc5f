package depsolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/depsolve/go-depsolve/version"
)

// errDeadEnd signals a recoverable search failure: the current tentative
// choice cannot be extended, so the solver backtracks. It never escapes the
// solver.
var errDeadEnd = errors.New("dead end")

// solver performs the backtracking search: exactly one version per package
// name such that every active requirement is satisfied, preferring the
// newest admissible version at every choice point.
//
// The search keeps an explicit decision stack rather than recursing: each
// assigned package is a frame holding its candidate pool and an undo log of
// the constraint narrowing its choice caused. Backtracking pops or advances
// frames and replays nothing. One solver serves one run and is owned by a
// single goroutine; only metadata prefetching is concurrent.
type solver struct {
	ctx     context.Context
	builder *graphBuilder
	logger  *slog.Logger

	// constraints holds the per-package accumulated state: admissible
	// range, the active requirements targeting it, requested extras, and
	// provenance. Indexed by normalized name.
	constraints map[string]*pkgConstraint

	// stack is the decision stack, in assignment order.
	stack []*decisionFrame

	// assigned maps package name to its frame for O(1) lookups. Cycles in
	// the requirement graph terminate here: an edge back to an assigned
	// package only checks the existing assignment.
	assigned map[string]*decisionFrame

	// lastConflict remembers the most recent range-emptying conflict so
	// final exhaustion can report the implicated requirement set.
	lastConflict *ConflictError

	// lastFailure remembers a non-conflict dead end (unknown package,
	// single-requirement no-match) as the fallback exhaustion report.
	lastFailure error
}

// pkgConstraint is the accumulated constraint state for one package.
type pkgConstraint struct {
	name       string
	rng        version.Range
	reqs       []Requirement
	extras     map[string]bool
	requiredBy []string
}

func (pc *pkgConstraint) clone() *pkgConstraint {
	extras := make(map[string]bool, len(pc.extras))
	for k, v := range pc.extras {
		extras[k] = v
	}
	return &pkgConstraint{
		name:       pc.name,
		rng:        pc.rng,
		reqs:       append([]Requirement(nil), pc.reqs...),
		extras:     extras,
		requiredBy: append([]string(nil), pc.requiredBy...),
	}
}

func (pc *pkgConstraint) sortedExtras() []string {
	out := make([]string, 0, len(pc.extras))
	for x := range pc.extras {
		out = append(out, x)
	}
	sort.Strings(out)
	return out
}

// decisionFrame is one entry of the decision stack.
type decisionFrame struct {
	name string

	// pool holds the admissible versions at decision time, newest first.
	// Undoing later frames restores the constraint state the pool was
	// computed against, so the pool stays valid across backtracking.
	pool    []version.Version
	poolIdx int

	candidate    *Candidate
	activeExtras []string
	effects      *undoLog
}

// undoLog records the constraint state changed by applying one candidate,
// so a backtrack restores it exactly.
type undoLog struct {
	prev    map[string]*pkgConstraint
	created []string
}

func newUndoLog() *undoLog {
	return &undoLog{prev: make(map[string]*pkgConstraint)}
}

// touch snapshots a target before its first modification under this log.
func (u *undoLog) touch(s *solver, name string) {
	if _, seen := u.prev[name]; seen {
		return
	}
	if existing, ok := s.constraints[name]; ok {
		u.prev[name] = existing.clone()
	} else {
		u.created = append(u.created, name)
		u.prev[name] = nil
	}
}

func (s *solver) undo(u *undoLog) {
	for name, snapshot := range u.prev {
		if snapshot == nil {
			delete(s.constraints, name)
		} else {
			s.constraints[name] = snapshot
		}
	}
}

func newSolver(ctx context.Context, builder *graphBuilder, logger *slog.Logger) *solver {
	return &solver{
		ctx:         ctx,
		builder:     builder,
		logger:      logger,
		constraints: make(map[string]*pkgConstraint),
		assigned:    make(map[string]*decisionFrame),
	}
}

// solve runs the search from the given root requirements and returns the
// assignment. Roots must already be marker-filtered and normalized.
func (s *solver) solve(roots []Requirement) (map[string]*decisionFrame, error) {
	rootLog := newUndoLog()
	var work []edgeWork
	for _, req := range roots {
		if err := s.applyRequirement(req, rootLog, &work); err != nil {
			// Root requirements conflicting among themselves is terminal.
			return nil, s.exhaustionError()
		}
	}

	for {
		name, ok := s.nextUnassigned()
		if !ok {
			return s.assigned, nil
		}

		err := s.decide(name)
		if err == nil {
			continue
		}
		if !errors.Is(err, errDeadEnd) {
			return nil, err
		}
		if len(s.stack) == 0 {
			return nil, s.exhaustionError()
		}
		if err := s.backtrack(); err != nil {
			return nil, err
		}
	}
}

// nextUnassigned picks the lexicographically smallest constrained package
// without an assignment. The fixed pick order, together with the total
// version order, makes the whole search deterministic.
func (s *solver) nextUnassigned() (string, bool) {
	best := ""
	for name, pc := range s.constraints {
		if len(pc.reqs) == 0 {
			continue
		}
		if _, done := s.assigned[name]; done {
			continue
		}
		if best == "" || name < best {
			best = name
		}
	}
	return best, best != ""
}

// decide assigns a version to the named package, trying admissible
// candidates newest-first. On success the frame is pushed. A *FetchError is
// fatal; everything else recoverable returns errDeadEnd.
func (s *solver) decide(name string) error {
	pc := s.constraints[name]

	versions, err := s.builder.versionsDesc(s.ctx, name, pc.requiredBy[0])
	if err != nil {
		var unknown *UnknownPackageError
		if errors.As(err, &unknown) {
			s.lastFailure = err
			if len(s.stack) == 0 {
				return err // nothing to backtrack over
			}
			return errDeadEnd
		}
		return err // fetch failures are terminal for the run
	}

	pool := s.builder.admissible(versions, pc.rng)
	if len(pool) == 0 {
		s.recordEmptyPool(pc, len(versions))
		if len(s.stack) == 0 && len(pc.reqs) == 1 && s.lastFailure != nil {
			return s.lastFailure
		}
		return errDeadEnd
	}

	frame := &decisionFrame{name: name, pool: pool}
	if err := s.advance(frame); err != nil {
		return err
	}
	s.push(frame)
	return nil
}

// advance tries candidates from frame.poolIdx onward until one applies
// cleanly, leaving frame holding the committed candidate. Returns
// errDeadEnd when the pool is exhausted.
func (s *solver) advance(frame *decisionFrame) error {
	for ; frame.poolIdx < len(frame.pool); frame.poolIdx++ {
		v := frame.pool[frame.poolIdx]
		err := s.applyCandidate(frame, v)
		if err == nil {
			s.logger.Debug("selected candidate", "package", frame.name, "version", v.String())
			return nil
		}
		if !errors.Is(err, errDeadEnd) {
			return err
		}
	}
	return errDeadEnd
}

// push commits a frame onto the decision stack.
func (s *solver) push(frame *decisionFrame) {
	s.stack = append(s.stack, frame)
	s.assigned[frame.name] = frame
}

// backtrack unwinds the decision stack: advance the top frame to its next
// candidate, or pop it and continue below. Returns the exhaustion error
// when no frame has alternatives left.
func (s *solver) backtrack() error {
	for len(s.stack) > 0 {
		top := s.stack[len(s.stack)-1]
		s.stack = s.stack[:len(s.stack)-1]
		delete(s.assigned, top.name)
		s.undo(top.effects)
		top.candidate = nil
		top.effects = nil

		top.poolIdx++
		err := s.advance(top)
		if err == nil {
			s.push(top)
			s.logger.Debug("backtracked", "stack", s.describe())
			return nil
		}
		if !errors.Is(err, errDeadEnd) {
			return err
		}
	}
	return s.exhaustionError()
}

// edgeWork defers propagation of a candidate's requirement edges. prevExtras
// limits re-propagation to newly activated edges when extras grow on an
// already-assigned package.
type edgeWork struct {
	candidate  *Candidate
	extras     []string
	prevExtras []string
}

// applyCandidate tentatively assigns version v to the frame's package and
// propagates the candidate's active requirements into the constraint state.
// On any dead end, all effects are rolled back before returning.
func (s *solver) applyCandidate(frame *decisionFrame, v version.Version) error {
	cand, err := s.builder.candidate(s.ctx, frame.name, v)
	if err != nil {
		return err // fetch failure, terminal
	}

	undo := newUndoLog()
	frame.candidate = cand
	frame.effects = undo
	frame.activeExtras = s.constraints[frame.name].sortedExtras()

	// Assignment must be visible during propagation so cycles back to this
	// package validate against it rather than recursing.
	s.assigned[frame.name] = frame
	defer func() {
		if frame.effects == nil {
			delete(s.assigned, frame.name)
		}
	}()

	work := []edgeWork{{candidate: cand, extras: frame.activeExtras}}
	for len(work) > 0 {
		e := work[0]
		work = work[1:]
		for _, req := range e.candidate.Requirements {
			if !s.builder.active(req, e.extras) {
				continue
			}
			if e.prevExtras != nil && s.builder.active(req, e.prevExtras) {
				continue // already propagated before the extras grew
			}
			if err := s.applyRequirement(req, undo, &work); err != nil {
				s.undo(undo)
				frame.candidate = nil
				frame.effects = nil
				return err
			}
		}
	}
	return nil
}

// applyRequirement intersects one active requirement into its target's
// constraint state, queueing re-propagation when it grows the extras of an
// already-assigned package.
func (s *solver) applyRequirement(req Requirement, undo *undoLog, work *[]edgeWork) error {
	undo.touch(s, req.Name)

	target, ok := s.constraints[req.Name]
	if !ok {
		target = &pkgConstraint{
			name:   req.Name,
			rng:    version.Any(),
			extras: make(map[string]bool),
		}
		s.constraints[req.Name] = target
	}

	newRng := target.rng.Intersect(req.Range)

	if frame, alreadyAssigned := s.assigned[req.Name]; alreadyAssigned {
		if !req.Range.Contains(frame.candidate.Version) {
			s.recordConflict(target, req)
			return errDeadEnd
		}
		prevExtras := target.sortedExtras()
		target.rng = newRng
		target.reqs = append(target.reqs, req)
		target.requiredBy = appendOrigin(target.requiredBy, req.Origin)
		if addExtras(target.extras, req.Extras) {
			// Newly requested extras activate more of the assigned
			// candidate's edges; propagate just those.
			*work = append(*work, edgeWork{
				candidate:  frame.candidate,
				extras:     target.sortedExtras(),
				prevExtras: prevExtras,
			})
		}
		return nil
	}

	if newRng.IsEmpty() {
		s.recordConflict(target, req)
		return errDeadEnd
	}

	target.rng = newRng
	target.reqs = append(target.reqs, req)
	target.requiredBy = appendOrigin(target.requiredBy, req.Origin)
	addExtras(target.extras, req.Extras)
	return nil
}

// recordConflict remembers the requirement set implicated in a failed
// narrowing, minimized when the ranges are provably disjoint.
func (s *solver) recordConflict(target *pkgConstraint, incoming Requirement) {
	implicated := append(append([]Requirement(nil), target.reqs...), incoming)
	s.lastConflict = &ConflictError{
		Package:   target.name,
		Conflicts: minimalConflictSet(implicated),
	}
}

// recordEmptyPool remembers a decision point with no admissible candidate.
func (s *solver) recordEmptyPool(pc *pkgConstraint, published int) {
	if pc.rng.IsEmpty() {
		s.lastConflict = &ConflictError{
			Package:   pc.name,
			Conflicts: minimalConflictSet(append([]Requirement(nil), pc.reqs...)),
		}
		return
	}
	// The range admits versions, just none that exist. With a single
	// requirement this is a plain no-match; with several it is still a
	// conflict worth reporting as the implicated set.
	s.lastFailure = &NoMatchingVersionError{
		Name:       pc.name,
		Constraint: pc.rng,
		Available:  published,
	}
	if len(pc.reqs) > 1 {
		s.lastConflict = &ConflictError{
			Package:   pc.name,
			Conflicts: append([]Requirement(nil), pc.reqs...),
		}
	}
}

// exhaustionError selects the report for a fully exhausted search: the most
// recent range conflict when one exists, otherwise the last recorded
// failure.
func (s *solver) exhaustionError() error {
	if s.lastConflict != nil {
		return s.lastConflict
	}
	if s.lastFailure != nil {
		return s.lastFailure
	}
	return &ConflictError{Package: "", Conflicts: nil}
}

// minimalConflictSet shrinks an implicated requirement set to a minimal one
// whose ranges still have an empty intersection: removing any member leaves
// it satisfiable. When the full set's intersection is not provably empty
// (a search dead end rather than a hard conflict), the set is returned
// deduplicated but unshrunk.
func minimalConflictSet(reqs []Requirement) []Requirement {
	reqs = dedupeRequirements(reqs)

	intersectAll := func(subset []Requirement) version.Range {
		combined := version.Any()
		for _, r := range subset {
			combined = combined.Intersect(r.Range)
		}
		return combined
	}

	if !intersectAll(reqs).IsEmpty() {
		return reqs
	}

	minimal := append([]Requirement(nil), reqs...)
	for i := 0; i < len(minimal); {
		without := append(append([]Requirement(nil), minimal[:i]...), minimal[i+1:]...)
		if intersectAll(without).IsEmpty() {
			minimal = without // still conflicting without this member
			continue
		}
		i++
	}
	return minimal
}

func dedupeRequirements(reqs []Requirement) []Requirement {
	seen := make(map[string]bool, len(reqs))
	out := make([]Requirement, 0, len(reqs))
	for _, r := range reqs {
		key := r.Origin + "\x00" + r.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

func appendOrigin(origins []string, origin string) []string {
	for _, o := range origins {
		if o == origin {
			return origins
		}
	}
	return append(origins, origin)
}

// addExtras unions extras into the set, reporting whether anything new
// was added.
func addExtras(set map[string]bool, extras []string) bool {
	added := false
	for _, x := range extras {
		if !set[x] {
			set[x] = true
			added = true
		}
	}
	return added
}

// buildResolution converts a completed assignment into the public result.
func (s *solver) buildResolution(roots []Requirement, requires string) *Resolution {
	res := &Resolution{
		Packages: make(map[string]*ResolvedPackage, len(s.assigned)),
		Requires: requires,
	}

	for _, req := range roots {
		res.Requirements = append(res.Requirements, req.String())
	}
	sort.Strings(res.Requirements)

	for name, frame := range s.assigned {
		pc := s.constraints[name]
		requiredBy := append([]string(nil), pc.requiredBy...)
		sort.Strings(requiredBy)
		res.Packages[name] = &ResolvedPackage{
			Candidate:  frame.candidate,
			Extras:     pc.sortedExtras(),
			RequiredBy: requiredBy,
		}
	}

	res.Summary.TotalPackages = len(res.Packages)
	for _, pkg := range res.Packages {
		direct := false
		for _, origin := range pkg.RequiredBy {
			if origin == OriginDirect {
				direct = true
				break
			}
		}
		if direct {
			res.Summary.DirectPackages++
		} else {
			res.Summary.TransitivePackages++
		}
	}
	return res
}

// describe renders a compact view of the decision stack for debug logs.
func (s *solver) describe() string {
	if len(s.stack) == 0 {
		return "<empty>"
	}
	out := ""
	for i, frame := range s.stack {
		if i > 0 {
			out += " -> "
		}
		out += fmt.Sprintf("%s@%s", frame.name, frame.pool[frame.poolIdx])
	}
	return out
}

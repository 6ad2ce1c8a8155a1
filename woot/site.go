package woot

import (
	"fmt"
	"log/slog"
	"sync"
)

// pendingInsert is a queued insertion waiting on a causal dependency that
// has not arrived locally yet. Grounded on the pendingOrphans pattern in
// cshekharsharma-go-crdt's RGA (a per-missing-parent buffer drained once
// the dependency is integrated), adapted to WOOT's two-sided context
// (cp AND cn must both be present, not just a single parent).
type pendingInsert struct {
	c, cp, cn Character
}

// Site is one replica: a logical clock plus the Sequence it owns. All
// reads and writes of clock/seq happen under mu, held only for the
// duration of a single generate/integrate call; no I/O ever happens
// while the lock is held.
type Site struct {
	mu     sync.Mutex
	id     int64
	clock  int64
	seq    *Sequence
	log    *slog.Logger
	waitOn map[ID][]pendingInsert
}

// NewSite creates a replica with the given site identifier and a fresh
// two-sentinel Sequence. logger may be nil, in which case slog.Default()
// is used.
func NewSite(id int64, logger *slog.Logger) *Site {
	if logger == nil {
		logger = slog.Default()
	}
	return &Site{
		id:     id,
		seq:    NewSequence(),
		log:    logger,
		waitOn: make(map[ID][]pendingInsert),
	}
}

// ID returns the site's identifier.
func (s *Site) ID() int64 { return s.id }

// Text returns the current visible document text.
func (s *Site) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq.Text()
}

// Clock returns the current logical clock value.
func (s *Site) Clock() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock
}

// GenerateIns performs a local insertion: glyph becomes the new p-th
// visible character. It is the only place Clock advances.
func (s *Site) GenerateIns(p int, glyph string) (Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clock++
	cp, ok := s.seq.NthVisible(p - 1)
	if !ok {
		cp = CB
	}
	cn, ok := s.seq.NthVisible(p)
	if !ok {
		cn = CE
	}

	c := Character{
		ID:      ID{NS: s.id, NG: s.clock},
		Glyph:   glyph,
		Visible: true,
		PrevID:  idPtr(cp.ID),
		NextID:  idPtr(cn.ID),
	}

	return s.integrateIns(c, cp, cn)
}

// GenerateDel performs a local deletion of the p-th visible character.
func (s *Site) GenerateDel(p int) (Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.seq.NthVisible(p)
	if !ok {
		return Operation{}, fmt.Errorf("generate_del(%d): %w", p, ErrTargetNotFound)
	}
	return s.integrateDel(c)
}

// IntegrateIns applies a (local or remote) insertion under the replica
// lock. It is exported so the network inbound actor can drive it directly
// without going through Execute's tag dispatch when it already knows the
// operation kind.
func (s *Site) IntegrateIns(c, cp, cn Character) (Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.integrateIns(c, cp, cn)
}

// IntegrateDel applies a (local or remote) deletion under the replica
// lock.
func (s *Site) IntegrateDel(c Character) (Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.integrateDel(c)
}

// Execute dispatches a wire Operation to integrateIns/integrateDel by its
// Op tag, under the replica lock.
func (s *Site) Execute(op Operation) (Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch op.Op {
	case OpInsert:
		if op.Arg1 == nil || op.Arg2 == nil {
			return Operation{}, fmt.Errorf("execute INS for %+v: %w", op.C.ID, ErrMalformedOperation)
		}
		return s.integrateIns(op.C, *op.Arg1, *op.Arg2)
	case OpDelete:
		return s.integrateDel(op.C)
	default:
		return Operation{}, fmt.Errorf("execute %q: %w", op.Op, ErrUnknownOperation)
	}
}

// integrateIns is the WOOT integration algorithm: it places c between its
// origin predecessor cp and successor cn, recursing through any characters
// concurrently inserted in that interval to find c's final position.
// Caller must hold s.mu.
func (s *Site) integrateIns(c, cp, cn Character) (Operation, error) {
	// A character already present must not be inserted again: repeated
	// integration is a no-op, making IntegrateIns idempotent.
	if existing, ok := s.seq.PositionOf(c.ID); ok {
		stored, _ := s.seq.CharacterAt(existing)
		return insertOperation(stored, cp, cn), nil
	}

	_, okCp := s.seq.PositionOf(cp.ID)
	posCn, okCn := s.seq.PositionOf(cn.ID)
	if !okCp || !okCn {
		s.deferInsert(c, cp, cn, okCp, okCn)
		return Operation{}, fmt.Errorf("integrate_ins %+v between %+v and %+v: %w", c.ID, cp.ID, cn.ID, ErrContextMissing)
	}

	between, err := s.seq.Subseq(cp, cn)
	if err != nil {
		return Operation{}, err
	}

	if len(between) == 0 {
		if err := s.seq.InsertAt(c, posCn); err != nil {
			return Operation{}, err
		}
		s.retry(c.ID)
		return insertOperation(c, cp, cn), nil
	}

	candidates := make([]Character, 0, len(between)+2)
	candidates = append(candidates, cp)
	for _, sc := range between {
		if sc.PrevID == nil || sc.NextID == nil {
			continue
		}
		if sc.PrevID.LessOrEqual(cp.ID) && cn.ID.LessOrEqual(*sc.NextID) {
			candidates = append(candidates, sc)
		}
	}
	candidates = append(candidates, cn)

	i := 1
	for i < len(candidates)-1 && candidates[i].ID.Less(c.ID) {
		i++
	}

	if _, err := s.integrateIns(c, candidates[i-1], candidates[i]); err != nil {
		return Operation{}, err
	}
	return insertOperation(c, cp, cn), nil
}

// integrateDel marks c's identifier invisible. Caller must hold s.mu.
// Idempotent: deleting an already-invisible character succeeds silently.
func (s *Site) integrateDel(c Character) (Operation, error) {
	pos, ok := s.seq.PositionOf(c.ID)
	if !ok {
		return Operation{}, fmt.Errorf("integrate_del %+v: %w", c.ID, ErrTargetNotFound)
	}
	s.seq.SetVisible(c.ID, false)
	stored, _ := s.seq.CharacterAt(pos)
	s.retry(c.ID)
	return deleteOperation(stored), nil
}

// deferInsert queues an insertion whose context is not yet satisfied. It
// is keyed on whichever endpoint(s) are missing so the retry fires as
// soon as either dependency lands.
func (s *Site) deferInsert(c, cp, cn Character, okCp, okCn bool) {
	p := pendingInsert{c: c, cp: cp, cn: cn}
	if !okCp {
		s.waitOn[cp.ID] = append(s.waitOn[cp.ID], p)
	}
	if !okCn {
		s.waitOn[cn.ID] = append(s.waitOn[cn.ID], p)
	}
	s.log.Info("deferring insert pending causal context", "id", c.ID, "cp", cp.ID, "cn", cn.ID)
}

// retry re-attempts every insertion waiting on id, now that id has been
// integrated. A retried insertion may re-defer on its other endpoint;
// integrateIns handles that by calling deferInsert again.
func (s *Site) retry(id ID) {
	waiting, ok := s.waitOn[id]
	if !ok {
		return
	}
	delete(s.waitOn, id)
	for _, p := range waiting {
		if _, err := s.integrateIns(p.c, p.cp, p.cn); err != nil {
			s.log.Warn("retry of deferred insert still blocked", "id", p.c.ID, "err", err)
		}
	}
}

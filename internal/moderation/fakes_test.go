package moderation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Wikid82/warden/internal/models"
)

type fakeDirectory struct {
	members map[string]*Actor
	err     error
}

func newFakeDirectory(actors ...*Actor) *fakeDirectory {
	d := &fakeDirectory{members: map[string]*Actor{}}
	for _, a := range actors {
		d.members[a.ID] = a
	}
	return d
}

func (d *fakeDirectory) Resolve(_ context.Context, tenantID, ref string) (*Actor, error) {
	if d.err != nil {
		return nil, d.err
	}
	if a, ok := d.members[ref]; ok && a.TenantID == tenantID {
		cp := *a
		return &cp, nil
	}
	var match *Actor
	for _, a := range d.members {
		if a.TenantID == tenantID && a.DisplayName == ref {
			if match != nil {
				return nil, ErrAmbiguousRef
			}
			match = a
		}
	}
	if match == nil {
		return nil, ErrActorNotFound
	}
	cp := *match
	return &cp, nil
}

type platformCall struct {
	Method   string
	Tenant   string
	Subject  string
	Duration time.Duration
	Reason   string
	Amount   int
}

type fakePlatform struct {
	mu    sync.Mutex
	calls []platformCall
	err   error
}

func (p *fakePlatform) record(c platformCall) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, c)
	return p.err
}

func (p *fakePlatform) Calls() []platformCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]platformCall(nil), p.calls...)
}

func (p *fakePlatform) Mute(_ context.Context, tenantID, userID string, d time.Duration, reason string) error {
	return p.record(platformCall{Method: "mute", Tenant: tenantID, Subject: userID, Duration: d, Reason: reason})
}

func (p *fakePlatform) Unmute(_ context.Context, tenantID, userID, reason string) error {
	return p.record(platformCall{Method: "unmute", Tenant: tenantID, Subject: userID, Reason: reason})
}

func (p *fakePlatform) Kick(_ context.Context, tenantID, userID, reason string) error {
	return p.record(platformCall{Method: "kick", Tenant: tenantID, Subject: userID, Reason: reason})
}

func (p *fakePlatform) Ban(_ context.Context, tenantID, userID, reason string, retention time.Duration) error {
	return p.record(platformCall{Method: "ban", Tenant: tenantID, Subject: userID, Duration: retention, Reason: reason})
}

func (p *fakePlatform) Unban(_ context.Context, tenantID, userID, reason string) error {
	return p.record(platformCall{Method: "unban", Tenant: tenantID, Subject: userID, Reason: reason})
}

func (p *fakePlatform) Purge(_ context.Context, tenantID, channelID string, amount int) (int, error) {
	if err := p.record(platformCall{Method: "purge", Tenant: tenantID, Subject: channelID, Amount: amount}); err != nil {
		return 0, err
	}
	return amount, nil
}

func (p *fakePlatform) LockChannel(_ context.Context, tenantID, channelID, reason string) error {
	return p.record(platformCall{Method: "lock", Tenant: tenantID, Subject: channelID, Reason: reason})
}

func (p *fakePlatform) UnlockChannel(_ context.Context, tenantID, channelID, reason string) error {
	return p.record(platformCall{Method: "unlock", Tenant: tenantID, Subject: channelID, Reason: reason})
}

func (p *fakePlatform) AssignRole(_ context.Context, tenantID, userID, role string) error {
	return p.record(platformCall{Method: "assign_role", Tenant: tenantID, Subject: userID, Reason: role})
}

type memLedger struct {
	mu     sync.Mutex
	nextID uint
	rows   []models.Warning
}

func (l *memLedger) Append(_ context.Context, w *models.Warning) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	w.ID = l.nextID
	w.CreatedAt = time.Now()
	l.rows = append(l.rows, *w)
	return l.countLocked(w.TenantID, w.ActorID), nil
}

func (l *memLedger) countLocked(tenantID, actorID string) int64 {
	var n int64
	for _, r := range l.rows {
		if r.TenantID == tenantID && r.ActorID == actorID {
			n++
		}
	}
	return n
}

func (l *memLedger) Count(tenantID, actorID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.countLocked(tenantID, actorID)
}

func (l *memLedger) List(_ context.Context, tenantID, actorID string) ([]models.Warning, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Warning
	for _, r := range l.rows {
		if r.TenantID == tenantID && r.ActorID == actorID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (l *memLedger) Remove(_ context.Context, tenantID, actorID string, id uint) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, r := range l.rows {
		if r.ID == id && r.TenantID == tenantID && r.ActorID == actorID {
			l.rows = append(l.rows[:i], l.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (l *memLedger) Clear(_ context.Context, tenantID, actorID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.rows[:0]
	var n int64
	for _, r := range l.rows {
		if r.TenantID == tenantID && r.ActorID == actorID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	l.rows = kept
	return n, nil
}

type memRules map[string]map[int64]models.AutoModRule

func (m memRules) add(r models.AutoModRule) {
	if m[r.TenantID] == nil {
		m[r.TenantID] = map[int64]models.AutoModRule{}
	}
	m[r.TenantID][int64(r.Threshold)] = r
}

func (m memRules) Match(_ context.Context, tenantID string, count int64) (*models.AutoModRule, error) {
	r, ok := m[tenantID][count]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []WarningEvent
}

func (n *recordingNotifier) Notify(_ context.Context, ev WarningEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

// brokenRules fails every lookup.
type brokenRules struct{ err error }

func (b brokenRules) Match(context.Context, string, int64) (*models.AutoModRule, error) {
	return nil, b.err
}

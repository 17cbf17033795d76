// Package platformtest provides an in-memory Platform for tests.
package platformtest

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"go-threatguard/internal/models"
	"go-threatguard/internal/platform"
)

// Fake records every mutating call and keeps channel overwrites in memory.
// Failures are injected per "op:target" key, for example "ban:u1" or
// "edit_overwrite:c2".
type Fake struct {
	mu          sync.Mutex
	self        string
	communities map[string]*platform.Community
	channels    map[string][]*platform.Channel
	members     map[string]map[string]*platform.Member
	audit       map[string][]platform.AuditEntry
	calls       []string
	fail        map[string]error
	// AuditFetches counts FetchAuditLog calls.
	AuditFetches int
}

var _ platform.Platform = (*Fake)(nil)

func NewFake(self string) *Fake {
	return &Fake{
		self:        self,
		communities: make(map[string]*platform.Community),
		channels:    make(map[string][]*platform.Channel),
		members:     make(map[string]map[string]*platform.Member),
		audit:       make(map[string][]platform.AuditEntry),
		fail:        make(map[string]error),
	}
}

func (f *Fake) AddCommunity(c *platform.Community) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.communities[c.ID] = c
}

func (f *Fake) AddChannel(community string, ch *platform.Channel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch.Overwrites == nil {
		ch.Overwrites = map[string]models.Overlay{}
	}
	f.channels[community] = append(f.channels[community], ch)
}

func (f *Fake) AddMember(community string, m *platform.Member) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.members[community] == nil {
		f.members[community] = make(map[string]*platform.Member)
	}
	f.members[community][m.ID] = m
}

// PushAudit makes e the newest audit entry of the community.
func (f *Fake) PushAudit(community string, e platform.AuditEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audit[community] = append([]platform.AuditEntry{e}, f.audit[community]...)
}

func (f *Fake) FailOn(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[key] = err
}

func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Count returns how many recorded calls start with prefix.
func (f *Fake) Count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// Overwrite returns the current overlay of principal on a channel.
func (f *Fake) Overwrite(community, channel, principal string) (models.Overlay, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.channels[community] {
		if ch.ID == channel {
			ov, ok := ch.Overwrites[principal]
			return ov, ok
		}
	}
	return models.Overlay{}, false
}

func (f *Fake) record(op, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := op + ":" + target
	f.calls = append(f.calls, key)
	if err, ok := f.fail[key]; ok {
		return err
	}
	return nil
}

func (f *Fake) SelfID() string { return f.self }

func (f *Fake) BanActor(_ context.Context, community, actor, reason string) error {
	return f.record("ban", actor)
}

func (f *Fake) KickActor(_ context.Context, community, actor, reason string) error {
	return f.record("kick", actor)
}

func (f *Fake) TimeoutActor(_ context.Context, community, actor string, d time.Duration, reason string) error {
	return f.record("timeout", actor)
}

func (f *Fake) RemoveRole(_ context.Context, community, actor, role, reason string) error {
	if err := f.record("remove_role", role); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.members[community][actor]; ok {
		kept := m.Roles[:0]
		for _, r := range m.Roles {
			if r != role {
				kept = append(kept, r)
			}
		}
		m.Roles = kept
	}
	return nil
}

func (f *Fake) FetchMember(_ context.Context, community, actor string) (*platform.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[community][actor]
	if !ok {
		return nil, &platform.StatusError{Op: "fetch member", Code: 404}
	}
	out := *m
	out.Roles = append([]string(nil), m.Roles...)
	return &out, nil
}

func (f *Fake) FetchCommunity(_ context.Context, community string) (*platform.Community, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.communities[community]
	if !ok {
		return nil, &platform.StatusError{Op: "fetch community", Code: 404}
	}
	out := *c
	out.Roles = append([]platform.Role(nil), c.Roles...)
	return &out, nil
}

func (f *Fake) ListChannels(_ context.Context, community string) ([]platform.Channel, error) {
	if err := f.record("list_channels", community); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]platform.Channel, 0, len(f.channels[community]))
	for _, ch := range f.channels[community] {
		c := *ch
		c.Overwrites = maps.Clone(ch.Overwrites)
		out = append(out, c)
	}
	return out, nil
}

func (f *Fake) EditChannelOverwrite(_ context.Context, channel, principal string, ov models.Overlay) error {
	if err := f.record("edit_overwrite", channel); err != nil {
		return err
	}
	ch, err := f.channel(channel)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ch.Overwrites[principal] = models.Overlay{Allow: ov.Allow, Deny: ov.Deny}
	return nil
}

func (f *Fake) DeleteChannelOverwrite(_ context.Context, channel, principal string) error {
	if err := f.record("delete_overwrite", channel); err != nil {
		return err
	}
	ch, err := f.channel(channel)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(ch.Overwrites, principal)
	return nil
}

func (f *Fake) channel(id string) (*platform.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, chans := range f.channels {
		for _, ch := range chans {
			if ch.ID == id {
				return ch, nil
			}
		}
	}
	return nil, fmt.Errorf("unknown channel %s: %w", id, &platform.StatusError{Op: "channel", Code: 404})
}

func (f *Fake) FetchAuditLog(_ context.Context, community string, action platform.AuditAction, limit int) ([]platform.AuditEntry, error) {
	f.mu.Lock()
	f.AuditFetches++
	err := f.fail["audit:"+community]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var out []platform.AuditEntry
	for _, e := range f.audit[community] {
		if e.Action == action {
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

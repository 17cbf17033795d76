// Package trust decides which actors are outside enforcement and manages the
// per-community whitelist.
package trust

import (
	"context"
	"fmt"
	"time"

	"go-threatguard/internal/config"
	"go-threatguard/internal/database"
	"go-threatguard/internal/logging"
	"go-threatguard/internal/platform"
)

// Store is the part of database.Store holding the whitelist.
type Store interface {
	ListTrust(ctx context.Context, communityID string) ([]database.TrustEntry, error)
	AddTrust(ctx context.Context, entry database.TrustEntry) error
	RemoveTrust(ctx context.Context, communityID, targetID string) (bool, error)
}

type Registry struct {
	store    Store
	platform platform.Platform
	guard    *platform.Guard
}

func NewRegistry(store Store, p platform.Platform, guard *platform.Guard) *Registry {
	return &Registry{store: store, platform: p, guard: guard}
}

// IsExempt reports whether actor is the bot itself, a whitelisted user, the
// owner, a holder of a whitelisted role, or an administrator. When the
// platform cannot be reached only the whitelist is consulted.
func (r *Registry) IsExempt(ctx context.Context, cfg *config.CommunityConfig, actor string) bool {
	if actor == "" {
		return false
	}
	if actor == r.platform.SelfID() || cfg.IsTrustedUser(actor) {
		return true
	}

	var community *platform.Community
	err := r.guard.Do(ctx, "fetch community", func(ctx context.Context) error {
		var err error
		community, err = r.platform.FetchCommunity(ctx, cfg.CommunityID)
		return err
	})
	if err != nil {
		logging.Warn("Trust check for %s in guild %s without guild data: %v", actor, cfg.CommunityID, err)
		return false
	}
	if community.OwnerID == actor {
		return true
	}

	var member *platform.Member
	err = r.guard.Do(ctx, "fetch member", func(ctx context.Context) error {
		var err error
		member, err = r.platform.FetchMember(ctx, cfg.CommunityID, actor)
		return err
	})
	if err != nil {
		if !platform.IsGone(err) {
			logging.Warn("Trust check for %s in guild %s without member data: %v", actor, cfg.CommunityID, err)
		}
		return false
	}

	if cfg.HasTrustedRole(member.Roles) {
		return true
	}
	return community.Permissions(member.Roles)&platform.PermAdministrator != 0
}

// Add whitelists a user or role.
func (r *Registry) Add(ctx context.Context, community, target string, kind database.TrustKind, addedBy string) error {
	if target == "" {
		return fmt.Errorf("empty trust target")
	}
	err := r.store.AddTrust(ctx, database.TrustEntry{
		CommunityID: community,
		TargetID:    target,
		Kind:        kind,
		AddedBy:     addedBy,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to trust %s %s: %w", kind, target, err)
	}
	logging.Info("Trusted %s %s in guild %s (by %s)", kind, target, community, addedBy)
	return nil
}

// Remove drops a whitelist entry and reports whether it existed.
func (r *Registry) Remove(ctx context.Context, community, target string) (bool, error) {
	removed, err := r.store.RemoveTrust(ctx, community, target)
	if err != nil {
		return false, fmt.Errorf("failed to untrust %s: %w", target, err)
	}
	if removed {
		logging.Info("Untrusted %s in guild %s", target, community)
	}
	return removed, nil
}

func (r *Registry) List(ctx context.Context, community string) ([]database.TrustEntry, error) {
	return r.store.ListTrust(ctx, community)
}

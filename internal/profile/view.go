// Package profile holds a profile page's state and its optimistic follow toggle.
package profile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"vibeweb/internal/models"
	"vibeweb/internal/observability"
	"vibeweb/internal/session"
)

var (
	// ErrBusy is returned when a toggle is requested while another is in flight.
	ErrBusy = errors.New("profile: follow toggle already in progress")
	// ErrLoginRequired is returned when toggling without a credential.
	ErrLoginRequired = errors.New("profile: following requires a session")
	// ErrNotLoaded is returned when toggling before Load succeeded.
	ErrNotLoaded = errors.New("profile: not loaded")
)

// Source is the subset of the backend client the view needs.
type Source interface {
	GetProfile(ctx context.Context, token, nickname string) (*models.Profile, error)
	Follow(ctx context.Context, token, nickname string) error
	Unfollow(ctx context.Context, token, nickname string) error
}

// Options tunes failure recovery.
type Options struct {
	// Reconcile re-reads the profile after a rolled back toggle.
	Reconcile bool
}

// View is one profile as displayed to one session.
type View struct {
	src      Source
	sess     session.Session
	nickname string
	opts     Options

	mu       sync.Mutex
	profile  models.Profile
	loaded   bool
	toggling bool
}

// NewView creates an unloaded view of nickname.
func NewView(src Source, sess session.Session, nickname string, opts Options) *View {
	return &View{src: src, sess: sess, nickname: nickname, opts: opts}
}

// Load fetches the profile and replaces local state.
func (v *View) Load(ctx context.Context) error {
	p, err := v.src.GetProfile(ctx, v.sess.Token, v.nickname)
	if err != nil {
		return fmt.Errorf("load profile %q: %w", v.nickname, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.profile = p.Clone()
	v.loaded = true
	return nil
}

// Snapshot returns a copy of the displayed profile.
func (v *View) Snapshot() models.Profile {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.profile.Clone()
}

// Toggle flips isFollowing and the follower count before calling the backend.
// On failure the pre-toggle state is restored and, with Reconcile set, the
// profile is re-read from the backend.
func (v *View) Toggle(ctx context.Context) error {
	if !v.sess.LoggedIn() {
		return ErrLoginRequired
	}

	v.mu.Lock()
	if !v.loaded {
		v.mu.Unlock()
		return ErrNotLoaded
	}
	if v.toggling {
		v.mu.Unlock()
		return ErrBusy
	}
	snapshot := v.profile.Clone()
	follow := !v.profile.IsFollowing
	v.profile.IsFollowing = follow
	if follow {
		v.profile.Counts.Followers++
	} else if v.profile.Counts.Followers > 0 {
		v.profile.Counts.Followers--
	}
	v.toggling = true
	v.mu.Unlock()

	var err error
	if follow {
		err = v.src.Follow(ctx, v.sess.Token, v.nickname)
	} else {
		err = v.src.Unfollow(ctx, v.sess.Token, v.nickname)
	}

	if err == nil {
		v.mu.Lock()
		v.toggling = false
		v.mu.Unlock()
		observability.FollowToggles.WithLabelValues(observability.OutcomeOK).Inc()
		return nil
	}

	v.mu.Lock()
	v.profile = snapshot
	v.mu.Unlock()
	observability.FollowToggles.WithLabelValues(observability.OutcomeRollback).Inc()
	observability.Logger.WarnContext(ctx, "follow toggle failed, rolled back",
		"nickname", v.nickname, "follow", follow, "error", err)

	if v.opts.Reconcile {
		v.reconcile(ctx)
	}

	v.mu.Lock()
	v.toggling = false
	v.mu.Unlock()
	return fmt.Errorf("toggle follow %q: %w", v.nickname, err)
}

func (v *View) reconcile(ctx context.Context) {
	p, err := v.src.GetProfile(ctx, v.sess.Token, v.nickname)
	if err != nil {
		observability.Logger.WarnContext(ctx, "follow reconcile failed", "nickname", v.nickname, "error", err)
		return
	}
	v.mu.Lock()
	v.profile = p.Clone()
	v.mu.Unlock()
	observability.FollowToggles.WithLabelValues(observability.OutcomeReconcile).Inc()
}

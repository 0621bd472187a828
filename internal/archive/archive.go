// Package archive stores dated brief reports on top of the storage backend,
// maintaining an ordered index so the newest briefs can be listed without
// scanning every key.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jonathan/newsbrief/internal/store"
	"github.com/jonathan/newsbrief/internal/types"
)

const (
	briefKeyPrefix = "brief:"
	indexName      = "briefs:index"

	// DefaultListLimit bounds GetAllBriefs when the caller does not say.
	DefaultListLimit = 30

	// retention is applied where the backend supports expiry; elsewhere it
	// is advisory only and old briefs stay until deleted.
	retention = 90 * 24 * time.Hour
)

// ErrNoBriefs is returned by GetLatestBrief when the archive is empty.
var ErrNoBriefs = errors.New("archive: no briefs stored")

// Archive provides CRUD over brief reports keyed by date.
type Archive struct {
	backend store.Backend
}

// New returns an Archive over the given backend.
func New(backend store.Backend) *Archive {
	return &Archive{backend: backend}
}

func briefKey(date string) string {
	return briefKeyPrefix + date
}

// dateScore derives the index score from the brief date. Malformed dates
// score zero and sort last rather than failing the write.
func dateScore(date string) float64 {
	t, err := types.ParseBriefDate(date)
	if err != nil {
		return 0
	}
	return float64(t.Unix())
}

// SaveBrief writes the report and updates the ordered index. Writing an
// existing date overwrites cleanly; replays are idempotent. A failure between
// the two writes surfaces as a storage error instead of leaving a silent
// index divergence.
func (a *Archive) SaveBrief(ctx context.Context, report *types.BriefReport) error {
	if report == nil || report.Date == "" {
		return fmt.Errorf("brief report requires a date")
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode brief %s: %w", report.Date, err)
	}

	if err := a.backend.Put(ctx, briefKey(report.Date), data, retention); err != nil {
		return err
	}
	if err := a.backend.IndexAdd(ctx, indexName, dateScore(report.Date), report.Date); err != nil {
		return fmt.Errorf("brief %s stored but index update failed: %w", report.Date, err)
	}
	return nil
}

// GetBriefByDate returns the brief for date, or store.ErrNotFound when none
// exists. Absence is a normal outcome for callers.
func (a *Archive) GetBriefByDate(ctx context.Context, date string) (*types.BriefReport, error) {
	data, err := a.backend.Get(ctx, briefKey(date))
	if err != nil {
		return nil, err
	}
	var report types.BriefReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode brief %s: %w", date, err)
	}
	return &report, nil
}

// GetLatestBrief returns the newest brief by date, or ErrNoBriefs when the
// archive is empty.
func (a *Archive) GetLatestBrief(ctx context.Context) (*types.BriefReport, error) {
	members, err := a.backend.IndexRangeDesc(ctx, indexName, 0, 1)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, ErrNoBriefs
	}
	return a.GetBriefByDate(ctx, members[0])
}

// GetAllBriefs returns up to limit briefs, newest first. Index entries whose
// record is unexpectedly missing are skipped rather than failing the whole
// listing; the divergence is logged since save/delete keep both in step.
func (a *Archive) GetAllBriefs(ctx context.Context, limit int) ([]*types.BriefReport, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	members, err := a.backend.IndexRangeDesc(ctx, indexName, 0, limit)
	if err != nil {
		return nil, err
	}

	briefs := make([]*types.BriefReport, 0, len(members))
	for _, date := range members {
		report, err := a.GetBriefByDate(ctx, date)
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("[archive] index entry %s has no record, skipping", date)
			continue
		}
		if err != nil {
			return nil, err
		}
		briefs = append(briefs, report)
	}
	return briefs, nil
}

// DeleteBrief removes the brief and its index entry, reporting whether a
// record existed.
func (a *Archive) DeleteBrief(ctx context.Context, date string) (bool, error) {
	removed, err := a.backend.Delete(ctx, briefKey(date))
	if err != nil {
		return false, err
	}
	if err := a.backend.IndexRemove(ctx, indexName, date); err != nil {
		return removed, fmt.Errorf("brief %s deleted but index removal failed: %w", date, err)
	}
	return removed, nil
}

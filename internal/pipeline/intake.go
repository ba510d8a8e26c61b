package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/vslpipeline/internal/store"
	"github.com/kiranshivaraju/vslpipeline/pkg/models"
)

// DefaultSource labels bulk submissions that do not name one.
const DefaultSource = "manual_upload"

const reasonDuplicate = "duplicate"

// Intake registers new URLs.
type Intake struct {
	store   store.Store
	starter Starter
	now     func() time.Time
}

type IntakeOption func(*Intake)

// WithIntakeClock replaces the time source used for batch dates.
func WithIntakeClock(now func() time.Time) IntakeOption {
	return func(i *Intake) { i.now = now }
}

func NewIntake(st store.Store, starter Starter, opts ...IntakeOption) *Intake {
	i := &Intake{store: st, starter: starter, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// SubmitResult is the outcome of a single submission.
type SubmitResult struct {
	URL     *models.URL `json:"url"`
	Created bool        `json:"created"`
	TaskID  *uuid.UUID  `json:"pipeline_task_id,omitempty"`
}

// Submit registers one URL and starts its chain right away. The URL is
// created as queued so a batch pass cannot claim it as well. A reference that
// already exists is returned unchanged and no chain is started.
func (i *Intake) Submit(ctx context.Context, rawURL, urlType string) (*SubmitResult, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, ErrEmptyInput
	}

	u, created, err := i.create(ctx, rawURL, urlType, models.URLStatusQueued)
	if err != nil {
		return nil, err
	}
	if !created {
		return &SubmitResult{URL: u}, nil
	}

	id, err := i.starter.Start(ctx, u.ID)
	if err != nil {
		if rerr := i.store.SetURLStatus(context.WithoutCancel(ctx), u.ID, models.URLStatusPendingIngest,
			store.WithLastError(err.Error())); rerr != nil {
			slog.Error("failed to release url", "url_id", u.ID, "error", rerr)
		}
		return nil, err
	}
	return &SubmitResult{URL: u, Created: true, TaskID: &id}, nil
}

// BulkItem is the per-reference outcome of a bulk submission.
type BulkItem struct {
	RawURL  string `json:"raw_url"`
	Created bool   `json:"created"`
	URLID   int64  `json:"url_id"`
	Reason  string `json:"reason,omitempty"`
}

// BulkResult summarizes a bulk submission.
type BulkResult struct {
	Source        string     `json:"source"`
	TotalReceived int        `json:"total_received"`
	Inserted      int        `json:"inserted"`
	Duplicates    int        `json:"duplicates"`
	Items         []BulkItem `json:"results"`
}

// SubmitBulk registers many URLs as pending_ingest without starting any
// chain. References are trimmed and blanks dropped. A reference already
// known, or repeated within the same request, is reported as a duplicate.
func (i *Intake) SubmitBulk(ctx context.Context, source string, refs []string) (*BulkResult, error) {
	cleaned := make([]string, 0, len(refs))
	for _, r := range refs {
		if r = strings.TrimSpace(r); r != "" {
			cleaned = append(cleaned, r)
		}
	}
	if len(cleaned) == 0 {
		return nil, ErrEmptyInput
	}
	if strings.TrimSpace(source) == "" {
		source = DefaultSource
	}

	res := &BulkResult{Source: source, TotalReceived: len(cleaned), Items: make([]BulkItem, 0, len(cleaned))}
	for _, raw := range cleaned {
		u, created, err := i.create(ctx, raw, models.DefaultURLType, models.URLStatusPendingIngest)
		if err != nil {
			return nil, err
		}
		item := BulkItem{RawURL: raw, Created: created, URLID: u.ID}
		if created {
			res.Inserted++
		} else {
			item.Reason = reasonDuplicate
			res.Duplicates++
		}
		res.Items = append(res.Items, item)
	}

	slog.Info("bulk intake",
		"source", res.Source,
		"total_received", res.TotalReceived,
		"inserted", res.Inserted,
		"duplicates", res.Duplicates,
	)
	return res, nil
}

// create inserts rawURL unless an identical reference exists, in which case
// the existing URL is returned with created false.
func (i *Intake) create(ctx context.Context, rawURL, urlType string, status models.URLStatus) (*models.URL, bool, error) {
	existing, err := i.store.FindURLByRawURL(ctx, rawURL)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("looking up url: %w", err)
	}

	if urlType == "" {
		urlType = models.DefaultURLType
	}
	today := i.today()
	u := &models.URL{RawURL: rawURL, Type: urlType, Status: status, BatchDate: &today}
	err = i.store.CreateURL(ctx, u)
	if errors.Is(err, store.ErrDuplicateKey) {
		existing, ferr := i.store.FindURLByRawURL(ctx, rawURL)
		if ferr != nil {
			return nil, false, fmt.Errorf("looking up url: %w", ferr)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("creating url: %w", err)
	}
	return u, true, nil
}

// today is the UTC date of intake.
func (i *Intake) today() time.Time {
	y, m, d := i.now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"finstack-p2p.backend/internal/domain/entities"
	"finstack-p2p.backend/internal/infrastructure/backend"
	"finstack-p2p.backend/internal/infrastructure/jobs"
	"finstack-p2p.backend/pkg/utils"
)

// Backend collection paths for the admin views
const (
	PathAdminDisputes     = "/admin/disputes"
	PathAdminMerchants    = "/admin/merchants"
	PathAdminKYC          = "/admin/kyc"
	PathAdminTransactions = "/admin/transactions"
)

// CollectionFetcher loads a full backend collection
type CollectionFetcher interface {
	FetchCollection(ctx context.Context, path, token string) ([]backend.Record, error)
}

// KYCSnapshotSource serves a recently polled KYC collection
type KYCSnapshotSource interface {
	Fresh(maxAge time.Duration) (jobs.Snapshot[[]backend.Record], bool)
}

// AdminFilter holds the query of an admin list view. Zero fields match everything.
type AdminFilter struct {
	Search   string
	Status   string
	Type     string
	Country  string
	Verified *bool
	From     null.Time
	To       null.Time
	Page     int
	Limit    int
}

// AdminPage is one page of a filtered admin view. Stats cover every filtered
// record, not just the page.
type AdminPage[T any, S any] struct {
	Items []T                  `json:"items"`
	Stats S                    `json:"stats"`
	Meta  utils.PaginationMeta `json:"-"`
}

// AdminUsecase computes admin list views over backend collections
type AdminUsecase struct {
	fetcher   CollectionFetcher
	kyc       KYCSnapshotSource
	kycMaxAge time.Duration
	now       func() time.Time

	mu         sync.Mutex
	kycAllowed map[string]time.Time
}

// NewAdminUsecase creates the admin usecase. kyc may be nil when no poller runs.
func NewAdminUsecase(fetcher CollectionFetcher, kyc KYCSnapshotSource, kycMaxAge time.Duration) *AdminUsecase {
	return &AdminUsecase{
		fetcher:    fetcher,
		kyc:        kyc,
		kycMaxAge:  kycMaxAge,
		now:        time.Now,
		kycAllowed: make(map[string]time.Time),
	}
}

func (u *AdminUsecase) ListDisputes(ctx context.Context, token string, f AdminFilter) (*AdminPage[entities.Dispute, entities.DisputeStats], error) {
	records, err := u.fetcher.FetchCollection(ctx, PathAdminDisputes, token)
	if err != nil {
		return nil, err
	}
	items := filterMapped(records, backend.ToDispute, func(d entities.Dispute) bool {
		return matchesSearch(f.Search, d.ID, d.OrderID, d.RaisedBy, d.Reason) &&
			matchesValue(f.Status, d.Status) &&
			withinRange(d.CreatedAt, f)
	})
	return paginate(items, DisputeStatsOf(items), f), nil
}

func (u *AdminUsecase) ListMerchants(ctx context.Context, token string, f AdminFilter) (*AdminPage[entities.AdminMerchant, entities.MerchantStats], error) {
	records, err := u.fetcher.FetchCollection(ctx, PathAdminMerchants, token)
	if err != nil {
		return nil, err
	}
	items := filterMapped(records, backend.ToAdminMerchant, func(m entities.AdminMerchant) bool {
		return matchesSearch(f.Search, m.ID, m.Name, m.Email) &&
			matchesValue(f.Status, m.Status) &&
			(f.Verified == nil || *f.Verified == m.IsVerified)
	})
	return paginate(items, MerchantStatsOf(items), f), nil
}

// ListKYC fetches the collection with the caller's token. The poller snapshot
// is only served to a token the backend accepted within the last kycMaxAge.
func (u *AdminUsecase) ListKYC(ctx context.Context, token string, f AdminFilter) (*AdminPage[entities.KYCRecord, entities.KYCStats], error) {
	var records []backend.Record
	snap, fresh := u.freshKYC()
	if fresh && u.kycAuthorized(token) {
		records = snap
	} else {
		var err error
		records, err = u.fetcher.FetchCollection(ctx, PathAdminKYC, token)
		if err != nil {
			u.forgetKYC(token)
			return nil, err
		}
		u.rememberKYC(token)
	}
	items := filterMapped(records, backend.ToKYCRecord, func(k entities.KYCRecord) bool {
		return matchesSearch(f.Search, k.ID, k.UserID, k.Name, k.Email) &&
			matchesValue(f.Status, k.Status) &&
			matchesValue(f.Country, k.Country) &&
			withinRange(k.SubmittedAt, f)
	})
	return paginate(items, KYCStatsOf(items), f), nil
}

func (u *AdminUsecase) ListTransactions(ctx context.Context, token string, f AdminFilter) (*AdminPage[entities.Transaction, entities.TransactionStats], error) {
	records, err := u.fetcher.FetchCollection(ctx, PathAdminTransactions, token)
	if err != nil {
		return nil, err
	}
	items := filterMapped(records, backend.ToTransaction, func(t entities.Transaction) bool {
		return matchesSearch(f.Search, t.ID, t.Reference, t.User) &&
			matchesValue(f.Type, t.Type) &&
			matchesValue(f.Status, t.Status) &&
			withinRange(t.CreatedAt, f)
	})
	return paginate(items, TransactionStatsOf(items), f), nil
}

// ListLedger is the transaction view under the ledger route
func (u *AdminUsecase) ListLedger(ctx context.Context, token string, f AdminFilter) (*AdminPage[entities.Transaction, entities.TransactionStats], error) {
	return u.ListTransactions(ctx, token, f)
}

func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (u *AdminUsecase) kycAuthorized(token string) bool {
	if token == "" {
		return false
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	until, ok := u.kycAllowed[tokenDigest(token)]
	return ok && u.now().Before(until)
}

func (u *AdminUsecase) rememberKYC(token string) {
	if token == "" || u.kycMaxAge <= 0 {
		return
	}
	now := u.now()
	u.mu.Lock()
	defer u.mu.Unlock()
	for k, until := range u.kycAllowed {
		if !now.Before(until) {
			delete(u.kycAllowed, k)
		}
	}
	u.kycAllowed[tokenDigest(token)] = now.Add(u.kycMaxAge)
}

func (u *AdminUsecase) forgetKYC(token string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.kycAllowed, tokenDigest(token))
}

func (u *AdminUsecase) freshKYC() ([]backend.Record, bool) {
	if u.kyc == nil {
		return nil, false
	}
	snap, ok := u.kyc.Fresh(u.kycMaxAge)
	if !ok {
		return nil, false
	}
	return snap.Value, true
}

// DisputeStatsOf summarizes disputes
func DisputeStatsOf(items []entities.Dispute) entities.DisputeStats {
	stats := entities.DisputeStats{Total: len(items), DisputedAmount: decimal.Zero}
	for _, d := range items {
		switch d.Status {
		case "open", "pending", "in_review":
			stats.Open++
		case "resolved", "closed":
			stats.Resolved++
		case "escalated":
			stats.Escalated++
		}
		stats.DisputedAmount = stats.DisputedAmount.Add(d.Amount)
	}
	return stats
}

// MerchantStatsOf summarizes merchants. The average covers rated merchants only.
func MerchantStatsOf(items []entities.AdminMerchant) entities.MerchantStats {
	stats := entities.MerchantStats{Total: len(items)}
	var ratingSum float64
	var rated int
	for _, m := range items {
		switch m.Status {
		case "active", "approved":
			stats.Active++
		case "suspended", "banned":
			stats.Suspended++
		}
		if m.IsVerified {
			stats.Verified++
		}
		if m.Rating > 0 {
			ratingSum += m.Rating
			rated++
		}
	}
	if rated > 0 {
		stats.AverageRating = round2(ratingSum / float64(rated))
	}
	return stats
}

// KYCStatsOf summarizes KYC records
func KYCStatsOf(items []entities.KYCRecord) entities.KYCStats {
	stats := entities.KYCStats{Total: len(items)}
	for _, k := range items {
		switch k.Status {
		case "pending", "submitted", "in_review", "processing":
			stats.Pending++
		case "approved", "verified":
			stats.Approved++
		case "rejected", "declined", "failed":
			stats.Rejected++
		}
	}
	stats.ApprovalRate = percent(stats.Approved, stats.Total)
	return stats
}

// TransactionStatsOf summarizes transactions
func TransactionStatsOf(items []entities.Transaction) entities.TransactionStats {
	stats := entities.TransactionStats{Count: len(items), TotalVolume: decimal.Zero}
	for _, t := range items {
		switch t.Status {
		case "completed", "success", "successful":
			stats.Completed++
		case "failed", "declined", "reversed":
			stats.Failed++
		}
		stats.TotalVolume = stats.TotalVolume.Add(t.Amount)
	}
	stats.SuccessRate = percent(stats.Completed, stats.Count)
	return stats
}

func filterMapped[T any](records []backend.Record, toItem func(backend.Record) T, keep func(T) bool) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if item := toItem(r); keep(item) {
			out = append(out, item)
		}
	}
	return out
}

func paginate[T any, S any](items []T, stats S, f AdminFilter) *AdminPage[T, S] {
	page, meta := utils.Paginate(items, utils.PaginationParams{Page: f.Page, Limit: f.Limit})
	return &AdminPage[T, S]{Items: page, Stats: stats, Meta: meta}
}

func matchesSearch(query string, fields ...string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func matchesValue(want, got string) bool {
	want = strings.TrimSpace(want)
	return want == "" || strings.EqualFold(want, "all") || strings.EqualFold(want, got)
}

func withinRange(t time.Time, f AdminFilter) bool {
	if f.From.Valid && t.Before(f.From.Time) {
		return false
	}
	if f.To.Valid && t.After(f.To.Time) {
		return false
	}
	return true
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) * 100 / float64(total))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

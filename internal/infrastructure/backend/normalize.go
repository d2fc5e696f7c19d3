package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"finstack-p2p.backend/internal/domain/entities"
)

// Record is one decoded backend object. Keys may be dotted paths ("user.email").
type Record map[string]interface{}

// DecodeCollection accepts [...], {data:[...]}, {data:{items:[...]}},
// {items:[...]} and {data:{data:[...]}}.
func DecodeCollection(body []byte) ([]Record, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var root interface{}
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}
	list, ok := findList(root, 0)
	if !ok {
		return nil, fmt.Errorf("decode collection: no list in payload")
	}
	out := make([]Record, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, Record(m))
		}
	}
	return out, nil
}

func findList(v interface{}, depth int) ([]interface{}, bool) {
	switch t := v.(type) {
	case []interface{}:
		return t, true
	case map[string]interface{}:
		if depth > 2 {
			return nil, false
		}
		for _, key := range []string{"data", "items", "results", "records"} {
			if inner, ok := t[key]; ok {
				if list, ok := findList(inner, depth+1); ok {
					return list, true
				}
			}
		}
	}
	return nil, false
}

func (r Record) lookup(key string) (interface{}, bool) {
	if v, ok := r[key]; ok && v != nil {
		return v, true
	}
	if !strings.Contains(key, ".") {
		return nil, false
	}
	var cur interface{} = map[string]interface{}(r)
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// String returns the first non-empty value among keys, rendered as a string.
func (r Record) String(keys ...string) string {
	for _, k := range keys {
		v, ok := r.lookup(k)
		if !ok {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = strings.TrimSpace(t)
		case json.Number:
			s = t.String()
		case float64:
			s = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			s = strconv.FormatBool(t)
		}
		if s != "" {
			return s
		}
	}
	return ""
}

// Decimal returns the first parseable numeric value among keys.
func (r Record) Decimal(keys ...string) decimal.Decimal {
	for _, k := range keys {
		s := strings.ReplaceAll(r.String(k), ",", "")
		if s == "" {
			continue
		}
		if d, err := decimal.NewFromString(s); err == nil {
			return d
		}
	}
	return decimal.Zero
}

// Float returns the first parseable float among keys.
func (r Record) Float(keys ...string) float64 {
	f, _ := r.Decimal(keys...).Float64()
	return f
}

// Int returns the first parseable integer among keys.
func (r Record) Int(keys ...string) int {
	return int(r.Decimal(keys...).IntPart())
}

// Bool returns the first boolean-like value among keys.
func (r Record) Bool(keys ...string) bool {
	for _, k := range keys {
		v, ok := r.lookup(k)
		if !ok {
			continue
		}
		switch t := v.(type) {
		case bool:
			return t
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
				return b
			}
		case json.Number:
			return t.String() != "0"
		}
	}
	return false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Time returns the first parseable timestamp among keys. Numbers are unix
// seconds, or milliseconds when large enough.
func (r Record) Time(keys ...string) time.Time {
	for _, k := range keys {
		v, ok := r.lookup(k)
		if !ok {
			continue
		}
		switch t := v.(type) {
		case json.Number:
			if n, err := t.Int64(); err == nil && n > 0 {
				if n > 1e12 {
					return time.UnixMilli(n).UTC()
				}
				return time.Unix(n, 0).UTC()
			}
		case string:
			s := strings.TrimSpace(t)
			for _, layout := range timeLayouts {
				if ts, err := time.Parse(layout, s); err == nil {
					return ts.UTC()
				}
			}
		}
	}
	return time.Time{}
}

func (r Record) nullTime(keys ...string) null.Time {
	t := r.Time(keys...)
	return null.NewTime(t, !t.IsZero())
}

func (r Record) fullName(nameKeys ...string) string {
	if n := r.String(nameKeys...); n != "" {
		return n
	}
	first := r.String("firstname", "firstName", "first_name", "user.firstname", "user.firstName")
	last := r.String("lastname", "lastName", "last_name", "user.lastname", "user.lastName")
	return strings.TrimSpace(first + " " + last)
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ToDispute maps a backend dispute payload
func ToDispute(r Record) entities.Dispute {
	return entities.Dispute{
		ID:         r.String("id", "_id", "disputeId", "dispute_id"),
		OrderID:    r.String("orderId", "order_id", "order.id", "order._id"),
		RaisedBy:   r.String("raisedBy", "raised_by", "initiator", "userId", "user_id", "user.email"),
		Reason:     r.String("reason", "description", "message"),
		Status:     lower(r.String("status", "disputeStatus", "dispute_status")),
		Amount:     r.Decimal("amount", "disputedAmount", "disputed_amount", "order.fiatAmount", "order.amount"),
		Currency:   r.String("currency", "fiatCurrency", "fiat_currency", "order.fiatCurrency"),
		CreatedAt:  r.Time("createdAt", "created_at", "date"),
		ResolvedAt: r.nullTime("resolvedAt", "resolved_at"),
	}
}

// ToAdminMerchant maps a backend merchant payload
func ToAdminMerchant(r Record) entities.AdminMerchant {
	status := lower(r.String("status", "merchantStatus", "merchant_status"))
	if status == "" {
		switch {
		case r.Bool("isSuspended", "is_suspended", "suspended"):
			status = "suspended"
		case r.Bool("isActive", "is_active", "active"):
			status = "active"
		default:
			status = "pending"
		}
	}
	return entities.AdminMerchant{
		ID:         r.String("id", "_id", "merchantId", "merchant_id", "userId"),
		Name:       r.fullName("name", "displayName", "display_name", "businessName", "business_name", "fullName"),
		Email:      r.String("email", "user.email", "businessEmail"),
		Status:     status,
		IsVerified: r.Bool("isVerified", "is_verified", "verified", "kycVerified"),
		Rating:     r.Float("rating", "averageRating", "average_rating"),
		TradeCount: r.Int("tradeCount", "trade_count", "totalTrades", "total_trades", "completedTrades"),
		CreatedAt:  r.Time("createdAt", "created_at", "joinedAt", "date"),
	}
}

// ToKYCRecord maps a backend KYC payload
func ToKYCRecord(r Record) entities.KYCRecord {
	return entities.KYCRecord{
		ID:          r.String("id", "_id", "kycId", "kyc_id"),
		UserID:      r.String("userId", "user_id", "user.id", "user._id"),
		Name:        r.fullName("name", "fullName", "full_name", "user.name"),
		Email:       r.String("email", "user.email"),
		Country:     r.String("country", "user.country", "nationality"),
		Status:      lower(r.String("status", "kycStatus", "kyc_status", "verificationStatus")),
		SubmittedAt: r.Time("submittedAt", "submitted_at", "createdAt", "created_at", "date"),
		ReviewedAt:  r.nullTime("reviewedAt", "reviewed_at", "verifiedAt", "verified_at"),
	}
}

// ToTransaction maps a backend transaction or ledger payload
func ToTransaction(r Record) entities.Transaction {
	return entities.Transaction{
		ID:        r.String("id", "_id", "transactionId", "transaction_id", "txId"),
		Reference: r.String("reference", "ref", "txRef", "tx_ref", "transactionReference"),
		User:      r.String("user.email", "userEmail", "user_email", "user", "userId", "user_id", "username"),
		Type:      lower(r.String("type", "transactionType", "transaction_type", "category")),
		Status:    lower(r.String("status", "transactionStatus", "transaction_status")),
		Amount:    r.Decimal("amount", "value", "total"),
		Currency:  r.String("currency", "asset", "fiatCurrency"),
		CreatedAt: r.Time("createdAt", "created_at", "date", "timestamp"),
	}
}

package reconciliation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Well-known metadata item names emitted by the gateway.
const (
	itemAmount             = "Amount"
	itemMpesaReceiptNumber = "MpesaReceiptNumber"
	itemBalance            = "Balance"
	itemTransactionDate    = "TransactionDate"
	itemPhoneNumber        = "PhoneNumber"
)

// eat is UTC+3; gateway timestamps are Nairobi local time.
var eat = time.FixedZone("EAT", 3*60*60)

type CallbackItem struct {
	Name  string `json:"Name"`
	Value any    `json:"Value"`
}

// ParsedCallbackMetadata is the typed result of one webhook item list.
// Unrecognized names are carried verbatim in Extra.
type ParsedCallbackMetadata struct {
	Amount             *float64
	MpesaReceiptNumber string
	Balance            *float64
	TransactionDate    time.Time
	PhoneNumber        string
	Extra              map[string]any
}

// MetadataParser converts the gateway's loosely-typed Name/Value item list
// into ParsedCallbackMetadata. Webhook senders in this domain are not
// schema-stable, so a malformed individual item is logged and skipped; it
// never aborts parsing of the remaining items.
type MetadataParser struct {
	log *zap.SugaredLogger
	now func() time.Time
}

func NewMetadataParser(log *zap.SugaredLogger) *MetadataParser {
	return &MetadataParser{log: log, now: time.Now}
}

func (p *MetadataParser) Parse(items []CallbackItem) *ParsedCallbackMetadata {
	out := &ParsedCallbackMetadata{}

	for _, item := range items {
		if item.Name == "" {
			p.log.Debugw("callback_metadata_item_unnamed", "value", item.Value)
			continue
		}

		var err error
		switch item.Name {
		case itemAmount:
			var v float64
			if v, err = coerceFloat(item.Value); err == nil {
				out.Amount = &v
			}
		case itemMpesaReceiptNumber:
			var v string
			if v, err = coerceString(item.Value); err == nil {
				out.MpesaReceiptNumber = v
			}
		case itemBalance:
			var v float64
			if v, err = coerceFloat(item.Value); err == nil {
				out.Balance = &v
			}
		case itemTransactionDate:
			// fail-open: a bad date degrades to wall-clock now, see
			// ParseTransactionDate
			var raw string
			if raw, err = coerceString(item.Value); err == nil {
				out.TransactionDate = p.parseTransactionDateOrNow(raw)
			}
		case itemPhoneNumber:
			var v string
			if v, err = coerceString(item.Value); err == nil {
				out.PhoneNumber = v
			}
		default:
			if out.Extra == nil {
				out.Extra = map[string]any{}
			}
			out.Extra[item.Name] = item.Value
		}

		if err != nil {
			p.log.Warnw("callback_metadata_item_malformed", "name", item.Name, "value", item.Value, "error", err.Error())
		}
	}
	return out
}

func (p *MetadataParser) parseTransactionDateOrNow(raw string) time.Time {
	ts, err := ParseTransactionDate(raw)
	if err != nil {
		// a lossy but always-present timestamp is safer than dropping the
		// whole callback
		p.log.Warnw("callback_transaction_date_fallback", "raw", raw, "error", err.Error())
		return p.now()
	}
	return ts
}

// ParseTransactionDate accepts exactly two shapes: a 14-character
// YYYYMMDDHHMMSS string validated field-by-field and interpreted as UTC+3,
// or a 10-character Unix epoch-seconds string.
func ParseTransactionDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)

	switch len(s) {
	case 14:
		fields := []struct {
			name     string
			from, to int
			min, max int
		}{
			{"year", 0, 4, 2020, 2030},
			{"month", 4, 6, 1, 12},
			{"day", 6, 8, 1, 31},
			{"hour", 8, 10, 0, 23},
			{"minute", 10, 12, 0, 59},
			{"second", 12, 14, 0, 59},
		}
		vals := make([]int, len(fields))
		for i, f := range fields {
			n, err := strconv.Atoi(s[f.from:f.to])
			if err != nil {
				return time.Time{}, fmt.Errorf("non-numeric %s in %q", f.name, raw)
			}
			if n < f.min || n > f.max {
				return time.Time{}, fmt.Errorf("%s %d out of range [%d,%d]", f.name, n, f.min, f.max)
			}
			vals[i] = n
		}
		return time.Date(vals[0], time.Month(vals[1]), vals[2], vals[3], vals[4], vals[5], 0, eat), nil

	case 10:
		epoch, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("non-numeric epoch %q", raw)
		}
		return time.Unix(epoch, 0), nil
	}

	return time.Time{}, fmt.Errorf("unsupported transaction date length %d", len(s))
}

func coerceFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", t)
		}
		return f, nil
	}
	return 0, fmt.Errorf("unexpected type %T", v)
}

func coerceString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), nil
	case float64:
		// JSON numbers decode as float64; render without exponent so phone
		// numbers and dates survive
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case int:
		return strconv.Itoa(t), nil
	}
	return "", fmt.Errorf("unexpected type %T", v)
}

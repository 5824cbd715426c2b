/*
normalize.go - Raw row to FinancialRecord conversion

PURPOSE:
  Converts a heterogeneous raw row (bank transaction, payment, receipt,
  refund) into the canonical comparison form used by the classifier.
  Pure function of its input; never mutates the source row.

FIELD RESOLUTION:
  Raw rows are mappings, not positional tuples, so field meaning is never
  inferred from column order. Each logical field (id, date, amount, text) is
  resolved against a candidate list of column names covering the four source
  tables. See banking/types.go for the per-table column contracts.

AMOUNT DERIVATION:
  If the source supplies separate debit/credit columns, amount = credit - debit
  so that inflows come out positive. A single signed amount column is used
  as-is. Amounts are rounded to the currency minor unit (2 decimal places).

TEXT NORMALIZATION:
  Uppercase, collapse whitespace runs, strip currency symbols and thousands
  separators from embedded numbers, trim to 120 characters.

TAG DERIVATION:
  Case-insensitive substring scan against three fixed keyword lists
  (recurring, NSF, fee). A record may carry zero or more tags.

SEE ALSO:
  - types.go: FinancialRecord, TagSet
  - errors.go: NormalizationError and its sentinels
*/
package recon

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// maxCounterpartyLen bounds the normalized description; bank feeds
// occasionally embed full memo blobs.
const maxCounterpartyLen = 120

// =============================================================================
// KEYWORDS - Fixed lists driving tag derivation
// =============================================================================

// Keywords holds the substring lists scanned during tag derivation.
// Entries must be uppercase; the scan runs over the normalized text.
type Keywords struct {
	Recurring []string
	NSF       []string
	Fee       []string
}

// DefaultKeywords returns the baseline lists. Domain packages extend them
// with table-specific vendor terms (see banking.Keywords).
func DefaultKeywords() Keywords {
	return Keywords{
		Recurring: []string{"RENT", "LEASE", "INSURANCE", "UTILITY", "UTILITIES", "MONTHLY"},
		NSF:       []string{"NSF", "NON-SUFFICIENT", "NONSUFFICIENT", "BOUNCE", "BOUNCED", "REVERSAL", "RETURNED ITEM"},
		Fee:       []string{"SERVICE FEE", "BANK FEE", "SERVICE CHARGE", "MONTHLY FEE", "OVERDRAFT"},
	}
}

// =============================================================================
// NORMALIZER
// =============================================================================

type Normalizer struct {
	keywords Keywords
}

func NewNormalizer() *Normalizer {
	return &Normalizer{keywords: DefaultKeywords()}
}

func NewNormalizerWithKeywords(kw Keywords) *Normalizer {
	return &Normalizer{keywords: kw}
}

// Column candidate lists, in lookup order. They cover the column contracts
// of all four source tables.
var (
	idColumns     = []string{"id", "source_id", "rowid"}
	dateColumns   = []string{"date", "transaction_date", "payment_date", "receipt_date", "refund_date", "posted_date"}
	amountColumns = []string{"amount", "total", "net_amount"}
	textColumns   = []string{"description", "counterparty", "payee", "vendor", "customer", "memo", "notes", "reason"}
)

// Normalize converts one raw row into a FinancialRecord.
// Missing date or missing amount fails with a NormalizationError; the caller
// should skip the row and log it, never crash the batch.
func (n *Normalizer) Normalize(kind SourceKind, row map[string]any) (FinancialRecord, error) {
	switch kind {
	case KindBankTransaction, KindPayment, KindReceipt, KindRefund:
	default:
		return FinancialRecord{}, fmt.Errorf("%w: %q", ErrUnknownSourceKind, kind)
	}

	id := n.lookupString(row, idColumns)

	date, err := n.resolveDate(kind, id, row)
	if err != nil {
		return FinancialRecord{}, err
	}

	amount, err := n.resolveAmount(kind, id, row)
	if err != nil {
		return FinancialRecord{}, err
	}

	text := NormalizeText(n.lookupString(row, textColumns))

	return FinancialRecord{
		SourceKind:       kind,
		SourceID:         SourceID(id),
		Date:             date,
		Amount:           amount.Round(2),
		CounterpartyText: text,
		Tags:             n.scanTags(text),
	}, nil
}

func (n *Normalizer) resolveDate(kind SourceKind, id string, row map[string]any) (Date, error) {
	for _, col := range dateColumns {
		v, ok := row[col]
		if !ok || v == nil {
			continue
		}
		d, err := toDate(v)
		if err != nil {
			return Date{}, &NormalizationError{SourceKind: kind, SourceID: SourceID(id), Field: col, Err: fmt.Errorf("%w: %v", ErrBadValue, err)}
		}
		return d, nil
	}
	return Date{}, &NormalizationError{SourceKind: kind, SourceID: SourceID(id), Field: "date", Err: ErrMissingDate}
}

func (n *Normalizer) resolveAmount(kind SourceKind, id string, row map[string]any) (decimal.Decimal, error) {
	// Debit/credit pair takes precedence: amount = credit - debit.
	debit, hasDebit := row["debit"]
	credit, hasCredit := row["credit"]
	if hasDebit || hasCredit {
		d, err := toDecimalOrZero(debit)
		if err != nil {
			return decimal.Zero, &NormalizationError{SourceKind: kind, SourceID: SourceID(id), Field: "debit", Err: fmt.Errorf("%w: %v", ErrBadValue, err)}
		}
		c, err := toDecimalOrZero(credit)
		if err != nil {
			return decimal.Zero, &NormalizationError{SourceKind: kind, SourceID: SourceID(id), Field: "credit", Err: fmt.Errorf("%w: %v", ErrBadValue, err)}
		}
		return c.Sub(d), nil
	}

	for _, col := range amountColumns {
		v, ok := row[col]
		if !ok || v == nil {
			continue
		}
		amt, err := toDecimal(v)
		if err != nil {
			return decimal.Zero, &NormalizationError{SourceKind: kind, SourceID: SourceID(id), Field: col, Err: fmt.Errorf("%w: %v", ErrBadValue, err)}
		}
		return amt, nil
	}
	return decimal.Zero, &NormalizationError{SourceKind: kind, SourceID: SourceID(id), Field: "amount", Err: ErrMissingAmount}
}

func (n *Normalizer) lookupString(row map[string]any, columns []string) string {
	for _, col := range columns {
		if v, ok := row[col]; ok && v != nil {
			if s := fmt.Sprintf("%v", v); strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return ""
}

func (n *Normalizer) scanTags(text string) TagSet {
	var tags TagSet
	tags.Recurring = containsAny(text, n.keywords.Recurring)
	tags.NSF = containsAny(text, n.keywords.NSF)
	tags.Fee = containsAny(text, n.keywords.Fee)
	return tags
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// =============================================================================
// TEXT NORMALIZATION
// =============================================================================

// NormalizeText produces the canonical counterparty string: uppercase,
// single-spaced, no currency symbols, no thousands separators inside numbers,
// trimmed to 120 characters.
func NormalizeText(s string) string {
	s = strings.ToUpper(s)

	var b strings.Builder
	b.Grow(len(s))
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == '$' || r == '€' || r == '£':
			continue
		case r == ',' && i > 0 && i+1 < len(runes) &&
			unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]):
			// thousands separator inside an embedded number
			continue
		default:
			b.WriteRune(r)
		}
	}

	collapsed := strings.Join(strings.Fields(b.String()), " ")
	if r := []rune(collapsed); len(r) > maxCounterpartyLen {
		// Trim on a rune boundary so accented vendor names stay valid UTF-8.
		collapsed = strings.TrimSpace(string(r[:maxCounterpartyLen]))
	}
	return collapsed
}

// =============================================================================
// VALUE COERCION
// =============================================================================

func toDate(v any) (Date, error) {
	switch t := v.(type) {
	case Date:
		return t, nil
	case time.Time:
		return DateOf(t), nil
	case string:
		return ParseDate(t)
	default:
		return Date{}, fmt.Errorf("unsupported date type %T", v)
	}
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, nil
	case string:
		cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(t)
		if cleaned == "" {
			return decimal.Zero, fmt.Errorf("empty amount string")
		}
		return decimal.NewFromString(cleaned)
	case float64:
		return decimal.NewFromFloat(t), nil
	case float32:
		return decimal.NewFromFloat32(t), nil
	case int:
		return decimal.NewFromInt(int64(t)), nil
	case int64:
		return decimal.NewFromInt(t), nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported amount type %T", v)
	}
}

// toDecimalOrZero treats nil/empty as zero; debit-only and credit-only rows
// are routine in bank exports.
func toDecimalOrZero(v any) (decimal.Decimal, error) {
	if v == nil {
		return decimal.Zero, nil
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return toDecimal(v)
}

package recon_test

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alms/recon-engine/recon"
)

// =============================================================================
// AMOUNT DERIVATION
// =============================================================================

func TestNormalize_DebitCredit_DebitIsNegative(t *testing.T) {
	// GIVEN: A bank row with a debit column only
	// WHEN: Normalizing
	// THEN: Amount comes out negative (outflow)

	n := recon.NewNormalizer()
	rec, err := n.Normalize(recon.KindBankTransaction, map[string]any{
		"id":          "1001",
		"date":        "2024-09-15",
		"debit":       "135.00",
		"description": "FUEL STATION",
	})
	require.NoError(t, err)

	assert.True(t, rec.Amount.Equal(decimal.RequireFromString("-135.00")),
		"debit should yield a negative amount, got %s", rec.Amount)
	assert.Equal(t, recon.SourceID("1001"), rec.SourceID)
	assert.Equal(t, recon.KindBankTransaction, rec.SourceKind)
}

func TestNormalize_DebitCredit_CreditIsPositive(t *testing.T) {
	n := recon.NewNormalizer()
	rec, err := n.Normalize(recon.KindBankTransaction, map[string]any{
		"id":          "1007",
		"date":        "2024-09-20",
		"credit":      "1087.50",
		"description": "SQUARE DEPOSIT",
	})
	require.NoError(t, err)
	assert.True(t, rec.Amount.Equal(decimal.RequireFromString("1087.50")))
}

func TestNormalize_DebitCredit_BothColumns_NetAmount(t *testing.T) {
	// Some exports carry both columns on one row; amount = credit - debit.
	n := recon.NewNormalizer()
	rec, err := n.Normalize(recon.KindBankTransaction, map[string]any{
		"id":          "5",
		"date":        "2024-01-02",
		"debit":       "25.00",
		"credit":      "100.00",
		"description": "PARTIAL REVERSAL",
	})
	require.NoError(t, err)
	assert.True(t, rec.Amount.Equal(decimal.RequireFromString("75.00")))
}

func TestNormalize_SignedAmountColumn_UsedAsIs(t *testing.T) {
	n := recon.NewNormalizer()
	rec, err := n.Normalize(recon.KindRefund, map[string]any{
		"id":          "4001",
		"refund_date": "2024-09-25",
		"amount":      "-250.00",
		"reason":      "DEPOSIT RETURNED",
	})
	require.NoError(t, err)
	assert.True(t, rec.Amount.Equal(decimal.RequireFromString("-250.00")))
}

func TestNormalize_AmountString_CurrencyAndThousands(t *testing.T) {
	// "$1,087.50" is a routine spreadsheet export value.
	n := recon.NewNormalizer()
	rec, err := n.Normalize(recon.KindPayment, map[string]any{
		"id":           "2001",
		"payment_date": "2024-09-20",
		"amount":       "$1,087.50",
		"customer":     "SMITH",
	})
	require.NoError(t, err)
	assert.True(t, rec.Amount.Equal(decimal.RequireFromString("1087.50")))
}

func TestNormalize_AmountRoundedToMinorUnit(t *testing.T) {
	n := recon.NewNormalizer()
	rec, err := n.Normalize(recon.KindPayment, map[string]any{
		"id":           "7",
		"payment_date": "2024-03-01",
		"amount":       "19.955",
		"customer":     "X",
	})
	require.NoError(t, err)
	assert.Equal(t, "19.96", rec.Amount.StringFixed(2))
}

// =============================================================================
// DATE RESOLUTION
// =============================================================================

func TestNormalize_PerTableDateColumns(t *testing.T) {
	n := recon.NewNormalizer()

	cases := []struct {
		kind recon.SourceKind
		row  map[string]any
	}{
		{recon.KindBankTransaction, map[string]any{"id": "1", "transaction_date": "2024-06-01", "amount": "10"}},
		{recon.KindPayment, map[string]any{"id": "2", "payment_date": "2024-06-01", "amount": "10"}},
		{recon.KindReceipt, map[string]any{"id": "3", "receipt_date": "2024-06-01", "amount": "10"}},
		{recon.KindRefund, map[string]any{"id": "4", "refund_date": "2024-06-01", "amount": "10"}},
	}
	want := recon.NewDate(2024, time.June, 1)
	for _, tc := range cases {
		rec, err := n.Normalize(tc.kind, tc.row)
		require.NoError(t, err, "kind %s", tc.kind)
		assert.True(t, rec.Date.Equal(want), "kind %s: got %s", tc.kind, rec.Date)
	}
}

func TestNormalize_MissingDate_SkippableError(t *testing.T) {
	// A row without any recognizable date column must fail the row, not the
	// batch: the error is skippable and wraps ErrMissingDate.
	n := recon.NewNormalizer()
	_, err := n.Normalize(recon.KindBankTransaction, map[string]any{
		"id": "9", "amount": "10.00", "description": "NO DATE",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, recon.ErrMissingDate))
	assert.True(t, recon.IsSkippable(err), "missing date should be a skippable row error")
}

func TestNormalize_MissingAmount_SkippableError(t *testing.T) {
	n := recon.NewNormalizer()
	_, err := n.Normalize(recon.KindPayment, map[string]any{
		"id": "9", "payment_date": "2024-01-01", "customer": "NO AMOUNT",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, recon.ErrMissingAmount))
	assert.True(t, recon.IsSkippable(err))
}

func TestNormalize_BadDateValue_SkippableError(t *testing.T) {
	n := recon.NewNormalizer()
	_, err := n.Normalize(recon.KindBankTransaction, map[string]any{
		"id": "9", "date": "not-a-date", "amount": "10",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, recon.ErrBadValue))
	assert.True(t, recon.IsSkippable(err))

	var nerr *recon.NormalizationError
	require.True(t, errors.As(err, &nerr))
	assert.Equal(t, recon.SourceID("9"), nerr.SourceID)
}

func TestNormalize_UnknownKind_NotSkippable(t *testing.T) {
	// An unknown source kind is a caller bug, not a bad row.
	n := recon.NewNormalizer()
	_, err := n.Normalize(recon.SourceKind("invoices"), map[string]any{
		"id": "1", "date": "2024-01-01", "amount": "10",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, recon.ErrUnknownSourceKind))
	assert.False(t, recon.IsSkippable(err))
}

// =============================================================================
// TEXT NORMALIZATION AND TAGS
// =============================================================================

func TestNormalizeText_CanonicalForm(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"  Fuel   Station  #42 ", "FUEL STATION #42"},
		{"payment $1,087.50 received", "PAYMENT 1087.50 RECEIVED"},
		{"ACME, INC.", "ACME, INC."}, // comma not inside a number stays
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, recon.NormalizeText(tc.in), "input %q", tc.in)
	}
}

func TestNormalizeText_TrimsLongMemos(t *testing.T) {
	long := strings.Repeat("X", 300)
	got := recon.NormalizeText(long)
	assert.LessOrEqual(t, len([]rune(got)), 120)
}

func TestNormalizeText_TrimKeepsAccentedRunesIntact(t *testing.T) {
	// An accented rune straddling the 120-char cutoff must not be split
	// into a broken byte.
	long := strings.Repeat("A", 119) + "É TRANSPORT MONTRÉAL"
	got := recon.NormalizeText(long)

	assert.True(t, utf8.ValidString(got), "trimmed text must stay valid UTF-8: %q", got)
	assert.LessOrEqual(t, len([]rune(got)), 120)
	assert.Equal(t, strings.Repeat("A", 119)+"É", got)
}

func TestNormalize_TagDerivation(t *testing.T) {
	n := recon.NewNormalizer()

	cases := []struct {
		desc string
		want recon.TagSet
	}{
		{"GARAGE RENT SEPT", recon.TagSet{Recurring: true}},
		{"RTN NSF CHEQUE 88112", recon.TagSet{NSF: true}},
		{"MONTHLY SERVICE FEE", recon.TagSet{Recurring: true, Fee: true}},
		{"FUEL STATION", recon.TagSet{}},
		{"fleet insurance premium", recon.TagSet{Recurring: true}}, // scan runs on normalized text
	}
	for _, tc := range cases {
		rec, err := n.Normalize(recon.KindBankTransaction, map[string]any{
			"id": "1", "date": "2024-01-01", "amount": "10", "description": tc.desc,
		})
		require.NoError(t, err)
		assert.Equal(t, tc.want, rec.Tags, "description %q", tc.desc)
	}
}

func TestNormalize_DoesNotMutateSourceRow(t *testing.T) {
	n := recon.NewNormalizer()
	row := map[string]any{
		"id": "1", "date": "2024-01-01", "debit": "10.00", "description": "  lower case  ",
	}
	_, err := n.Normalize(recon.KindBankTransaction, row)
	require.NoError(t, err)
	assert.Equal(t, "  lower case  ", row["description"])
	assert.Equal(t, "10.00", row["debit"])
}

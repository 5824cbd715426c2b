/*
Package banking adapts the reconciliation engine to the back-office database.

PURPOSE:
  The recon package is domain-agnostic: it normalizes mappings, classifies,
  and plans. This package binds it to the almsdata tables - banking
  transactions, payments, receipts, charter refunds - and drives the full
  fetch-normalize-classify-plan-apply cycle as a recorded run.

COLUMN CONTRACTS (what each table supplies to Normalize):
  banking_transactions: id, transaction_date, debit, credit, description
  payments:             id, payment_date, amount, customer, memo
  receipts:             id, receipt_date, amount, vendor, notes
  charter_refunds:      id, refund_date, amount, customer, reason

  Bank rows carry a debit/credit pair (amount = credit - debit, inflows
  positive); the other tables carry a single signed amount.

SEE ALSO:
  - runner.go:   The run loop
  - keywords.go: Tag keyword lists tuned to this ledger
  - review.go:   Human review of flagged components
*/
package banking

import (
	"github.com/alms/recon-engine/recon"
)

// TableFor maps a source kind to its table name.
func TableFor(kind recon.SourceKind) string {
	switch kind {
	case recon.KindBankTransaction:
		return "banking_transactions"
	case recon.KindPayment:
		return "payments"
	case recon.KindReceipt:
		return "receipts"
	case recon.KindRefund:
		return "charter_refunds"
	}
	return ""
}

// AllKinds lists the four source kinds in reconciliation order: banking
// first, since deposits are the grouping side of cross-kind matches.
func AllKinds() []recon.SourceKind {
	return []recon.SourceKind{
		recon.KindBankTransaction,
		recon.KindPayment,
		recon.KindReceipt,
		recon.KindRefund,
	}
}

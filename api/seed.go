/*
seed.go - Demo dataset for development

PURPOSE:
  Loads a small fixture covering every classification the engine makes:
  a duplicated fuel charge, an NSF charge/reversal pair, recurring rent,
  and a deposit composed of two payments. Dev only; real data arrives
  through the import tooling.
*/
package api

import (
	"net/http"

	"github.com/alms/recon-engine/recon"
)

type seedRow struct {
	kind recon.SourceKind
	row  recon.RawRow
}

var demoRows = []seedRow{
	// Duplicated fuel charge (double-keyed import)
	{recon.KindBankTransaction, recon.RawRow{
		"id": "1001", "transaction_date": "2024-09-15", "debit": "135.00", "description": "FUEL STATION 000123"}},
	{recon.KindBankTransaction, recon.RawRow{
		"id": "1002", "transaction_date": "2024-09-15", "debit": "135.00", "description": "FUEL STATION 123"}},

	// NSF charge and its reversal two days later
	{recon.KindBankTransaction, recon.RawRow{
		"id": "1003", "transaction_date": "2024-09-03", "debit": "138.73", "description": "RTN NSF CHEQUE 88112"}},
	{recon.KindBankTransaction, recon.RawRow{
		"id": "1004", "transaction_date": "2024-09-05", "credit": "138.73", "description": "NSF REVERSAL 88112"}},

	// Recurring garage rent, two months
	{recon.KindBankTransaction, recon.RawRow{
		"id": "1005", "transaction_date": "2024-09-01", "debit": "682.50", "description": "GARAGE RENT SEPT"}},
	{recon.KindBankTransaction, recon.RawRow{
		"id": "1006", "transaction_date": "2024-10-01", "debit": "682.50", "description": "GARAGE RENT OCT"}},

	// One deposit settled by two Square payments
	{recon.KindBankTransaction, recon.RawRow{
		"id": "1007", "transaction_date": "2024-09-20", "credit": "1087.50", "description": "SQUARE DEPOSIT"}},
	{recon.KindPayment, recon.RawRow{
		"id": "2001", "payment_date": "2024-09-20", "amount": "593.92", "customer": "AIRPORT RUN SMITH", "memo": "SQUARE"}},
	{recon.KindPayment, recon.RawRow{
		"id": "2002", "payment_date": "2024-09-20", "amount": "493.58", "customer": "WINE TOUR JONES", "memo": "SQUARE"}},

	// Monthly bank fee, legitimately repeating
	{recon.KindBankTransaction, recon.RawRow{
		"id": "1008", "transaction_date": "2024-09-30", "debit": "19.95", "description": "MONTHLY SERVICE FEE"}},

	// A receipt and a refund, unrelated to anything above
	{recon.KindReceipt, recon.RawRow{
		"id": "3001", "receipt_date": "2024-09-12", "amount": "-86.40", "vendor": "CAR WASH DEPOT", "notes": "FLEET"}},
	{recon.KindRefund, recon.RawRow{
		"id": "4001", "refund_date": "2024-09-25", "amount": "-250.00", "customer": "CANCELLED CHARTER LEE", "reason": "DEPOSIT RETURNED"}},
}

// SeedDemo inserts the demo dataset.
func (h *Handler) SeedDemo(w http.ResponseWriter, r *http.Request) {
	inserted := make(map[string]int)
	for _, s := range demoRows {
		if err := h.Store.InsertRow(r.Context(), s.kind, s.row); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to seed demo data", err)
			return
		}
		inserted[string(s.kind)]++
	}
	writeJSON(w, http.StatusCreated, SeedResponse{Inserted: inserted})
}

package banking

import "github.com/alms/recon-engine/recon"

// Keywords returns the tag keyword lists for this ledger: the generic
// defaults plus the vendor terms that actually appear in the bank feed.
// Entries are uppercase; the scan runs over normalized text.
func Keywords() recon.Keywords {
	base := recon.DefaultKeywords()

	base.Recurring = append(base.Recurring,
		"WAWANESA",   // fleet insurance
		"PROPERTY MGMT",
		"STORAGE",
		"HYDRO",
		"TELUS",
		"BELL MOBILITY",
	)
	base.NSF = append(base.NSF,
		"RTN NSF",
		"CHQ RETURNED",
		"RETURNED CHEQUE",
	)
	base.Fee = append(base.Fee,
		"SQUARE FEE",
		"PROCESSING FEE",
		"INTERAC FEE",
	)
	return base
}

// NewNormalizer builds the normalizer used for all almsdata tables.
func NewNormalizer() *recon.Normalizer {
	return recon.NewNormalizerWithKeywords(Keywords())
}

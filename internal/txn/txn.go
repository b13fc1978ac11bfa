package txn

import "github.com/brindlewood/facts/internal/ident"

// TxReport is the result of one transaction (§6: transact(database, forms)
// -> {before, after, processed-forms, placeholder-to-identifier}).
type TxReport struct {
	Before  Database
	After   Database
	Forms   []Form
	TempIDs map[string]ident.ID
}

// Apply runs one transaction to completion: nested-map expansion,
// tempid/lookup-ref resolution, then the two-index update pass, in the
// fixed order §2's data flow describes. On any fatal diagnostic Apply
// returns a zero TxReport together with the error, which carries the
// offending form; db itself is never modified (§7: "on any fatal
// diagnostic, no index change is observable externally").
func Apply(db Database, forms []Form) (TxReport, error) {
	expanded, err := expand(db.Schema, forms)
	if err != nil {
		return TxReport{}, err
	}

	resolved, bindings, nextID, err := resolve(db, expanded)
	if err != nil {
		return TxReport{}, err
	}

	after, err := update(db, resolved)
	if err != nil {
		return TxReport{}, err
	}
	after.NextID = nextID

	return TxReport{Before: db, After: after, Forms: resolved, TempIDs: bindings}, nil
}

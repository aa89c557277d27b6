// Package triage matches free-text issues against a hierarchical taxonomy by
// embedding similarity and keeps a store of ranked matches in step with the
// issue source.
//
// Quick start:
//
//	t, err := triage.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Close()
//
//	report, _ := t.Reconcile(ctx)
//	fmt.Println(report.Succeeded, len(report.Failed))
//
// New reads TRIAGE_* environment variables unless WithConfig is given.
// A Triage is safe for concurrent use.
package triage

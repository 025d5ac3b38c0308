// Package patrol audits security-patrol event logs against round rules and
// reports every non-conformity it finds.
//
// Quick start:
//
//	res, err := patrol.Analyze(logText, patrol.DefaultSettings())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, nc := range res.NonConformities {
//	    fmt.Println(nc.Timestamp, nc.Guard, nc.Label)
//	}
//
// Analyze builds a fresh Auditor per call. When auditing many logs with the
// same settings, create one Auditor with New and reuse it; an Auditor is
// safe for concurrent use.
package patrol

// Package report builds the export document of a target.
//
// A report is the stored target configuration extended by two fields:
//
//	vulnerabilities  test groups which have at least one plugin output,
//	                 sorted by test group code, each carrying its outputs
//	                 in a "data" field
//	time             UTC time of generation, "2006-01-02 15:04:05"
//
// Every plugin output gets a "rank" field: the name of max(user_rank,
// owtf_rank) in the configured rank table. When a mapping name is given,
// test groups present in that mapping are relabeled through mapped_code and
// mapped_descrip, the others keep their own code and description there.
//
// Aggregator only reads from its collaborators and never modifies records
// it got from them. It does not log: errors are returned wrapped around
// the sentinels of the model package and the caller decides what to report.
package report

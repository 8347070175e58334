package firestore

import "cloud.google.com/go/firestore"

type BulkJob = bulkJob

func CheckJobs(op string, jobs []BulkJob) error {
	return checkJobs(op, "chunks_test", jobs)
}

var _ BulkJob = (*firestore.BulkWriterJob)(nil)

package firestore_test

import (
	"errors"
	"testing"

	gcfirestore "cloud.google.com/go/firestore"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/gapcheck/pkg/repository/firestore"
)

type fakeJob struct {
	err error
}

func (j *fakeJob) Results() (*gcfirestore.WriteResult, error) {
	if j.err != nil {
		return nil, j.err
	}
	return &gcfirestore.WriteResult{}, nil
}

func TestCheckJobs(t *testing.T) {
	t.Run("all writes succeeded", func(t *testing.T) {
		err := firestore.CheckJobs("upsert", []firestore.BulkJob{&fakeJob{}, &fakeJob{}})
		gt.NoError(t, err)
	})

	t.Run("no writes", func(t *testing.T) {
		gt.NoError(t, firestore.CheckJobs("upsert", nil))
	})

	t.Run("failed write is surfaced", func(t *testing.T) {
		denied := errors.New("permission denied")
		err := firestore.CheckJobs("delete_by_document", []firestore.BulkJob{
			&fakeJob{},
			&fakeJob{err: denied},
			&fakeJob{err: errors.New("deadline exceeded")},
		})
		gt.Error(t, err).Is(denied)
		gt.String(t, err.Error()).Contains("bulk write failed")
	})
}

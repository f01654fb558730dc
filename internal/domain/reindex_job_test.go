package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewReindexJob(t *testing.T) {
	now := time.Now()
	job := NewReindexJob("job1", 12, ReindexJobStatusPending, 0, "", now, nil)

	assert.Equal(t, "job1", job.ID)
	assert.Equal(t, int64(12), job.LibraryItemID)
	assert.Equal(t, ReindexJobStatusPending, job.Status)
	assert.Equal(t, int32(0), job.Retries)
	assert.Nil(t, job.ProcessedAt)
}

func TestValidateReindexJob(t *testing.T) {
	tests := []struct {
		name    string
		job     *ReindexJob
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid job",
			job:  &ReindexJob{ID: "job1", LibraryItemID: 1, Status: ReindexJobStatusPending},
		},
		{
			name:    "nil job",
			job:     nil,
			wantErr: true,
			errMsg:  "reindex job cannot be nil",
		},
		{
			name:    "missing ID",
			job:     &ReindexJob{LibraryItemID: 1, Status: ReindexJobStatusPending},
			wantErr: true,
			errMsg:  "reindex job ID is required",
		},
		{
			name:    "missing library item",
			job:     &ReindexJob{ID: "job1", Status: ReindexJobStatusPending},
			wantErr: true,
			errMsg:  "reindex job LibraryItemID is required",
		},
		{
			name:    "invalid status",
			job:     &ReindexJob{ID: "job1", LibraryItemID: 1, Status: "queued"},
			wantErr: true,
			errMsg:  "reindex job Status is invalid",
		},
		{
			name:    "negative retries",
			job:     &ReindexJob{ID: "job1", LibraryItemID: 1, Status: ReindexJobStatusFailed, Retries: -1},
			wantErr: true,
			errMsg:  "reindex job Retries cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateReindexJob(tt.job)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

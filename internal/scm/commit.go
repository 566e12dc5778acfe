package scm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"

	"scmcicd/internal/policy"
	"scmcicd/pkg/logging"
)

const (
	commitPath = "/config/operations/v1/config-versions/candidate:push"
	jobsPath   = "/config/operations/v1/jobs"
)

// Job states reported by the jobs endpoint.
const (
	jobStatusFinished = "FIN"
	jobResultOK       = "OK"
)

var errJobRunning = errors.New("commit job still running")

type commitRequest struct {
	Folders     []string `json:"folders"`
	Description string   `json:"description"`
}

type commitResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

type jobStatus struct {
	ID        string `json:"id"`
	StatusStr string `json:"status_str"`
	ResultStr string `json:"result_str"`
	Summary   string `json:"summary"`
}

type jobResponse struct {
	Data []jobStatus `json:"data"`
}

// Commit pushes the candidate configuration of folders and waits for the job
// to finish. A job still running when commit_timeout elapses is reported as
// PENDING rather than as an error.
func (c *Client) Commit(ctx context.Context, folders []string, message string) (policy.CommitResult, error) {
	if len(folders) == 0 {
		return policy.CommitResult{}, fmt.Errorf("commit needs at least one folder")
	}

	var resp commitResponse
	if err := c.do(ctx, http.MethodPost, commitPath, nil, commitRequest{Folders: folders, Description: message}, &resp); err != nil {
		return policy.CommitResult{}, err
	}
	if !resp.Success && resp.JobID == "" {
		return policy.CommitResult{Status: policy.CommitStatusFailed, Message: resp.Message}, nil
	}
	logging.Info(subsystem, "Commit job %s started for %v", resp.JobID, folders)
	if resp.JobID == "" {
		return policy.CommitResult{Status: policy.CommitStatusSuccess, Message: resp.Message}, nil
	}

	return c.WaitForJob(ctx, resp.JobID)
}

// WaitForJob polls a commit job with exponential backoff until it finishes.
func (c *Client) WaitForJob(ctx context.Context, jobID string) (policy.CommitResult, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.pollInterval
	b.MaxInterval = 15 * c.pollInterval
	if b.MaxInterval > 30*time.Second {
		b.MaxInterval = 30 * time.Second
	}

	poll := func() (jobStatus, error) {
		var resp jobResponse
		if err := c.do(ctx, http.MethodGet, jobsPath+"/"+url.PathEscape(jobID), nil, nil, &resp); err != nil {
			if isFatal(err) {
				return jobStatus{}, backoff.Permanent(err)
			}
			return jobStatus{}, err
		}
		if len(resp.Data) == 0 {
			return jobStatus{}, backoff.Permanent(fmt.Errorf("job %s not found", jobID))
		}
		job := resp.Data[0]
		if job.StatusStr != jobStatusFinished {
			logging.Debug(subsystem, "Commit job %s is %s", jobID, job.StatusStr)
			return job, errJobRunning
		}
		return job, nil
	}

	job, err := backoff.Retry(ctx, poll,
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(c.commitTimeout),
	)
	switch {
	case err == nil:
	case errors.Is(err, errJobRunning):
		logging.Warn(subsystem, "Commit job %s did not finish within %s", jobID, c.commitTimeout)
		return policy.CommitResult{JobID: jobID, Status: policy.CommitStatusPending, Message: "job still running"}, nil
	default:
		return policy.CommitResult{JobID: jobID}, err
	}

	result := policy.CommitResult{JobID: jobID, Message: job.Summary}
	if job.ResultStr == jobResultOK {
		result.Status = policy.CommitStatusSuccess
	} else {
		result.Status = policy.CommitStatusFailed
		if result.Message == "" {
			result.Message = fmt.Sprintf("job finished with result %s", job.ResultStr)
		}
	}
	logging.Info(subsystem, "Commit job %s finished: %s", jobID, result.Status)
	return result, nil
}

package queue

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"datanchor/internal/model"
)

// Task types carried by the queue fabric.
const (
	TypeMintDAT           = "dat:mint"
	TypeResolveAttestator = "dat:resolve-attestator"
	TypeReconcile         = "dat:reconcile"
)

// MintTaskID derives the deduplication id for a mint task, so repeated mint
// requests for one token collapse into a single pending job.
func MintTaskID(tokenAddress string) string {
	return "mint-dat-" + tokenAddress
}

// ResolveTaskID derives the deduplication id for a resolve-attestator task.
// Mint and reconciliation both use it, so at most one resolution attempt per
// token is pending at a time.
func ResolveTaskID(tokenAddress string) string {
	return "resolve-attestator-" + tokenAddress
}

// NewMintTask builds a mint task from the job payload.
func NewMintTask(job model.MintJob) (*asynq.Task, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal mint job: %w", err)
	}
	return asynq.NewTask(TypeMintDAT, payload), nil
}

// NewResolveTask builds a resolve-attestator task from the job payload.
func NewResolveTask(job model.ResolveAttestatorJob) (*asynq.Task, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal resolve job: %w", err)
	}
	return asynq.NewTask(TypeResolveAttestator, payload), nil
}

// ParseMintJob decodes a mint task payload.
func ParseMintJob(task *asynq.Task) (model.MintJob, error) {
	var job model.MintJob
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		return model.MintJob{}, fmt.Errorf("unmarshal mint job: %w", err)
	}
	return job, nil
}

// ParseResolveJob decodes a resolve-attestator task payload.
func ParseResolveJob(task *asynq.Task) (model.ResolveAttestatorJob, error) {
	var job model.ResolveAttestatorJob
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		return model.ResolveAttestatorJob{}, fmt.Errorf("unmarshal resolve job: %w", err)
	}
	return job, nil
}

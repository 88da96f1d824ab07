// Package enroll computes and stores face encodings for student photos.
package enroll

import (
	"context"
	"log"

	"github.com/pkg/errors"

	"schoolportal/internal/faceclient"
	"schoolportal/internal/metrics"
	"schoolportal/internal/queue"
)

// Embedder turns a photo into a face descriptor.
type Embedder interface {
	Embed(ctx context.Context, imageURL string) (*faceclient.EmbedResult, error)
}

// EncodingStore saves a student's encoding.
type EncodingStore interface {
	SetFaceEncoding(ctx context.Context, studentID int64, encoding string) error
}

// Processor handles enrollment jobs.
type Processor struct {
	embedder Embedder
	store    EncodingStore
}

// NewProcessor wires a processor.
func NewProcessor(e Embedder, s EncodingStore) *Processor {
	return &Processor{embedder: e, store: s}
}

// Process embeds the photo of job and stores the result.
func (p *Processor) Process(ctx context.Context, job queue.EnrollJob) (*faceclient.EmbedResult, error) {
	res, err := p.embedder.Embed(ctx, job.PhotoURL)
	if err != nil {
		metrics.Enrollments.WithLabelValues(embedFailure(err)).Inc()
		return nil, errors.Wrapf(err, "embed photo of student %d", job.StudentID)
	}
	if err := p.store.SetFaceEncoding(ctx, job.StudentID, res.Descriptor.String()); err != nil {
		metrics.Enrollments.WithLabelValues("store_failed").Inc()
		return nil, errors.Wrapf(err, "store encoding of student %d", job.StudentID)
	}
	metrics.Enrollments.WithLabelValues("ok").Inc()
	return res, nil
}

func embedFailure(err error) string {
	switch {
	case errors.Is(err, faceclient.ErrNoFace):
		return "no_face"
	case errors.Is(err, faceclient.ErrMultipleFaces):
		return "multiple_faces"
	case errors.Is(err, faceclient.ErrLowQuality):
		return "low_quality"
	default:
		return "embed_failed"
	}
}

// Consume processes enroll messages until msgs is closed. Other message
// types and failed jobs are logged and skipped.
func (p *Processor) Consume(ctx context.Context, msgs <-chan queue.Message) int {
	var done int
	for msg := range msgs {
		if msg.Type != queue.TypeEnroll {
			log.Printf("enroll: skipping %q message", msg.Type)
			continue
		}
		job, err := msg.Enroll()
		if err != nil {
			log.Printf("enroll: bad job: %v", err)
			continue
		}
		res, err := p.Process(ctx, job)
		if err != nil {
			log.Printf("enroll: %v", err)
			continue
		}
		done++
		log.Printf("student %d enrolled (faces: %d, score: %.2f)", job.StudentID, res.FacesDetected, res.Score)
	}
	return done
}

// Package generation drains the generation queue: chapters requested by
// students that have no stored content get notes and question sets produced
// by the generative client and saved back.
package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"app/internal/config"
	"app/internal/gemini"
	"app/internal/model"
	"app/internal/pgmq"
	"app/internal/pubsub"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

const generatedMCQCount = 20

// job mirrors the payload the API enqueues.
type job struct {
	ContentKey  string `json:"content_key"`
	Board       string `json:"board"`
	ClassLevel  string `json:"class_level"`
	Stream      string `json:"stream"`
	SubjectName string `json:"subject_name"`
	ChapterID   string `json:"chapter_id"`
	ContentType string `json:"content_type"`
}

// Worker consumes generation jobs.
type Worker struct {
	client      *pgmq.Client
	contentRepo repository.ContentRepository
	gen         *gemini.Client
	publisher   pubsub.Publisher
	topic       string
	cfg         *config.Config
	logger      zerolog.Logger
}

// NewWorker creates a generation worker. publisher may be nil.
func NewWorker(client *pgmq.Client, contentRepo repository.ContentRepository, gen *gemini.Client, publisher pubsub.Publisher, topic string, cfg *config.Config, logger zerolog.Logger) *Worker {
	return &Worker{
		client:      client,
		contentRepo: contentRepo,
		gen:         gen,
		publisher:   publisher,
		topic:       topic,
		cfg:         cfg,
		logger:      logger.With().Str("service", "GenerationWorker").Logger(),
	}
}

// Run starts the generation loop and blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	queue := w.cfg.GenerationQueueName
	w.logger.Info().Str("queue", queue).Msg("Starting generation worker")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Shutting down generation worker")
			return nil
		default:
		}

		msgs, err := w.client.ReadWithPoll(ctx, queue, w.cfg.GenerationPollTimeoutSec, w.cfg.GenerationPollMaxMsg)
		if err != nil {
			w.logger.Error().Err(err).Msg("Error reading generation queue")
			time.Sleep(time.Second)
			continue
		}
		if len(msgs) == 0 {
			continue
		}

		msg := msgs[0]
		w.logger.Info().Int64("msg_id", msg.ID).Msgf("Received generation job: %s", string(msg.Data))

		var j job
		if err := json.Unmarshal(msg.Data, &j); err != nil {
			w.logger.Error().Err(err).Msg("Failed to unmarshal generation payload; deleting message")
			_ = w.client.Delete(ctx, queue, []int64{msg.ID})
			continue
		}

		if err := w.processWithRetry(ctx, j); err != nil {
			w.deadLetter(ctx, msg.Data, j, err)
			if err := w.client.Delete(ctx, queue, []int64{msg.ID}); err != nil {
				w.logger.Error().Err(err).Msg("Error deleting generation message after failure")
			}
			continue
		}

		if err := w.client.Delete(ctx, queue, []int64{msg.ID}); err != nil {
			w.logger.Error().Err(err).Msg("Error deleting generation message")
		}
		w.publishDone(ctx, j)
	}
}

func (w *Worker) processWithRetry(ctx context.Context, j job) error {
	backoff := time.Duration(w.cfg.GenerationBackoffInitialSec) * time.Second
	var lastErr error
	for attempt := 1; attempt <= w.cfg.GenerationMaxRetries; attempt++ {
		lastErr = w.process(ctx, j)
		if lastErr == nil {
			return nil
		}
		w.logger.Error().Err(lastErr).Int("attempt", attempt).Str("content_key", j.ContentKey).Msg("Generation attempt failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if max := time.Duration(w.cfg.GenerationBackoffMaxSec) * time.Second; backoff > max {
			backoff = max
		}
	}
	return lastErr
}

func (w *Worker) process(ctx context.Context, j job) error {
	// Another job for the same chapter may already have filled the record.
	record, err := w.contentRepo.GetContent(ctx, j.ContentKey)
	if err != nil {
		return err
	}
	if record == nil {
		record = &model.ChapterContent{
			Key:         j.ContentKey,
			Board:       j.Board,
			ClassLevel:  j.ClassLevel,
			Stream:      j.Stream,
			SubjectName: j.SubjectName,
			ChapterID:   j.ChapterID,
		}
	}

	scope := fmt.Sprintf("%s board, class %s, subject %s, chapter %s", j.Board, j.ClassLevel, j.SubjectName, j.ChapterID)
	switch model.ContentType(j.ContentType) {
	case model.ContentMCQSimple, model.ContentMCQAnalysis:
		prompt := fmt.Sprintf("Write exam-style multiple choice questions for %s.", scope)
		items, err := w.gen.GenerateMCQs(ctx, prompt, generatedMCQCount)
		if err != nil {
			return err
		}
		record.ManualMCQs = append(record.ManualMCQs, items...)
	default:
		prompt := fmt.Sprintf("Write complete revision notes as a standalone HTML fragment for %s. "+
			"Use headings, short paragraphs and bullet lists. Return only the HTML.", scope)
		body, err := w.gen.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		record.HTMLBody = body
	}

	record.Generated = true
	return w.contentRepo.SaveContent(ctx, record)
}

func (w *Worker) deadLetter(ctx context.Context, raw []byte, j job, cause error) {
	dlq := w.cfg.GenerationDeadLetterQueueName
	if err := w.client.Send(ctx, dlq, raw); err != nil {
		w.logger.Error().Err(err).Str("dlq", dlq).Msg("Failed to send message to dead-letter queue")
	}
	w.logger.Warn().
		Int("attempts", w.cfg.GenerationMaxRetries).
		Str("content_key", j.ContentKey).
		Err(cause).
		Msg("Exhausted all generation retries; moving job to DLQ")
}

func (w *Worker) publishDone(ctx context.Context, j job) {
	if w.publisher == nil || w.topic == "" {
		return
	}
	payload, err := json.Marshal(model.ActivityEvent{
		Kind:   model.ActivityGenerationDone,
		Detail: j.ContentKey,
		At:     time.Now(),
	})
	if err != nil {
		return
	}
	if _, err := w.publisher.Publish(ctx, w.topic, payload); err != nil {
		w.logger.Warn().Err(err).Str("content_key", j.ContentKey).Msg("Failed to publish generation event")
	}
}

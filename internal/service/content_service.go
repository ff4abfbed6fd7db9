package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"app/internal/cache"
	"app/internal/entitlement"
	"app/internal/model"
	"app/internal/pgmq"
	"app/internal/pubsub"
	"app/internal/repository"
	"app/internal/reward"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrContentNotFound = errors.New("content not found")
	// ErrContentPending means nothing is stored for the chapter yet; a
	// generation job has been queued and the client should retry later.
	ErrContentPending       = errors.New("content generation pending")
	ErrInsufficientCredits  = errors.New("insufficient credits")
	ErrConfirmationRequired = errors.New("charge confirmation required")
)

// UnlockOutcome labels what happened to an unlock request.
type UnlockOutcome string

const (
	OutcomeAllowed        UnlockOutcome = "ALLOWED"
	OutcomeCharged        UnlockOutcome = "CHARGED"
	OutcomeConfirmCharge  UnlockOutcome = "CONFIRM_CHARGE"
	OutcomeDenied         UnlockOutcome = "DENIED"
	OutcomePendingContent UnlockOutcome = "PENDING"
)

// UnlockResult is the full answer to one unlock request. Payload fields are
// populated only when the outcome grants access.
type UnlockResult struct {
	Outcome UnlockOutcome
	Cost    int
	Balance int
	Reason  string

	Link      string
	Playlist  []string
	Body      string
	Questions []model.MCQItem
}

// GenerationJob is the payload queued for the generation worker when a
// chapter has no stored content.
type GenerationJob struct {
	ContentKey  string `json:"content_key"`
	Board       string `json:"board"`
	ClassLevel  string `json:"class_level"`
	Stream      string `json:"stream"`
	SubjectName string `json:"subject_name"`
	ChapterID   string `json:"chapter_id"`
	ContentType string `json:"content_type"`
}

// UnlockRequest identifies the content a user wants and how they want to pay.
type UnlockRequest struct {
	UserID      string
	ContentKey  string
	ContentType model.ContentType
	// Confirmed is the user's explicit yes to a charge. Ignored when the
	// account has auto-deduct enabled.
	Confirmed bool
	// EnableAutoDeduct, sent alongside a confirmation, turns auto-deduct on
	// for future charges.
	EnableAutoDeduct bool
	// Impersonating marks a session where an admin is viewing as this user.
	Impersonating bool

	// Scope fields, used only when the content must be generated.
	Board       string
	ClassLevel  string
	Stream      string
	SubjectName string
	ChapterID   string
}

// ContentService runs the unlock flow: entitlement evaluation, the charge
// confirmation gate, the ledger deduction and content delivery.
type ContentService interface {
	Unlock(ctx context.Context, req UnlockRequest) (*UnlockResult, error)
	SaveContent(ctx context.Context, c *model.ChapterContent) error
	GetContent(ctx context.Context, key string) (*model.ChapterContent, error)
}

type contentService struct {
	contentRepo   repository.ContentRepository
	userRepo      repository.UserRepository
	historyRepo   repository.HistoryRepository
	userCache     *cache.UserCache
	locks         *reward.Locks
	queue         *pgmq.Client
	queueName     string
	presignClient *s3.PresignClient
	bucketName    string
	publisher     pubsub.Publisher
	activityTopic string
	logger        zerolog.Logger
	now           func() time.Time
}

// NewContentService creates a new ContentService. queue, s3Client, userCache
// and publisher may be nil; the corresponding features degrade gracefully.
func NewContentService(
	contentRepo repository.ContentRepository,
	userRepo repository.UserRepository,
	historyRepo repository.HistoryRepository,
	userCache *cache.UserCache,
	locks *reward.Locks,
	queue *pgmq.Client,
	queueName string,
	s3Client *s3.Client,
	bucketName string,
	publisher pubsub.Publisher,
	activityTopic string,
	logger zerolog.Logger,
) ContentService {
	svc := &contentService{
		contentRepo:   contentRepo,
		userRepo:      userRepo,
		historyRepo:   historyRepo,
		userCache:     userCache,
		locks:         locks,
		queue:         queue,
		queueName:     queueName,
		bucketName:    bucketName,
		publisher:     publisher,
		activityTopic: activityTopic,
		logger:        logger.With().Str("service", "ContentService").Logger(),
		now:           time.Now,
	}
	if s3Client != nil {
		svc.presignClient = s3.NewPresignClient(s3Client)
	}
	return svc
}

func (s *contentService) Unlock(ctx context.Context, req UnlockRequest) (*UnlockResult, error) {
	record, err := s.contentRepo.GetContent(ctx, req.ContentKey)
	if err != nil {
		return nil, err
	}
	if record == nil {
		if err := s.enqueueGeneration(ctx, req); err != nil {
			s.logger.Error().Err(err).Str("content_key", req.ContentKey).Msg("Failed to queue generation job")
			return nil, ErrContentNotFound
		}
		return &UnlockResult{Outcome: OutcomePendingContent}, ErrContentPending
	}

	resolved, err := record.Resolve(req.ContentType)
	if err != nil {
		return nil, err
	}

	user, err := s.loadUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	decision := entitlement.Evaluate(user, resolved.Descriptor, now, req.Impersonating)

	switch decision.Verdict {
	case entitlement.VerdictDeny:
		return &UnlockResult{Outcome: OutcomeDenied, Cost: resolved.Descriptor.Cost, Balance: user.Credits, Reason: decision.Reason}, ErrInsufficientCredits

	case entitlement.VerdictAllow:
		result := &UnlockResult{Outcome: OutcomeAllowed, Balance: user.Credits}
		if err := s.deliver(ctx, result, resolved); err != nil {
			return nil, err
		}
		s.publishActivity(ctx, req.UserID, model.ActivityContentUnlock, string(req.ContentType)+" "+req.ContentKey)
		return result, nil
	}

	// VerdictCharge from here on.
	if !user.AutoDeductEnabled && !req.Confirmed {
		return &UnlockResult{Outcome: OutcomeConfirmCharge, Cost: decision.Amount, Balance: user.Credits}, ErrConfirmationRequired
	}

	result := &UnlockResult{Outcome: OutcomeCharged, Cost: decision.Amount}
	err = s.locks.Do(req.UserID, func() error {
		// Re-read inside the lock; the cached snapshot may be stale.
		fresh, err := s.userRepo.GetUserByID(ctx, req.UserID)
		if err != nil {
			return err
		}
		if fresh == nil {
			return ErrUserNotFound
		}
		// The balance may have moved since evaluation.
		if fresh.Credits < decision.Amount {
			result.Outcome = OutcomeDenied
			result.Balance = fresh.Credits
			result.Reason = entitlement.ReasonInsufficientCredits
			return ErrInsufficientCredits
		}
		charged, err := entitlement.ApplyCharge(*fresh, decision.Amount)
		if err != nil {
			return err
		}
		if req.Confirmed && req.EnableAutoDeduct {
			charged.AutoDeductEnabled = true
		}
		if err := s.userRepo.UpdateUser(ctx, &charged); err != nil {
			return err
		}
		s.invalidate(ctx, req.UserID)
		result.Balance = charged.Credits

		event := &repository.CreditEvent{
			ID:           "evt-" + uuid.NewString(),
			UserID:       req.UserID,
			Amount:       -decision.Amount,
			BalanceAfter: charged.Credits,
			ContentKey:   req.ContentKey,
			ContentType:  string(req.ContentType),
			Reason:       "content unlock",
		}
		if err := s.historyRepo.AddCreditEvent(ctx, event); err != nil {
			s.logger.Warn().Err(err).Str("user_id", req.UserID).Msg("Failed to record credit event")
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientCredits) {
			return result, err
		}
		return nil, err
	}

	if err := s.deliver(ctx, result, resolved); err != nil {
		return nil, err
	}
	s.publishActivity(ctx, req.UserID, model.ActivityCreditCharge,
		fmt.Sprintf("%d credits for %s", decision.Amount, req.ContentKey))
	return result, nil
}

func (s *contentService) SaveContent(ctx context.Context, c *model.ChapterContent) error {
	if err := s.contentRepo.SaveContent(ctx, c); err != nil {
		return err
	}
	return nil
}

func (s *contentService) GetContent(ctx context.Context, key string) (*model.ChapterContent, error) {
	c, err := s.contentRepo.GetContent(ctx, key)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrContentNotFound
	}
	return c, nil
}

// deliver fills the payload fields, presigning PDF links so clients fetch
// documents straight from object storage.
func (s *contentService) deliver(ctx context.Context, result *UnlockResult, resolved *model.ResolvedContent) error {
	result.Body = resolved.Body
	result.Playlist = resolved.Playlist
	result.Questions = resolved.Questions
	result.Link = resolved.Link
	if resolved.Descriptor.Type.IsPDF() && resolved.Link != "" && s.presignClient != nil {
		url, err := s.presignPDF(ctx, resolved.Link)
		if err != nil {
			s.logger.Error().Err(err).Str("storage_path", resolved.Link).Msg("Failed to presign PDF link")
			return fmt.Errorf("failed to generate presigned URL: %w", err)
		}
		result.Link = url
	}
	return nil
}

func (s *contentService) presignPDF(ctx context.Context, storagePath string) (string, error) {
	resp, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: awssdk.String(s.bucketName),
		Key:    awssdk.String(storagePath),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", err
	}
	return resp.URL, nil
}

func (s *contentService) enqueueGeneration(ctx context.Context, req UnlockRequest) error {
	if s.queue == nil {
		return errors.New("generation queue not configured")
	}
	payload, err := json.Marshal(GenerationJob{
		ContentKey:  req.ContentKey,
		Board:       req.Board,
		ClassLevel:  req.ClassLevel,
		Stream:      req.Stream,
		SubjectName: req.SubjectName,
		ChapterID:   req.ChapterID,
		ContentType: string(req.ContentType),
	})
	if err != nil {
		return err
	}
	return s.queue.Send(ctx, s.queueName, payload)
}

func (s *contentService) loadUser(ctx context.Context, userID string) (*model.User, error) {
	if s.userCache != nil {
		if u, err := s.userCache.Get(ctx, userID); err == nil && u != nil {
			return u, nil
		}
	}
	u, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	if s.userCache != nil {
		if err := s.userCache.Set(ctx, u); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to cache user snapshot")
		}
	}
	return u, nil
}

func (s *contentService) invalidate(ctx context.Context, userID string) {
	if s.userCache == nil {
		return
	}
	if err := s.userCache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to invalidate user cache")
	}
}

func (s *contentService) publishActivity(ctx context.Context, userID, kind, detail string) {
	if s.publisher == nil || s.activityTopic == "" {
		return
	}
	payload, err := json.Marshal(model.ActivityEvent{UserID: userID, Kind: kind, Detail: detail, At: s.now()})
	if err != nil {
		return
	}
	if _, err := s.publisher.Publish(ctx, s.activityTopic, payload); err != nil {
		s.logger.Warn().Err(err).Str("kind", kind).Msg("Failed to publish activity event")
	}
}

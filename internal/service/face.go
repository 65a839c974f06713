package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/domain"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/notify"
)

const eventSource = "api"

// FaceService is the entry point used by the HTTP handlers and the CLI.
type FaceService struct {
	gallery   GalleryStore
	enroller  *Enroller
	matcher   *Matcher
	auditRepo RecognitionAuditRepositoryInterface
	notifier  notify.Notifier
	logger    *slog.Logger
}

func NewFaceService(
	gallery GalleryStore,
	enroller *Enroller,
	matcher *Matcher,
	auditRepo RecognitionAuditRepositoryInterface,
	notifier notify.Notifier,
	logger *slog.Logger,
) *FaceService {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &FaceService{
		gallery:   gallery,
		enroller:  enroller,
		matcher:   matcher,
		auditRepo: auditRepo,
		notifier:  notifier,
		logger:    logger,
	}
}

func (s *FaceService) Enroll(ctx context.Context, ownerID string, raw []byte) (*domain.EnrollResult, error) {
	return s.enroller.Enroll(ctx, ownerID, raw)
}

func (s *FaceService) EnrollBatch(ctx context.Context, ownerID string, images [][]byte) (*domain.BatchResult, error) {
	return s.enroller.EnrollBatch(ctx, ownerID, images)
}

// Recognize matches the probe image, then records an audit row and publishes
// an event per accepted match. Neither side effect can fail the call.
func (s *FaceService) Recognize(ctx context.Context, raw []byte, clientIP string) (*domain.RecognitionResult, error) {
	result, err := s.matcher.Recognize(ctx, raw)
	if err != nil {
		return nil, err
	}

	accepted := result.Accepted()
	s.audit(ctx, result, len(accepted), clientIP)

	now := time.Now().UTC()
	for _, c := range accepted {
		s.notifier.Notify(ctx, domain.RecognitionEvent{
			RequestID:  result.RequestID,
			OwnerID:    c.OwnerID,
			FaceID:     c.FaceID,
			Similarity: c.Similarity,
			Threshold:  result.Threshold,
			Source:     eventSource,
			Timestamp:  now,
		})
	}

	return result, nil
}

func (s *FaceService) audit(ctx context.Context, result *domain.RecognitionResult, accepted int, clientIP string) {
	if s.auditRepo == nil {
		return
	}

	audit := &domain.RecognitionAudit{
		RequestID:     result.RequestID,
		FacesDetected: len(result.Faces),
		AcceptedCount: accepted,
		GallerySize:   result.GallerySize,
		Threshold:     result.Threshold,
		TopK:          s.matcher.TopK(),
		LatencyMs:     result.LatencyMs,
		ClientIP:      clientIP,
	}
	if top := topCandidate(result); top != nil {
		audit.TopMatchOwnerID = &top.OwnerID
		audit.TopMatchFaceID = &top.FaceID
		audit.TopMatchSimilarity = &top.Similarity
	}

	if err := s.auditRepo.Create(context.WithoutCancel(ctx), audit); err != nil {
		s.logger.Warn("failed to write recognition audit",
			slog.String("request_id", result.RequestID),
			slog.Any("error", err),
		)
	}
}

// topCandidate is the highest-ranked candidate over all detected faces.
func topCandidate(result *domain.RecognitionResult) *domain.Candidate {
	var top *domain.Candidate
	for i := range result.Faces {
		cands := result.Faces[i].Candidates
		if len(cands) == 0 {
			continue
		}
		if top == nil || cands[0].Similarity > top.Similarity {
			c := cands[0]
			top = &c
		}
	}
	return top
}

func (s *FaceService) ListFaces(ctx context.Context, ownerID string) ([]domain.FaceSummary, error) {
	return s.gallery.List(ctx, strings.TrimSpace(ownerID))
}

// DeleteFace returns 1 when the face existed and 0 otherwise.
func (s *FaceService) DeleteFace(ctx context.Context, faceID string) (int, error) {
	faceID = strings.TrimSpace(faceID)
	if faceID == "" {
		return 0, domain.ErrInvalidInput.WithError(errors.New("face_id is required"))
	}

	n, err := s.gallery.DeleteOne(ctx, faceID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("face deleted", slog.String("face_id", faceID))
	}
	return n, nil
}

func (s *FaceService) DeleteFacesByOwner(ctx context.Context, ownerID string) (domain.OwnerDeletion, error) {
	owner, err := domain.NormalizeOwnerID(ownerID)
	if err != nil {
		return domain.OwnerDeletion{}, err
	}

	result, err := s.gallery.DeleteByOwner(ctx, owner)
	if err != nil {
		return domain.OwnerDeletion{}, err
	}

	s.logger.Info("faces deleted for user",
		slog.String("user_id", owner),
		slog.Int("deleted", result.Deleted),
	)
	return result, nil
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	eventqueue "github.com/okian/parrot/internal/adapters/mq/queue"
	"github.com/okian/parrot/internal/domain/model"
	"github.com/okian/parrot/internal/domain/scoring"
	"github.com/okian/parrot/internal/domain/types"
	"github.com/okian/parrot/pkg/audio"
	"github.com/okian/parrot/pkg/logger"
	"github.com/okian/parrot/pkg/metrics"
)

// Submission is one pronunciation attempt as received from a client.
type Submission struct {
	// Text is the sentence the learner was asked to say.
	Text string
	// Language is the language code; empty means English.
	Language string
	// Filename is the client-side name of the recording.
	Filename string
	// Audio is the recording. Nil means no file was sent at all.
	Audio []byte
}

// Assess stores the recording, transcribes a cleaned copy while
// synthesizing the reference pronunciation, and scores the transcript
// against the target text.
func (s *Service) Assess(ctx context.Context, sub Submission) (types.Assessment, error) {
	start := time.Now()
	res, err := s.assess(ctx, sub)
	if err != nil {
		s.failures.Add(1)
		metrics.RecordAssessmentFailure(failureReason(err))
		return types.Assessment{}, err
	}

	s.assessments.Add(1)
	metrics.RecordAssessment(res.Language, res.Tier, res.Accuracy, float64(time.Since(start).Milliseconds()))
	return res, nil
}

func (s *Service) assess(ctx context.Context, sub Submission) (types.Assessment, error) {
	text := strings.TrimSpace(sub.Text)
	if text == "" {
		return types.Assessment{}, ErrMissingText
	}
	if sub.Audio == nil {
		return types.Assessment{}, ErrMissingAudio
	}
	if strings.TrimSpace(sub.Filename) == "" {
		return types.Assessment{}, ErrMissingFilename
	}
	if len(sub.Audio) == 0 {
		return types.Assessment{}, fmt.Errorf("%w: %w", ErrInvalidAudio, audio.ErrEmptyAudio)
	}
	lang := scoring.ParseLanguage(sub.Language)
	if lang == "" {
		lang = scoring.DefaultLanguage
	}
	if !s.engine.Supports(lang) {
		return types.Assessment{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, sub.Language)
	}

	s.mu.RLock()
	started, jobs := s.started, s.jobQueue
	s.mu.RUnlock()
	if !started {
		return types.Assessment{}, ErrNotStarted
	}

	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	log := s.logger.With(logger.String("language", lang.String()))

	upload, err := s.store.Save(ctx, storagePrefixUpload, sub.Filename, sub.Audio)
	if err != nil {
		return types.Assessment{}, fmt.Errorf("%w: save upload: %w", ErrStorage, err)
	}
	log.Info(ctx, "audio uploaded", logger.String("id", upload.ID), logger.Int64("bytes", upload.Size))

	cleaned, err := s.prepareAudio(lang, sub.Audio)
	if err != nil {
		return types.Assessment{}, err
	}
	cleanedObj, err := s.store.Save(ctx, storagePrefixCleaned, "recording.wav", cleaned)
	if err != nil {
		return types.Assessment{}, fmt.Errorf("%w: save cleaned audio: %w", ErrStorage, err)
	}
	log.Debug(ctx, "cleaned audio saved", logger.String("id", cleanedObj.ID))

	var (
		transcript  string
		referenceID string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		transcript, err = s.transcribe(gctx, jobs, lang, text, cleaned)
		return err
	})
	g.Go(func() error {
		var err error
		referenceID, err = s.synthesizeReference(gctx, lang, text)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Error(ctx, "assessment failed", logger.String("upload", upload.ID), logger.Error(err))
		return types.Assessment{}, err
	}

	result := s.engine.Score(text, transcript, lang)
	log.Info(ctx, "assessment complete",
		logger.Float64("accuracy", result.Accuracy),
		logger.String("tier", string(result.Tier)),
	)

	return types.Assessment{
		Status:                  assessmentStatusSuccess,
		Language:                lang.String(),
		TargetText:              text,
		UserText:                result.NormalizedActual,
		Accuracy:                result.Accuracy,
		Feedback:                result.Feedback,
		Tier:                    string(result.Tier),
		RecordingURL:            audioURLPrefix + upload.ID,
		CorrectPronunciationURL: audioURLPrefix + referenceID,
	}, nil
}

// prepareAudio down-mixes, denoises and resamples a WAV upload into the
// 16 kHz mono WAV the transcriber expects.
func (s *Service) prepareAudio(lang scoring.Language, data []byte) ([]byte, error) {
	clip, err := audio.DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAudio, err)
	}
	prop, ok := s.propDecrease[lang]
	if !ok {
		prop = defaultPropDecrease
	}

	samples := clip.Mono()
	if prop > 0 {
		samples = audio.ReduceNoise(samples, audio.NoiseOptions{PropDecrease: prop})
	}
	samples = audio.Resample(samples, clip.SampleRate, defaultTranscribeRate)
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAudio, audio.ErrEmptyAudio)
	}
	return audio.EncodeWAV(samples, defaultTranscribeRate), nil
}

// transcribe queues the cleaned clip and waits for a worker's answer.
func (s *Service) transcribe(ctx context.Context, jobs eventqueue.Queue, lang scoring.Language, hint string, wav []byte) (string, error) {
	job := model.NewTranscriptionJob(uuid.NewString(), lang.String(), hint, s.temperature, wav)
	job.Done = ctx.Done()

	if !jobs.Enqueue(ctx, job) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if jobs.IsClosed() {
			return "", fmt.Errorf("%w: %w", ErrBackpressure, eventqueue.ErrClosed)
		}
		return "", fmt.Errorf("%w: %w", ErrBackpressure, eventqueue.ErrFull)
	}

	select {
	case res := <-job.Reply:
		if res.Err != nil {
			// A worker cancelled by our deadline reports context.Canceled.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", fmt.Errorf("%w: %w", ErrTranscription, ctxErr)
			}
			return "", fmt.Errorf("%w: %w", ErrTranscription, res.Err)
		}
		return res.Text, nil
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrTranscription, ctx.Err())
	}
}

// synthesizeReference renders the target text and stores it.
func (s *Service) synthesizeReference(ctx context.Context, lang scoring.Language, text string) (string, error) {
	start := time.Now()
	speech, err := s.synthesizer.Synthesize(ctx, text, lang.String())
	metrics.RecordSynthesis(lang.String(), float64(time.Since(start).Milliseconds()), err != nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSynthesis, err)
	}

	obj, err := s.store.Save(ctx, storagePrefixReference, "reference"+speech.Extension(), speech.Data)
	if err != nil {
		return "", fmt.Errorf("%w: save reference audio: %w", ErrStorage, err)
	}
	return obj.ID, nil
}

package service_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/parrot/internal/adapters/repository"
	service "github.com/okian/parrot/internal/app"
	"github.com/okian/parrot/pkg/audio"
	"github.com/okian/parrot/pkg/logger"
	sttmock "github.com/okian/parrot/pkg/provider/stt/mock"
	ttsmock "github.com/okian/parrot/pkg/provider/tts/mock"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// toneWAV returns half a second of a 44.1 kHz mono tone as a WAV file.
func toneWAV() []byte {
	const rate = 44100
	samples := make([]float64, rate/2)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/rate)
	}
	return audio.EncodeWAV(samples, rate)
}

type fixture struct {
	dir   string
	store *repository.FileStore
	stt   *sttmock.Transcriber
	tts   *ttsmock.Synthesizer
	svc   *service.Service
}

func newFixture(t *testing.T, opts ...service.Option) *fixture {
	t.Helper()
	dir := t.TempDir()
	store, err := repository.NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	f := &fixture{
		dir:   dir,
		store: store,
		stt:   &sttmock.Transcriber{},
		tts:   &ttsmock.Synthesizer{},
	}
	f.svc = service.New(store, f.stt, f.tts, opts...)
	return f
}

func (f *fixture) submit(text, lang, transcript string) (service.Submission, context.Context) {
	f.stt.Text = transcript
	return service.Submission{Text: text, Language: lang, Filename: "take 1.wav", Audio: toneWAV()}, context.Background()
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a new service", t, func() {
		f := newFixture(t)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When starting the service", func() {
			So(f.svc.Start(ctx), ShouldBeNil)
			defer f.svc.Stop()

			Convey("Then it reports as started with its configuration", func() {
				stats := f.svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["workerCount"], ShouldEqual, 1)
				So(stats["queueLength"], ShouldEqual, 0)
				So(stats["languages"], ShouldResemble, []string{"ar", "en"})
			})

			Convey("Then starting again is a no-op", func() {
				So(f.svc.Start(ctx), ShouldBeNil)
			})
		})

		Convey("When stopping a started service", func() {
			So(f.svc.Start(ctx), ShouldBeNil)
			f.svc.Stop()

			Convey("Then it is marked as stopped and refuses work", func() {
				So(f.svc.GetStats()["started"], ShouldEqual, false)
				sub, ctx := f.submit("hello", "en", "hello")
				_, err := f.svc.Assess(ctx, sub)
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})

			Convey("Then stopping twice is safe", func() {
				f.svc.Stop()
			})
		})
	})

	Convey("Given stale files in the upload directory", t, func() {
		f := newFixture(t, service.WithRetention(24*time.Hour))
		stale := filepath.Join(f.dir, "uploaded_old.wav")
		So(os.WriteFile(stale, []byte("old"), 0o644), ShouldBeNil)
		past := time.Now().Add(-48 * time.Hour)
		So(os.Chtimes(stale, past, past), ShouldBeNil)

		Convey("When the service starts they are purged", func() {
			So(f.svc.Start(context.Background()), ShouldBeNil)
			defer f.svc.Stop()

			_, err := os.Stat(stale)
			So(os.IsNotExist(err), ShouldBeTrue)
			So(f.svc.GetStats()["purged"], ShouldEqual, int64(1))
		})
	})
}

func TestService_Assess(t *testing.T) {
	Convey("Given a started service", t, func() {
		f := newFixture(t)
		So(f.svc.Start(context.Background()), ShouldBeNil)
		defer f.svc.Stop()

		Convey("When the learner says the sentence exactly", func() {
			sub, ctx := f.submit("  hello world ", "en", "hello world")
			res, err := f.svc.Assess(ctx, sub)

			Convey("Then the attempt is excellent", func() {
				So(err, ShouldBeNil)
				So(res.Status, ShouldEqual, "success")
				So(res.Language, ShouldEqual, "en")
				So(res.TargetText, ShouldEqual, "hello world")
				So(res.UserText, ShouldEqual, "hello world")
				So(res.Accuracy, ShouldEqual, 100)
				So(res.Tier, ShouldEqual, "excellent")
				So(res.Feedback, ShouldEqual, "🌟 Excellent pronunciation! Perfectly said!")
			})

			Convey("Then both recordings can be fetched", func() {
				So(res.RecordingURL, ShouldStartWith, "/get_audio/uploaded_")
				So(res.RecordingURL, ShouldEndWith, "_take_1.wav")
				So(res.CorrectPronunciationURL, ShouldStartWith, "/get_audio/tts_")

				for _, url := range []string{res.RecordingURL, res.CorrectPronunciationURL} {
					rc, obj, err := f.svc.OpenAudio(ctx, strings.TrimPrefix(url, "/get_audio/"))
					So(err, ShouldBeNil)
					So(obj.Size, ShouldBeGreaterThan, 0)
					_ = rc.Close()
				}
			})

			Convey("Then the transcriber gets a cleaned 16 kHz clip and the prompt", func() {
				req := f.stt.LastCall()
				So(req.Language, ShouldEqual, "en")
				So(req.Hint, ShouldEqual, "hello world")
				So(req.Temperature, ShouldEqual, 0.2)

				clip, err := audio.DecodeWAV(req.Audio)
				So(err, ShouldBeNil)
				So(clip.SampleRate, ShouldEqual, 16000)
				So(clip.Channels, ShouldEqual, 1)
			})

			Convey("Then the reference is synthesized from the target text", func() {
				So(f.tts.Calls, ShouldHaveLength, 1)
				So(f.tts.Calls[0].Text, ShouldEqual, "hello world")
				So(f.tts.Calls[0].Lang, ShouldEqual, "en")
			})

			Convey("Then the upload, cleaned clip and reference are stored", func() {
				So(f.store.Count(ctx), ShouldEqual, 3)
				So(f.svc.GetStats()["assessments"], ShouldEqual, int64(1))
			})
		})

		Convey("When an Arabic transcript differs only in letter variants", func() {
			sub, ctx := f.submit("مدرسة", "ar", " مدرسه ")
			res, err := f.svc.Assess(ctx, sub)

			Convey("Then the variants are normalized away", func() {
				So(err, ShouldBeNil)
				So(res.UserText, ShouldEqual, "مدرسه")
				So(res.Accuracy, ShouldEqual, 100)
				So(res.Feedback, ShouldEqual, "🌟 ممتاز! النطق واضح وصحيح تمامًا")
			})
		})

		Convey("When nothing intelligible is heard", func() {
			sub, ctx := f.submit("hello", "", "")
			res, err := f.svc.Assess(ctx, sub)

			Convey("Then the default language is used and the attempt is unintelligible", func() {
				So(err, ShouldBeNil)
				So(res.Language, ShouldEqual, "en")
				So(res.Accuracy, ShouldEqual, 0)
				So(res.Tier, ShouldEqual, "unintelligible")
				So(res.Feedback, ShouldEqual, "Could not understand. Please try again.")
			})
		})

		Convey("When the request is incomplete", func() {
			ctx := context.Background()
			wav := toneWAV()

			_, err := f.svc.Assess(ctx, service.Submission{Text: "  ", Filename: "a.wav", Audio: wav})
			So(errors.Is(err, service.ErrMissingText), ShouldBeTrue)

			_, err = f.svc.Assess(ctx, service.Submission{Text: "hi", Filename: "a.wav"})
			So(errors.Is(err, service.ErrMissingAudio), ShouldBeTrue)

			_, err = f.svc.Assess(ctx, service.Submission{Text: "hi", Audio: wav})
			So(errors.Is(err, service.ErrMissingFilename), ShouldBeTrue)

			_, err = f.svc.Assess(ctx, service.Submission{Text: "hi", Language: "fr", Filename: "a.wav", Audio: wav})
			So(errors.Is(err, service.ErrUnsupportedLanguage), ShouldBeTrue)

			_, err = f.svc.Assess(ctx, service.Submission{Text: "hi", Filename: "a.wav", Audio: []byte{}})
			So(errors.Is(err, service.ErrInvalidAudio), ShouldBeTrue)
			So(errors.Is(err, audio.ErrEmptyAudio), ShouldBeTrue)

			Convey("Then nothing is stored or transcribed", func() {
				So(f.store.Count(ctx), ShouldEqual, 0)
				So(f.stt.CallCount(), ShouldEqual, 0)
				So(f.svc.GetStats()["failures"], ShouldEqual, int64(4))
			})
		})

		Convey("When the upload is not a WAV file", func() {
			sub, ctx := f.submit("hello", "en", "hello")
			sub.Audio = []byte("ID3 not really audio")
			_, err := f.svc.Assess(ctx, sub)

			Convey("Then it is rejected as invalid audio", func() {
				So(errors.Is(err, service.ErrInvalidAudio), ShouldBeTrue)
				So(errors.Is(err, audio.ErrNotWAV), ShouldBeTrue)
				So(f.stt.CallCount(), ShouldEqual, 0)
			})
		})

		Convey("When the transcriber fails", func() {
			sub, ctx := f.submit("hello", "en", "")
			f.stt.Err = errors.New("whisper down")
			_, err := f.svc.Assess(ctx, sub)

			Convey("Then a transcription error is returned", func() {
				So(errors.Is(err, service.ErrTranscription), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "whisper down")
			})
		})

		Convey("When the synthesizer fails", func() {
			sub, ctx := f.submit("hello", "en", "hello")
			f.tts.Err = errors.New("coqui down")
			_, err := f.svc.Assess(ctx, sub)

			Convey("Then a synthesis error is returned", func() {
				So(errors.Is(err, service.ErrSynthesis), ShouldBeTrue)
			})
		})

		Convey("When audio is requested by a bad id", func() {
			_, _, err := f.svc.OpenAudio(context.Background(), "../etc/passwd")
			So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestService_Backpressure(t *testing.T) {
	Convey("Given a service with one worker and room for one waiting job", t, func() {
		f := newFixture(t, service.WithWorkerCount(1), service.WithQueueSize(1))
		f.stt.Text = "hello"
		f.stt.Block = make(chan struct{})
		So(f.svc.Start(context.Background()), ShouldBeNil)
		defer f.svc.Stop()

		sub := service.Submission{Text: "hello", Language: "en", Filename: "a.wav", Audio: toneWAV()}
		results := make(chan error, 2)
		assess := func() {
			_, err := f.svc.Assess(context.Background(), sub)
			results <- err
		}

		go assess()
		waitFor(func() bool { return f.stt.CallCount() == 1 })
		go assess()
		waitFor(func() bool { return f.svc.GetStats()["queueLength"] == 1 })

		Convey("When a third attempt arrives", func() {
			_, err := f.svc.Assess(context.Background(), sub)

			Convey("Then it is turned away and the others still finish", func() {
				So(errors.Is(err, service.ErrBackpressure), ShouldBeTrue)

				close(f.stt.Block)
				So(<-results, ShouldBeNil)
				So(<-results, ShouldBeNil)
			})
		})
	})
}

func TestService_RequestTimeout(t *testing.T) {
	Convey("Given a service whose transcriber never answers", t, func() {
		f := newFixture(t,
			service.WithWorkerCount(1),
			service.WithQueueSize(2),
			service.WithRequestTimeout(500*time.Millisecond),
		)
		f.stt.Block = make(chan struct{})
		So(f.svc.Start(context.Background()), ShouldBeNil)
		defer f.svc.Stop()

		sub := service.Submission{Text: "hello", Language: "en", Filename: "a.wav", Audio: toneWAV()}

		Convey("When the request deadline passes", func() {
			inFlight := make(chan error, 1)
			go func() {
				_, err := f.svc.Assess(context.Background(), sub)
				inFlight <- err
			}()
			waitFor(func() bool { return f.stt.CallCount() == 1 })

			// The caller gives up before the worker frees up, so its job
			// is still queued when it expires.
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			_, queuedErr := f.svc.Assess(ctx, sub)
			inFlightErr := <-inFlight

			Convey("Then both callers see the deadline", func() {
				So(errors.Is(queuedErr, context.DeadlineExceeded), ShouldBeTrue)
				So(errors.Is(inFlightErr, context.DeadlineExceeded), ShouldBeTrue)
				So(errors.Is(inFlightErr, service.ErrTranscription), ShouldBeTrue)
			})

			Convey("Then the worker skips the abandoned job", func() {
				waitFor(func() bool { return f.svc.GetStats()["queueLength"] == 0 })
				time.Sleep(50 * time.Millisecond)
				So(f.svc.GetStats()["queueLength"], ShouldEqual, 0)
				So(f.stt.CallCount(), ShouldEqual, 1)
				So(f.svc.GetStats()["transcribed"], ShouldEqual, int64(1))
				So(f.svc.GetStats()["failures"], ShouldEqual, int64(2))
			})
		})
	})
}

func TestService_Languages(t *testing.T) {
	Convey("Given a service with the built-in languages", t, func() {
		f := newFixture(t)

		So(f.svc.Languages(), ShouldHaveLength, 2)
		So(f.svc.Languages()[0].Code, ShouldEqual, "ar")
		So(f.svc.SupportsLanguage(" AR "), ShouldBeTrue)
		So(f.svc.SupportsLanguage("fr"), ShouldBeFalse)
	})
}

func waitFor(cond func() bool) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}

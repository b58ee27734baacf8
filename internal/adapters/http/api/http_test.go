package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/parrot/internal/adapters/http/api"
	app "github.com/okian/parrot/internal/app"
	"github.com/okian/parrot/internal/domain/model"
	"github.com/okian/parrot/internal/domain/types"
	"github.com/okian/parrot/pkg/logger"
)

type readSeekNopCloser struct{ *bytes.Reader }

func (readSeekNopCloser) Close() error { return nil }

type fakeDeps struct {
	result    types.Assessment
	err       error
	submitted []app.Submission
	files     map[string][]byte
}

func (f *fakeDeps) Assess(_ context.Context, sub app.Submission) (types.Assessment, error) {
	f.submitted = append(f.submitted, sub)
	if f.err != nil {
		return types.Assessment{}, f.err
	}
	return f.result, nil
}

func (f *fakeDeps) Languages() []types.LanguageInfo {
	return []types.LanguageInfo{{Code: "ar"}, {Code: "en"}}
}

func (f *fakeDeps) SupportsLanguage(code string) bool {
	code = strings.ToLower(strings.TrimSpace(code))
	return code == "en" || code == "ar"
}

func (f *fakeDeps) OpenAudio(_ context.Context, id string) (io.ReadSeekCloser, model.Object, error) {
	data, ok := f.files[id]
	if !ok {
		return nil, model.Object{}, fmt.Errorf("%w: %s", app.ErrNotFound, id)
	}
	obj := model.Object{ID: id, Size: int64(len(data)), ContentType: "audio/wav", CreatedAt: time.Unix(1700000000, 0)}
	return readSeekNopCloser{bytes.NewReader(data)}, obj, nil
}

type fakeStats struct{}

func (fakeStats) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true, "workerCount": 1}
}

func newTestMux(deps *fakeDeps, opts ...api.Option) *http.ServeMux {
	_ = logger.Init(logger.WithOutput(io.Discard))
	mux := http.NewServeMux()
	api.NewServer(deps, fakeStats{}, opts...).Register(context.Background(), mux)
	return mux
}

type uploadForm struct {
	text, language string
	withFile       bool
	filename       string
	audio          []byte
}

func newUploadRequest(f uploadForm) *http.Request {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if f.text != "" {
		_ = mw.WriteField("text", f.text)
	}
	if f.language != "" {
		_ = mw.WriteField("language", f.language)
	}
	if f.withFile {
		part, _ := mw.CreateFormFile("file", f.filename)
		_, _ = part.Write(f.audio)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload_audio", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func serve(mux *http.ServeMux, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestServer_Info(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newTestMux(&fakeDeps{})

		Convey("When requesting the root path", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

			Convey("Then it describes the service", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decodeBody(w)
				So(body["status"], ShouldEqual, "success")
				So(body["message"], ShouldEqual, "Pronunciation Coach API is running")
				endpoints, ok := body["endpoints"].(map[string]interface{})
				So(ok, ShouldBeTrue)
				So(endpoints, ShouldContainKey, "/upload_audio")
				So(endpoints, ShouldContainKey, "/get_audio/<filename>")
				So(endpoints, ShouldContainKey, "/set_language")
			})
		})

		Convey("When requesting an unknown path", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/nope", http.NoBody))

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When scraping /healthz", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))

			Convey("Then Prometheus metrics are served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "# HELP")
			})
		})

		Convey("When requesting /stats", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/stats", http.NoBody))

			Convey("Then the provider's statistics are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decodeBody(w)
				So(body["started"], ShouldEqual, true)
				So(body["workerCount"], ShouldEqual, 1.0)
			})
		})
	})
}

func TestServer_Languages(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newTestMux(&fakeDeps{})

		Convey("When listing languages", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/languages", http.NoBody))

			Convey("Then every supported code is listed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body struct {
					Status    string               `json:"status"`
					Languages []types.LanguageInfo `json:"languages"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.Status, ShouldEqual, "success")
				So(body.Languages, ShouldResemble, []types.LanguageInfo{{Code: "ar"}, {Code: "en"}})
			})
		})

		Convey("When setting a supported language", func() {
			req := httptest.NewRequest(http.MethodPost, "/set_language", strings.NewReader(`{"language":"AR"}`))
			w := serve(mux, req)

			Convey("Then it is echoed back", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decodeBody(w)
				So(body["status"], ShouldEqual, "success")
				So(body["language"], ShouldEqual, "ar")
			})
		})

		Convey("When the body names no language", func() {
			w := serve(mux, httptest.NewRequest(http.MethodPost, "/set_language", strings.NewReader(`{}`)))

			Convey("Then English is assumed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decodeBody(w)["language"], ShouldEqual, "en")
			})
		})

		Convey("When setting an unsupported language", func() {
			w := serve(mux, httptest.NewRequest(http.MethodPost, "/set_language", strings.NewReader(`{"language":"fr"}`)))

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				body := decodeBody(w)
				So(body["status"], ShouldEqual, "error")
				So(body["code"], ShouldEqual, "invalid_language")
				So(body["message"], ShouldEqual, "Invalid language")
			})
		})

		Convey("When the body is not JSON", func() {
			w := serve(mux, httptest.NewRequest(http.MethodPost, "/set_language", strings.NewReader(`language=ar`)))

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeBody(w)["code"], ShouldEqual, "bad_request")
			})
		})

		Convey("When set_language is called with GET", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/set_language", http.NoBody))

			Convey("Then the method is not allowed", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})
}

func TestServer_UploadAudio(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &fakeDeps{result: types.Assessment{
			Status:                  "success",
			Language:                "en",
			TargetText:              "hello world",
			UserText:                "hello world",
			Accuracy:                100,
			Feedback:                "Excellent pronunciation! Perfectly said!",
			Tier:                    "excellent",
			RecordingURL:            "/get_audio/uploaded_x_take.wav",
			CorrectPronunciationURL: "/get_audio/tts_y_reference.wav",
		}}
		mux := newTestMux(deps, api.WithMaxUploadBytes(4096))

		Convey("When a complete form is uploaded", func() {
			w := serve(mux, newUploadRequest(uploadForm{
				text: "hello world", language: "en",
				withFile: true, filename: "take.wav", audio: []byte("RIFFdata"),
			}))

			Convey("Then the assessment is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decodeBody(w)
				So(body["status"], ShouldEqual, "success")
				So(body["accuracy"], ShouldEqual, 100.0)
				So(body["tier"], ShouldEqual, "excellent")
				So(body["recording_url"], ShouldEqual, "/get_audio/uploaded_x_take.wav")
				So(body["correct_pronunciation_url"], ShouldEqual, "/get_audio/tts_y_reference.wav")
			})

			Convey("And the form fields reach the service", func() {
				So(deps.submitted, ShouldHaveLength, 1)
				sub := deps.submitted[0]
				So(sub.Text, ShouldEqual, "hello world")
				So(sub.Language, ShouldEqual, "en")
				So(sub.Filename, ShouldEqual, "take.wav")
				So(string(sub.Audio), ShouldEqual, "RIFFdata")
			})
		})

		Convey("When no file part is sent", func() {
			deps.err = app.ErrMissingAudio
			w := serve(mux, newUploadRequest(uploadForm{text: "hello"}))

			Convey("Then the service sees no audio and the client gets 400", func() {
				So(deps.submitted, ShouldHaveLength, 1)
				So(deps.submitted[0].Audio, ShouldBeNil)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeBody(w)["message"], ShouldEqual, "No file uploaded")
			})
		})

		Convey("When an empty file is sent", func() {
			w := serve(mux, newUploadRequest(uploadForm{text: "hello", withFile: true, filename: "empty.wav"}))

			Convey("Then the service sees a present but empty recording", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.submitted[0].Audio, ShouldNotBeNil)
				So(deps.submitted[0].Audio, ShouldHaveLength, 0)
			})
		})

		Convey("When the body exceeds the upload limit", func() {
			w := serve(mux, newUploadRequest(uploadForm{
				text: "hello", withFile: true, filename: "big.wav", audio: bytes.Repeat([]byte{1}, 8192),
			}))

			Convey("Then it is rejected before reaching the service", func() {
				So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
				So(decodeBody(w)["code"], ShouldEqual, "payload_too_large")
				So(deps.submitted, ShouldBeEmpty)
			})
		})

		Convey("When the service fails", func() {
			cases := []struct {
				err     error
				status  int
				code    string
				message string
			}{
				{app.ErrMissingText, http.StatusBadRequest, "bad_request", "No text provided"},
				{app.ErrMissingFilename, http.StatusBadRequest, "bad_request", "No file selected"},
				{fmt.Errorf("%w: %q", app.ErrUnsupportedLanguage, "fr"), http.StatusBadRequest, "invalid_language", "Invalid language"},
				{fmt.Errorf("%w: not a RIFF file", app.ErrInvalidAudio), http.StatusBadRequest, "invalid_audio", ""},
				{fmt.Errorf("%w: queue full", app.ErrBackpressure), http.StatusTooManyRequests, "backpressure", ""},
				{fmt.Errorf("%w: boom", app.ErrTranscription), http.StatusBadGateway, "upstream_error", ""},
				{fmt.Errorf("%w: boom", app.ErrSynthesis), http.StatusBadGateway, "upstream_error", ""},
				{fmt.Errorf("%w: %w", app.ErrTranscription, context.DeadlineExceeded), http.StatusGatewayTimeout, "timeout", ""},
				{fmt.Errorf("%w: disk full", app.ErrStorage), http.StatusInternalServerError, "internal_error", ""},
			}
			for _, tc := range cases {
				deps.err = tc.err
				w := serve(mux, newUploadRequest(uploadForm{
					text: "hello", withFile: true, filename: "take.wav", audio: []byte("x"),
				}))

				So(w.Code, ShouldEqual, tc.status)
				body := decodeBody(w)
				So(body["status"], ShouldEqual, "error")
				So(body["code"], ShouldEqual, tc.code)
				if tc.message != "" {
					So(body["message"], ShouldEqual, tc.message)
				}
			}
		})
	})
}

func TestServer_GetAudio(t *testing.T) {
	Convey("Given a server with one stored clip", t, func() {
		deps := &fakeDeps{files: map[string][]byte{"tts_abc_reference.wav": []byte("0123456789")}}
		mux := newTestMux(deps)

		Convey("When fetching the clip", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/get_audio/tts_abc_reference.wav", http.NoBody))

			Convey("Then its bytes are streamed with the stored content type", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "audio/wav")
				So(w.Body.String(), ShouldEqual, "0123456789")
			})
		})

		Convey("When fetching a byte range", func() {
			req := httptest.NewRequest(http.MethodGet, "/get_audio/tts_abc_reference.wav", http.NoBody)
			req.Header.Set("Range", "bytes=2-4")
			w := serve(mux, req)

			Convey("Then only the range is returned", func() {
				So(w.Code, ShouldEqual, http.StatusPartialContent)
				So(w.Body.String(), ShouldEqual, "234")
			})
		})

		Convey("When fetching an unknown clip", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/get_audio/missing.wav", http.NoBody))

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				body := decodeBody(w)
				So(body["status"], ShouldEqual, "error")
				So(body["message"], ShouldEqual, "File not found")
			})
		})
	})
}

package api

import "github.com/okian/parrot/pkg/logger"

const defaultMaxUploadBytes int64 = 16 << 20

// Option configures a Server.
type Option func(*Server)

// WithMaxUploadBytes caps the size of POST /upload_audio bodies.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

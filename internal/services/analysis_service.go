package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	apierrors "acadreport/internal/errors"
	"acadreport/internal/exporter"
	"acadreport/internal/infrastructure"
	"acadreport/internal/ingest"
	"acadreport/internal/match"
	"acadreport/pkg/contracts/domain"
)

// Upload is one spreadsheet handed to Analyze.
type Upload struct {
	Source   domain.Source
	Filename string
	Reader   io.Reader
}

// Session is the outcome of one analyze operation. Profiles is keyed by the
// normalized student key and never mutated after creation.
type Session struct {
	ID        string                            `json:"id"`
	CreatedAt time.Time                         `json:"created_at"`
	Summary   domain.MatchSummary               `json:"summary"`
	Profiles  map[string]*domain.StudentProfile `json:"-"`
}

// AnalysisService parses uploads, matches the two sources, and keeps the
// resulting sessions in memory. Sessions survive until evicted by a newer
// one beyond the retention cap.
type AnalysisService struct {
	logger  *slog.Logger
	metrics *infrastructure.Metrics
	roster  *exporter.RosterWriter

	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string // session ids, oldest first
	latest   string

	maxSessions int
	now         func() time.Time
}

// AnalysisOption configures the service.
type AnalysisOption func(*AnalysisService)

// WithAnalysisClock pins the session timestamps. Tests use it.
func WithAnalysisClock(now func() time.Time) AnalysisOption {
	return func(s *AnalysisService) { s.now = now }
}

// WithMaxSessions bounds the session store. Default is 16.
func WithMaxSessions(n int) AnalysisOption {
	return func(s *AnalysisService) { s.maxSessions = n }
}

// NewAnalysisService creates the analysis service. metrics may be nil.
func NewAnalysisService(logger *slog.Logger, metrics *infrastructure.Metrics, opts ...AnalysisOption) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &AnalysisService{
		logger:      logger.With(slog.String("component", "analysis_service")),
		metrics:     metrics,
		roster:      exporter.NewRosterWriter(logger),
		sessions:    make(map[string]*Session),
		maxSessions: 16,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze parses the uploads, joins them, and stores the result as a new
// session. At least one upload is required; a single source yields a session
// of partial profiles. Any parse or duplicate-key failure aborts the whole
// operation and leaves previous sessions untouched.
func (s *AnalysisService) Analyze(ctx context.Context, uploads []Upload) (*Session, error) {
	if len(uploads) == 0 {
		return nil, apierrors.ErrValidation("files", "at least one spreadsheet is required")
	}

	var results, attendance *ingest.RowSet
	for _, up := range uploads {
		format, err := ingest.FormatForFilename(up.Filename)
		if err != nil {
			s.countUpload(up.Source, "rejected")
			return nil, fmt.Errorf("%w: %s", apierrors.ErrUnsupportedFile, up.Filename)
		}

		set, err := ingest.Parse(up.Reader, format, up.Source)
		if err != nil {
			s.countUpload(up.Source, "parse_failed")
			if s.metrics != nil {
				s.metrics.ParseFailures.WithLabelValues(string(up.Source)).Inc()
			}
			return nil, err
		}
		s.countUpload(up.Source, "ok")

		switch up.Source {
		case domain.SourceResults:
			if results != nil {
				return nil, apierrors.ErrValidation("files", "more than one results file uploaded")
			}
			results = set
		case domain.SourceAttendance:
			if attendance != nil {
				return nil, apierrors.ErrValidation("files", "more than one attendance file uploaded")
			}
			attendance = set
		default:
			return nil, apierrors.ErrValidation("source", fmt.Sprintf("unknown source %q", up.Source))
		}

		s.logger.InfoContext(ctx, "upload parsed",
			slog.String("source", string(up.Source)),
			slog.String("filename", up.Filename),
			slog.Int("rows", len(set.Rows)),
		)
	}

	profiles, summary, err := match.Match(results, attendance)
	if err != nil {
		return nil, err
	}

	session := &Session{
		ID:        uuid.New().String(),
		CreatedAt: s.now().UTC(),
		Summary:   summary,
		Profiles:  profiles,
	}

	s.store(session)

	if s.metrics != nil {
		s.metrics.AnalysesTotal.Inc()
		s.metrics.StudentsMatched.Set(float64(summary.Total))
	}

	s.logger.InfoContext(ctx, "analysis completed",
		slog.String("session_id", session.ID),
		slog.Int("students", summary.Total),
		slog.Int("matched", summary.Matched),
		slog.Int("results_only", summary.ResultsOnly),
		slog.Int("attendance_only", summary.AttendanceOnly),
	)

	return session, nil
}

// Session returns the session with the given id.
func (s *AnalysisService) Session(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, apierrors.ErrSessionNotFound
	}
	return session, nil
}

// Latest returns the most recent session, or ErrNoDataLoaded when nothing
// has been analyzed yet.
func (s *AnalysisService) Latest() (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest == "" {
		return nil, apierrors.ErrNoDataLoaded
	}
	return s.sessions[s.latest], nil
}

// Students lists the profiles of a session ordered by student key.
func (s *AnalysisService) Students(sessionID string) ([]*domain.StudentProfile, error) {
	session, err := s.resolve(sessionID)
	if err != nil {
		return nil, err
	}

	keys := match.SortedKeys(session.Profiles)
	students := make([]*domain.StudentProfile, 0, len(keys))
	for _, k := range keys {
		students = append(students, session.Profiles[k])
	}
	return students, nil
}

// Student returns one profile, folding the id through the same key
// normalization the matcher applies.
func (s *AnalysisService) Student(sessionID, studentID string) (*domain.StudentProfile, error) {
	session, err := s.resolve(sessionID)
	if err != nil {
		return nil, err
	}

	p, ok := session.Profiles[domain.NormalizeKey(studentID)]
	if !ok {
		return nil, apierrors.ErrStudentNotFound
	}
	return p, nil
}

// ExportRoster writes the session roster as CSV.
func (s *AnalysisService) ExportRoster(sessionID string, w io.Writer) error {
	session, err := s.resolve(sessionID)
	if err != nil {
		return err
	}
	return s.roster.Write(w, session.Profiles, exporter.WriteOptions{BOMPrefix: true})
}

// resolve maps an empty sessionID to the latest session.
func (s *AnalysisService) resolve(sessionID string) (*Session, error) {
	if sessionID == "" {
		return s.Latest()
	}
	return s.Session(sessionID)
}

func (s *AnalysisService) store(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = session
	s.order = append(s.order, session.ID)
	s.latest = session.ID

	for len(s.order) > s.maxSessions {
		evicted := s.order[0]
		s.order = s.order[1:]
		delete(s.sessions, evicted)
	}
}

func (s *AnalysisService) countUpload(source domain.Source, outcome string) {
	if s.metrics != nil {
		s.metrics.UploadsTotal.WithLabelValues(string(source), outcome).Inc()
	}
}

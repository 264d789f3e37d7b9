package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/tempopipe/tempopipe/envelope"
)

// RotationPolicy bounds how large a single segment file is allowed to
// grow before Store starts a new one.
type RotationPolicy struct {
	MaxRecords int64
	MaxBytes   int64
}

// unbounded reports whether the policy never triggers rotation.
func (p RotationPolicy) unbounded() bool {
	return p.MaxRecords <= 0 && p.MaxBytes <= 0
}

func (p RotationPolicy) exceeded(records, bytes int64) bool {
	if p.MaxRecords > 0 && records >= p.MaxRecords {
		return true
	}
	if p.MaxBytes > 0 && bytes >= p.MaxBytes {
		return true
	}
	return false
}

// Store is an append-only sequence of persisted message records backed
// by segment files under dir, rotated per policy. Segments are named
// "<streamName>-NNNNNN.psi"; only one is ever open for writing.
//
// Rotation follows the statefile rename idiom: the file handle for the
// active segment is closed, then the next segment is staged as ".tmp"
// and renamed into place. Nothing observes a half-written segment name.
type Store struct {
	mu sync.Mutex

	dir        string
	streamName string
	policy     RotationPolicy
	logger     *log.Logger

	segment      int
	file         *os.File
	recordCount  int64
	segmentBytes int64
}

// Open creates (or resumes writing into) a segment store rooted at dir
// for the given stream name. If segments already exist, writing
// continues on the next fresh index after the highest one found: Open
// never truncates a previously written segment.
func Open(dir, streamName string, policy RotationPolicy, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	s := &Store{dir: dir, streamName: streamName, policy: policy, logger: logger}
	existing, err := s.SegmentPaths()
	if err != nil {
		return nil, err
	}
	if err := s.openSegment(len(existing)); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) segmentPath(n int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s-%06d.psi", s.streamName, n))
}

func (s *Store) openSegment(n int) error {
	tmp := s.segmentPath(n) + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, s.segmentPath(n)); err != nil {
		f.Close()
		return err
	}
	// Re-open for append since the handle above points at the renamed
	// inode's original name, which is fine on POSIX but not guaranteed
	// portable; reopening by the final path keeps this safe everywhere.
	f.Close()
	f, err = os.OpenFile(s.segmentPath(n), os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	s.segment = n
	s.file = f
	s.recordCount = 0
	s.segmentBytes = 0
	return nil
}

// Append writes one record, rotating to a new segment first if the
// current one has reached its policy limit.
func (s *Store) Append(env envelope.Envelope, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.policy.unbounded() && s.policy.exceeded(s.recordCount, s.segmentBytes) {
		if err := s.rotate(); err != nil {
			return err
		}
	}
	if err := WriteRecord(s.file, env, payload); err != nil {
		return err
	}
	s.recordCount++
	s.segmentBytes += int64(recordHeaderSize + len(payload))
	return nil
}

func (s *Store) rotate() error {
	if err := s.file.Sync(); err != nil {
		return err
	}
	if err := s.file.Close(); err != nil {
		return err
	}
	next := s.segment + 1
	s.logger.Debug("rotating segment", "stream", s.streamName, "from", s.segment, "to", next)
	return s.openSegment(next)
}

// Close flushes and closes the active segment.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Sync()
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	s.file = nil
	return err
}

// SegmentPaths returns every segment file path written so far, in
// creation order, by scanning dir for this stream's naming pattern.
// filepath.Glob returns matches in lexical order, which for the
// zero-padded "-NNNNNN.psi" suffix is also creation order.
func (s *Store) SegmentPaths() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ListSegments(s.dir, s.streamName)
}

// ListSegments scans dir for streamName's segment files without opening
// (or creating) a Store, for read-only consumers like the store
// exporter.
func ListSegments(dir, streamName string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, streamName+"-*.psi"))
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// CopySegments streams the raw bytes of every segment path, in order,
// to w. Segment files already hold the exact record wire format, so
// exporting a store is a plain concatenation rather than a
// decode/re-encode round trip.
func CopySegments(w io.Writer, paths []string) error {
	for _, p := range paths {
		if err := copyOneSegment(w, p); err != nil {
			return fmt.Errorf("store: copying segment %q: %w", p, err)
		}
	}
	return nil
}

func copyOneSegment(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

// Package artifact persists the trained pipeline, the fitted feature encoder
// and the evaluation metrics. Every write goes to a temporary file in the
// target directory first and is renamed into place, so a reader never sees a
// partially written artifact.
package artifact

import (
	"bytes"
	"encoding/json"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/YuminosukeSato/housecast/core/model"
	"github.com/YuminosukeSato/housecast/metrics"
	"github.com/YuminosukeSato/housecast/pkg/errors"
	"github.com/YuminosukeSato/housecast/pkg/log"
	"github.com/YuminosukeSato/housecast/preprocessing"
	"github.com/YuminosukeSato/housecast/sklearn/pipeline"
)

// Default file names inside the artifact directory.
const (
	DefaultModelFile   = "model.gob"
	DefaultEncoderFile = "encoder.gob"
	DefaultMetricsFile = "metrics.json"
)

// Store reads and writes artifacts under Dir on an afero filesystem.
type Store struct {
	fs     afero.Fs
	logger log.Logger

	Dir         string
	ModelFile   string
	EncoderFile string
	MetricsFile string
}

// NewStore returns a store using the default file names.
func NewStore(fsys afero.Fs, dir string, logger log.Logger) *Store {
	if logger == nil {
		logger = log.GetLoggerWithName("artifact")
	}
	return &Store{
		fs:          fsys,
		logger:      logger,
		Dir:         dir,
		ModelFile:   DefaultModelFile,
		EncoderFile: DefaultEncoderFile,
		MetricsFile: DefaultMetricsFile,
	}
}

// ModelPath returns the full path of the model artifact.
func (s *Store) ModelPath() string { return filepath.Join(s.Dir, s.ModelFile) }

// EncoderPath returns the full path of the encoder artifact.
func (s *Store) EncoderPath() string { return filepath.Join(s.Dir, s.EncoderFile) }

// MetricsPath returns the full path of the metrics record.
func (s *Store) MetricsPath() string { return filepath.Join(s.Dir, s.MetricsFile) }

// IsNotExist reports whether err was caused by a missing artifact.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// SaveModel writes the fitted pipeline with gob, replacing any previous model.
func (s *Store) SaveModel(p *pipeline.Pipeline) error {
	return s.writeAtomic(s.ModelPath(), func(w io.Writer) error {
		return model.Save(w, p)
	})
}

// LoadModel reads the pipeline written by SaveModel.
func (s *Store) LoadModel() (*pipeline.Pipeline, error) {
	p := &pipeline.Pipeline{}
	if err := s.read(s.ModelPath(), func(r io.Reader) error { return model.Load(r, p) }); err != nil {
		return nil, err
	}
	if p.State == nil || !p.State.IsFitted() {
		return nil, errors.NewConfigError(s.ModelPath(), "model artifact is not fitted", nil)
	}
	return p, nil
}

// SaveEncoder writes the fitted feature encoder with gob.
func (s *Store) SaveEncoder(e *preprocessing.FeatureEncoder) error {
	return s.writeAtomic(s.EncoderPath(), func(w io.Writer) error {
		return model.Save(w, e)
	})
}

// LoadEncoder reads the encoder written by SaveEncoder.
func (s *Store) LoadEncoder() (*preprocessing.FeatureEncoder, error) {
	e := &preprocessing.FeatureEncoder{}
	if err := s.read(s.EncoderPath(), func(r io.Reader) error { return model.Load(r, e) }); err != nil {
		return nil, err
	}
	if e.State == nil || !e.State.IsFitted() {
		return nil, errors.NewConfigError(s.EncoderPath(), "encoder artifact is not fitted", nil)
	}
	return e, nil
}

// SaveMetrics writes the metrics record as indented JSON.
func (s *Store) SaveMetrics(m metrics.Report) error {
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return errors.Wrap(err, "failed to encode metrics")
	}
	return s.writeAtomic(s.MetricsPath(), func(w io.Writer) error {
		_, err := w.Write(append(data, '\n'))
		return err
	})
}

// LoadMetrics reads the metrics record. A missing file satisfies IsNotExist.
func (s *Store) LoadMetrics() (metrics.Report, error) {
	var m metrics.Report
	err := s.read(s.MetricsPath(), func(r io.Reader) error {
		return json.NewDecoder(r).Decode(&m)
	})
	return m, err
}

func (s *Store) read(path string, decode func(io.Reader) error) error {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return errors.NewConfigError(path, "cannot read artifact", err)
	}
	if err := decode(bytes.NewReader(data)); err != nil {
		return errors.NewConfigError(path, "corrupt artifact", err)
	}
	s.logger.Debug("Artifact loaded", log.PathKey, path)
	return nil
}

// writeAtomic encodes into a temp file next to path and renames it over path.
func (s *Store) writeAtomic(path string, encode func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create artifact directory %s", dir)
	}
	tmp, err := afero.TempFile(s.fs, dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "failed to create temporary file for %s", path)
	}
	tmpName := tmp.Name()

	if err := encode(tmp); err != nil {
		_ = tmp.Close()
		s.removeTemp(tmpName)
		return errors.Wrapf(err, "failed to write %s", path)
	}
	if err := tmp.Close(); err != nil {
		s.removeTemp(tmpName)
		return errors.Wrapf(err, "failed to close %s", tmpName)
	}
	if err := s.fs.Rename(tmpName, path); err != nil {
		s.removeTemp(tmpName)
		return errors.Wrapf(err, "failed to move %s into place", path)
	}

	s.logger.Info("Artifact written", log.PathKey, path)
	return nil
}

func (s *Store) removeTemp(name string) {
	if err := s.fs.Remove(name); err != nil {
		s.logger.Warn("Failed to remove temporary file", err, log.PathKey, name)
	}
}

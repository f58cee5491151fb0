package model

import (
	"encoding/gob"
	"io"

	"github.com/YuminosukeSato/housecast/pkg/errors"
)

// Save はモデルをgob形式でwに書き込む
//
// Concrete types stored behind interfaces (pipeline steps) must be registered
// with gob.Register by the package that defines them.
//
// 使用例:
//
//	var buf bytes.Buffer
//	err := model.Save(&buf, pipe)
func Save(w io.Writer, m interface{}) error {
	if err := gob.NewEncoder(w).Encode(m); err != nil {
		return errors.Wrapf(err, "failed to encode %T", m)
	}
	return nil
}

// Load はrからgob形式のモデルを読み込む。mはポインタでなければならない。
//
// 使用例:
//
//	p := &pipeline.Pipeline{}
//	err := model.Load(f, p)
func Load(r io.Reader, m interface{}) error {
	if err := gob.NewDecoder(r).Decode(m); err != nil {
		return errors.Wrapf(err, "failed to decode %T", m)
	}
	return nil
}

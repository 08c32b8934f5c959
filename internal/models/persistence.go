// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sapcc/plantgen/internal/clustering"
	"github.com/sapcc/plantgen/internal/core"
)

// blobPath returns the canonical artifact location for a model version.
func blobPath(dir, modelVersion string) string {
	return filepath.Join(dir, fmt.Sprintf("model-%s.blob", modelVersion))
}

// saveModel writes the artifact atomically: a temp file in the same directory
// is fsynced, renamed over the final path, then the directory is fsynced so
// the rename survives a crash.
func saveModel(dir string, model *clustering.ClusterModel) error {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return core.PersistenceError{Op: "create model dir", Inner: err}
	}

	buf, err := json.Marshal(model)
	if err != nil {
		return core.PersistenceError{Op: "encode model", Inner: err}
	}

	finalPath := blobPath(dir, model.ModelVersion)
	tmpPath := finalPath + ".tmp"
	file, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return core.PersistenceError{Op: "create temp file", Inner: err}
	}
	_, err = file.Write(buf)
	if err == nil {
		err = file.Sync()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return core.PersistenceError{Op: "write temp file", Inner: err}
	}

	err = os.Rename(tmpPath, finalPath)
	if err != nil {
		os.Remove(tmpPath)
		return core.PersistenceError{Op: "rename model blob", Inner: err}
	}

	dirFile, err := os.Open(dir)
	if err != nil {
		return core.PersistenceError{Op: "open model dir", Inner: err}
	}
	err = dirFile.Sync()
	if closeErr := dirFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return core.PersistenceError{Op: "sync model dir", Inner: err}
	}
	return nil
}

// loadModel reads and validates a previously saved artifact. A missing file
// returns (nil, nil); the caller decides whether that is an error.
func loadModel(dir, modelVersion string) (*clustering.ClusterModel, error) {
	buf, err := os.ReadFile(blobPath(dir, modelVersion))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, core.PersistenceError{Op: "read model blob", Inner: err}
	}

	var model clustering.ClusterModel
	err = json.Unmarshal(buf, &model)
	if err != nil {
		return nil, core.PersistenceError{Op: "decode model blob", Inner: err}
	}
	err = model.Validate()
	if err != nil {
		return nil, core.PersistenceError{Op: "validate model blob", Inner: err}
	}
	return &model, nil
}

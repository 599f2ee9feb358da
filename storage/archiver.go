package storage

import (
	"bytes"
	"context"
	"fmt"

	"revise/llm"
	"revise/logger"
)

// Archived is one uploaded original.
type Archived struct {
	Key string
	URL string
}

// Archiver stores the original note images under a deterministic prefix.
type Archiver struct {
	store ObjectStore
	log   *logger.Logger
}

func NewArchiver(store ObjectStore, log *logger.Logger) *Archiver {
	return &Archiver{store: store, log: log.With("component", "archiver")}
}

// Archive uploads every file under active/<tag>/<chapter>/ and returns the
// keys in input order.
func (a *Archiver) Archive(ctx context.Context, in llm.IngestionInput) ([]Archived, error) {
	prefix, err := Prefix(in.ResourceTag, in.ChapterName)
	if err != nil {
		return nil, &llm.ValidationError{Field: "resource_tag", Reason: err.Error()}
	}
	out := make([]Archived, 0, len(in.Files))
	for _, f := range in.Files {
		data, err := f.Bytes()
		if err != nil {
			return nil, &llm.EncodingError{File: f.Name, Err: err}
		}
		key := prefix + SafeFilename(f.Name, data)
		contentType := f.MIMEType
		if contentType == "" {
			contentType = DetectContentType(f.Name, "")
		}
		url, err := a.store.Upload(ctx, key, contentType, bytes.NewReader(data))
		if err != nil {
			return nil, llm.External("object store", fmt.Errorf("upload %s: %w", key, err))
		}
		a.log.Debug("archived file", "key", key, "bytes", len(data))
		out = append(out, Archived{Key: key, URL: url})
	}
	return out, nil
}

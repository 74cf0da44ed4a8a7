// Package audiostore keeps synthesized audio somewhere a browser can fetch it.
//
// A Store turns audio bytes into an opaque reference that is persisted in the
// audio cache, and later resolves that reference into a URL for the client.
// References are URIs: data: for inline payloads, s3:// and nats:// for object
// stores. Each store passes through references it does not own, so cache
// entries written under one backend stay readable after switching to another.
package audiostore

import (
	"context"
	"encoding/base64"
	"path"
	"strings"

	"github.com/readback/readback/internal/common"
)

type Store interface {
	// Save stores audio under key and returns the reference to persist.
	Save(ctx context.Context, key string, audio []byte) (string, error)
	// URL resolves a reference returned by Save into a client-facing URL.
	URL(ctx context.Context, ref string) (string, error)
}

// Key derives the object key for audio of the given fingerprint and voice.
// Identical text spoken by the same voice maps to the same object.
func Key(voiceID, fingerprint string) string {
	return path.Join("audio", voiceID, fingerprint+".mp3")
}

const dataURIPrefix = "data:" + common.AudioContentType + ";base64,"

// Inline embeds the audio in a data URI. It needs no external storage.
type Inline struct{}

func (Inline) Save(_ context.Context, _ string, audio []byte) (string, error) {
	return dataURIPrefix + base64.StdEncoding.EncodeToString(audio), nil
}

func (Inline) URL(_ context.Context, ref string) (string, error) {
	return ref, nil
}

// IsInline reports whether ref is a data URI produced by Inline.
func IsInline(ref string) bool {
	return strings.HasPrefix(ref, "data:")
}

// splitRef parses "<scheme>://<bucket>/<key>".
func splitRef(ref, scheme string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(ref, scheme+"://")
	if !found {
		return "", "", false
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

package aws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"inscribe-server/core"
)

const (
	snapshotPrefix = "snapshots/"
	workspaceKey   = "workspace.json"
	preferencesKey = "preferences.json"
	historyKey     = "history.json"
)

type s3Store struct {
	s3Client *s3.Client
	bucket   string
}

// NewStore creates a new S3-based store.
func NewStore(bucketName string) *s3Store {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	s3Client := s3.NewFromConfig(cfg)

	return &s3Store{
		s3Client: s3Client,
		bucket:   bucketName,
	}
}

func (s *s3Store) snapshotKey(sessionID string) (string, error) {
	// Sanitize the session ID to prevent key traversal; it must be a simple
	// name, not a path.
	if path.Base(sessionID) != sessionID {
		return "", fmt.Errorf("invalid session id: must not be a path")
	}
	if sessionID == "" || sessionID == "." || sessionID == ".." {
		return "", fmt.Errorf("invalid session id: must not be empty or a dot directory")
	}
	return snapshotPrefix + sessionID, nil
}

func (s *s3Store) putObject(ctx context.Context, key string, data []byte) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	return err
}

// getObject returns (nil, nil) for a missing key.
func (s *s3Store) getObject(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get object %s: %v", key, err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// SnapshotStore implementation
func (s *s3Store) PutSnapshot(ctx context.Context, sessionID string, dataURI string) error {
	key, err := s.snapshotKey(sessionID)
	if err != nil {
		return err
	}
	if err := s.putObject(ctx, key, []byte(dataURI)); err != nil {
		return fmt.Errorf("failed to upload snapshot %s: %v", sessionID, err)
	}
	return nil
}

func (s *s3Store) GetSnapshot(ctx context.Context, sessionID string) (string, error) {
	key, err := s.snapshotKey(sessionID)
	if err != nil {
		return "", err
	}
	data, err := s.getObject(ctx, key)
	if err != nil {
		return "", err
	}
	if data == nil {
		return "", fmt.Errorf("snapshot for session %s not found", sessionID)
	}
	return string(data), nil
}

func (s *s3Store) DeleteSnapshot(ctx context.Context, sessionID string) error {
	key, err := s.snapshotKey(sessionID)
	if err != nil {
		return err
	}
	_, err = s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %v", sessionID, err)
	}
	return nil
}

func (s *s3Store) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %v", key, err)
	}
	return s.putObject(ctx, key, data)
}

// getJSON returns ok=false for a missing key.
func (s *s3Store) getJSON(ctx context.Context, key string, v any) (bool, error) {
	data, err := s.getObject(ctx, key)
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %v", key, err)
	}
	return true, nil
}

// WorkspaceStore implementation
func (s *s3Store) SaveWorkspace(ctx context.Context, ws *core.Workspace) error {
	return s.putJSON(ctx, workspaceKey, ws)
}

func (s *s3Store) LoadWorkspace(ctx context.Context) (*core.Workspace, error) {
	var ws core.Workspace
	ok, err := s.getJSON(ctx, workspaceKey, &ws)
	if err != nil || !ok {
		return nil, err
	}
	return &ws, nil
}

// PreferenceStore implementation
func (s *s3Store) SavePreferences(ctx context.Context, prefs *core.Preferences) error {
	return s.putJSON(ctx, preferencesKey, prefs)
}

func (s *s3Store) LoadPreferences(ctx context.Context) (*core.Preferences, error) {
	var prefs core.Preferences
	ok, err := s.getJSON(ctx, preferencesKey, &prefs)
	if err != nil || !ok {
		return nil, err
	}
	return &prefs, nil
}

// HistoryStore implementation: read-modify-write of one JSON object. History
// volumes are human-interaction sized, so the extra round trip is fine.
func (s *s3Store) AppendHistory(ctx context.Context, entries []core.RecognitionEntry) error {
	var existing []core.RecognitionEntry
	if _, err := s.getJSON(ctx, historyKey, &existing); err != nil {
		return err
	}
	return s.putJSON(ctx, historyKey, append(existing, entries...))
}

func (s *s3Store) ListHistory(ctx context.Context) ([]core.RecognitionEntry, error) {
	var entries []core.RecognitionEntry
	if _, err := s.getJSON(ctx, historyKey, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *s3Store) ClearHistory(ctx context.Context) error {
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(historyKey),
	})
	if err != nil {
		return fmt.Errorf("failed to clear history: %v", err)
	}
	return nil
}

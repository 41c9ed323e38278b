package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"journalapi/internal/model"
)

const textContentType = "text/plain; charset=utf-8"

// HistoryFiles stores the diary text of a history record as a UTF-8 file at
// {user}/history/{YYYY}/{MM}/{YYYY-MM-DD}.txt.
type HistoryFiles struct {
	store   ObjectStore
	baseURL string
	logger  *zap.Logger
}

// NewHistoryFiles builds text URLs as {baseURL}/{key}. An empty baseURL yields the
// virtual-hosted AWS form https://{bucket}.s3.{region}.amazonaws.com.
func NewHistoryFiles(store ObjectStore, bucket, region, baseURL string, logger *zap.Logger) *HistoryFiles {
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return &HistoryFiles{
		store:   store,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Key returns the object key of a user's diary file for date.
func Key(userID string, date model.Date) string {
	return fmt.Sprintf("%s/history/%04d/%02d/%s.txt", userID, date.Year(), int(date.Month()), date.String())
}

// Render lays out the file body. The tag line is omitted when there are no tags.
func Render(userID string, date model.Date, content string, tags []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "날짜: %s\n", date)
	fmt.Fprintf(&b, "사용자: %s\n", userID)
	if len(tags) > 0 {
		fmt.Fprintf(&b, "태그: %s\n", strings.Join(tags, ", "))
	}
	fmt.Fprintf(&b, "\n내용:\n%s", content)
	return b.String()
}

// URL returns the public URL of key.
func (f *HistoryFiles) URL(key string) string {
	return f.baseURL + "/" + key
}

// Save writes the diary file and returns its key and URL.
func (f *HistoryFiles) Save(ctx context.Context, userID string, date model.Date, content string, tags []string) (string, string, error) {
	key := Key(userID, date)
	body := []byte(Render(userID, date, content, tags))
	if err := f.put(ctx, key, body); err != nil {
		return "", "", err
	}
	f.logger.Info("history text saved", zap.String("key", key), zap.Int("bytes", len(body)))
	return key, f.URL(key), nil
}

func (f *HistoryFiles) put(ctx context.Context, key string, body []byte) error {
	if _, err := f.store.Put(ctx, key, bytes.NewReader(body), PutOptions{
		Size:        int64(len(body)),
		ContentType: textContentType,
	}); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Read returns the stored diary file of a user for date.
func (f *HistoryFiles) Read(ctx context.Context, userID string, date model.Date) (string, error) {
	b, err := f.read(ctx, Key(userID, date))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (f *HistoryFiles) read(ctx context.Context, key string) ([]byte, error) {
	rc, _, err := f.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return b, nil
}

// Delete removes key and reports whether it succeeded. Failures are logged, not returned.
func (f *HistoryFiles) Delete(ctx context.Context, key string) bool {
	if err := f.store.Delete(ctx, key); err != nil {
		f.logger.Warn("history object delete failed", zap.String("key", key), zap.Error(err))
		return false
	}
	f.logger.Info("history object deleted", zap.String("key", key))
	return true
}

// Exists reports whether key is present.
func (f *HistoryFiles) Exists(ctx context.Context, key string) (bool, error) {
	_, err := f.store.Stat(ctx, key)
	if errors.Is(err, ErrObjectNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Presign returns a time-limited GET URL for any key in the bucket.
func (f *HistoryFiles) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return f.store.PresignGet(ctx, key, ttl)
}

// Snapshot is the state of one key before it is overwritten.
type Snapshot struct {
	key     string
	existed bool
	body    []byte
}

// Snapshot captures key so a following write can be undone with Restore.
func (f *HistoryFiles) Snapshot(ctx context.Context, key string) (*Snapshot, error) {
	ok, err := f.Exists(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}
	snap := &Snapshot{key: key, existed: ok}
	if ok {
		if snap.body, err = f.read(ctx, key); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

// Restore puts back the captured object, or removes the key when there was none.
// Failures are logged, not returned.
func (f *HistoryFiles) Restore(ctx context.Context, snap *Snapshot) {
	if !snap.existed {
		f.Delete(ctx, snap.key)
		return
	}
	if err := f.put(ctx, snap.key, snap.body); err != nil {
		f.logger.Warn("history text restore failed", zap.String("key", snap.key), zap.Error(err))
		return
	}
	f.logger.Info("history text restored", zap.String("key", snap.key))
}

// Owns reports whether key lies under the user's own prefix.
func Owns(userID, key string) bool {
	return userID != "" && strings.HasPrefix(key, userID+"/") && !strings.Contains(key, "..")
}

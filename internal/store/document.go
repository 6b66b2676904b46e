package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"

	"github.com/madio/backend/internal/models"
)

// DocumentStore is the minimal contract this core needs from the
// mobile-authoritative store. Find* methods return (nil, nil) when the
// record is absent; errors mean the store itself misbehaved.
type DocumentStore interface {
	FindAccountByEmail(ctx context.Context, email string) (*models.AccountDoc, error)
	PutAccount(ctx context.Context, doc *models.AccountDoc) error
	PatchAccount(ctx context.Context, docKey string, fields map[string]any) error
	FindUnsyncedReports(ctx context.Context) ([]models.ReportDoc, error)
	PatchReport(ctx context.Context, docKey string, fields map[string]any) error
	GetConfig(ctx context.Context, key string) (string, bool, error)
	SetConfig(ctx context.Context, key, value string) error
}

const unsyncedReportsKey = "reports:unsynced"

// RedisDocumentStore keeps each document as a JSON value plus two secondary
// indexes: account:email:<email> -> docKey and the reports:unsynced set.
type RedisDocumentStore struct {
	client *redis.Client
}

func NewRedisDocumentStore(client *redis.Client) *RedisDocumentStore {
	return &RedisDocumentStore{client: client}
}

func accountKey(docKey string) string { return "account:" + docKey }
func accountEmailKey(email string) string {
	return "account:email:" + email
}
func reportKey(docKey string) string { return "report:" + docKey }
func configKey(key string) string    { return "config:" + key }

func (s *RedisDocumentStore) FindAccountByEmail(ctx context.Context, email string) (*models.AccountDoc, error) {
	docKey, err := s.client.Get(ctx, accountEmailKey(email)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup account index: %w", err)
	}

	raw, err := s.client.Get(ctx, accountKey(docKey)).Result()
	if err == redis.Nil {
		// Dangling index entry; treat as absent.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load account %s: %w", docKey, err)
	}

	var doc models.AccountDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode account %s: %w", docKey, err)
	}
	doc.DocKey = docKey
	return &doc, nil
}

func (s *RedisDocumentStore) PutAccount(ctx context.Context, doc *models.AccountDoc) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, accountKey(doc.DocKey), raw, 0).Err(); err != nil {
		return fmt.Errorf("store account %s: %w", doc.DocKey, err)
	}
	if err := s.client.Set(ctx, accountEmailKey(doc.Email), doc.DocKey, 0).Err(); err != nil {
		return fmt.Errorf("index account %s: %w", doc.DocKey, err)
	}
	return nil
}

func (s *RedisDocumentStore) PatchAccount(ctx context.Context, docKey string, fields map[string]any) error {
	return s.patchDocument(ctx, accountKey(docKey), fields)
}

func (s *RedisDocumentStore) FindUnsyncedReports(ctx context.Context) ([]models.ReportDoc, error) {
	docKeys, err := s.client.SMembers(ctx, unsyncedReportsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list unsynced reports: %w", err)
	}

	reports := make([]models.ReportDoc, 0, len(docKeys))
	for _, docKey := range docKeys {
		raw, err := s.client.Get(ctx, reportKey(docKey)).Result()
		if err == redis.Nil {
			// The document vanished under its index entry; drop the entry.
			log.Printf("[STORE] Unsynced index points at missing report %s, removing", docKey)
			s.client.SRem(ctx, unsyncedReportsKey, docKey)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load report %s: %w", docKey, err)
		}

		var doc models.ReportDoc
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			log.Printf("[STORE] Skipping undecodable report %s: %v", docKey, err)
			continue
		}
		doc.DocKey = docKey
		reports = append(reports, doc)
	}
	return reports, nil
}

func (s *RedisDocumentStore) PatchReport(ctx context.Context, docKey string, fields map[string]any) error {
	if err := s.patchDocument(ctx, reportKey(docKey), fields); err != nil {
		return err
	}
	if synced, ok := fields["syncedToRelational"].(bool); ok && synced {
		if err := s.client.SRem(ctx, unsyncedReportsKey, docKey).Err(); err != nil {
			return fmt.Errorf("unindex report %s: %w", docKey, err)
		}
	}
	return nil
}

func (s *RedisDocumentStore) GetConfig(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, configKey(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load config %s: %w", key, err)
	}
	return value, true, nil
}

func (s *RedisDocumentStore) SetConfig(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, configKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("store config %s: %w", key, err)
	}
	return nil
}

// patchDocument merges fields into the stored JSON object. The read-merge-write
// is not atomic; the stores tolerate this because every caller retries via an
// explicit operator action.
func (s *RedisDocumentStore) patchDocument(ctx context.Context, key string, fields map[string]any) error {
	raw, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return fmt.Errorf("patch %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("patch %s: %w", key, err)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("patch %s: decode: %w", key, err)
	}
	for k, v := range fields {
		doc[k] = v
	}

	merged, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("patch %s: encode: %w", key, err)
	}
	if err := s.client.Set(ctx, key, merged, 0).Err(); err != nil {
		return fmt.Errorf("patch %s: write: %w", key, err)
	}
	return nil
}

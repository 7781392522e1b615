package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/KarthikHK-01/queuectl"
	"github.com/KarthikHK-01/queuectl/settings"
)

// GetSetting returns the value for key.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var m configModel
	err := s.db.Collection(colConfig).FindOne(ctx, bson.M{"_id": key}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return "", queuectl.ErrConfigNotFound
		}
		return "", unavailable("get setting", err)
	}
	return m.Value, nil
}

// ListSettings returns every entry ordered by key.
func (s *Store) ListSettings(ctx context.Context) ([]settings.Entry, error) {
	cursor, err := s.db.Collection(colConfig).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, unavailable("list settings", err)
	}

	var models []configModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, unavailable("list settings", err)
	}

	entries := make([]settings.Entry, 0, len(models))
	for _, m := range models {
		entries = append(entries, settings.Entry{Key: m.Key, Value: m.Value})
	}
	return entries, nil
}

// SetSetting inserts or replaces the value for key.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.Collection(colConfig).UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"value": value}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return unavailable("set setting", err)
	}
	return nil
}

// DeleteSetting removes key.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	res, err := s.db.Collection(colConfig).DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return unavailable("delete setting", err)
	}
	if res.DeletedCount == 0 {
		return queuectl.ErrConfigNotFound
	}
	return nil
}

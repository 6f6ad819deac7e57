package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskchat/internal/database"
)

func mongoUpsert() *options.UpdateOptions {
	return options.Update().SetUpsert(true)
}

// archivedConversation is the cold-storage document shape.
type archivedConversation struct {
	ConversationID string     `bson:"conversation_id"`
	UserID         string     `bson:"user_id"`
	CreatedAt      time.Time  `bson:"created_at"`
	UpdatedAt      time.Time  `bson:"updated_at"`
	DeletedAt      *time.Time `bson:"deleted_at"`
	ArchivedAt     time.Time  `bson:"archived_at"`
}

type archivedMessage struct {
	MessageID      int64      `bson:"message_id"`
	ConversationID string     `bson:"conversation_id"`
	UserID         string     `bson:"user_id"`
	Role           string     `bson:"role"`
	Content        string     `bson:"content"`
	CreatedAt      time.Time  `bson:"created_at"`
	DeletedAt      *time.Time `bson:"deleted_at"`
}

// ConversationArchivalJob copies conversations soft-deleted longer
// than the retention period, with their messages, into MongoDB cold
// storage. Archived rows are stamped in SQLite so a retried run never
// produces duplicate documents.
type ConversationArchivalJob struct {
	db            *database.DB
	conversations *mongo.Collection
	messages      *mongo.Collection
	retention     time.Duration
}

// NewConversationArchivalJob creates the archival job. A nil mongoDB
// disables it.
func NewConversationArchivalJob(db *database.DB, mongoDB *database.MongoDB, retention time.Duration) *ConversationArchivalJob {
	j := &ConversationArchivalJob{db: db, retention: retention}
	if mongoDB != nil {
		j.conversations = mongoDB.Database().Collection(database.CollectionArchivedConversations)
		j.messages = mongoDB.Database().Collection(database.CollectionArchivedMessages)
	}
	return j
}

// Run archives all eligible conversations once.
func (j *ConversationArchivalJob) Run(ctx context.Context) error {
	if j.conversations == nil {
		log.Println("[ARCHIVAL] Conversation archival disabled (requires MongoDB)")
		return nil
	}

	log.Println("[ARCHIVAL] Starting conversation archival...")
	startTime := time.Now()
	cutoff := startTime.Add(-j.retention)

	ids, err := j.eligibleConversationIDs(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("listing archival candidates: %w", err)
	}

	archived := 0
	for _, id := range ids {
		if err := j.archiveOne(ctx, id, startTime); err != nil {
			log.Printf("[ARCHIVAL] Failed to archive conversation %s: %v", id, err)
			continue
		}
		archived++
	}

	log.Printf("[ARCHIVAL] Archival complete: %d of %d conversations in %v",
		archived, len(ids), time.Since(startTime))
	return nil
}

func (j *ConversationArchivalJob) eligibleConversationIDs(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id FROM conversations
		WHERE deleted_at IS NOT NULL AND deleted_at <= ? AND archived_at IS NULL`,
		cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// archiveOne copies one conversation and its messages to cold storage,
// then stamps archived_at. The upsert on conversation_id makes a rerun
// after a partial failure converge instead of duplicating.
func (j *ConversationArchivalJob) archiveOne(ctx context.Context, conversationID string, now time.Time) error {
	var conv archivedConversation
	err := j.db.QueryRowContext(ctx, `
		SELECT id, user_id, created_at, updated_at, deleted_at
		FROM conversations WHERE id = ?`, conversationID).
		Scan(&conv.ConversationID, &conv.UserID, &conv.CreatedAt, &conv.UpdatedAt, &conv.DeletedAt)
	if err != nil {
		return fmt.Errorf("loading conversation: %w", err)
	}
	conv.ArchivedAt = now

	msgs, err := j.loadMessages(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("loading messages: %w", err)
	}

	filter := bson.M{"conversation_id": conversationID}
	update := bson.M{"$set": conv}
	opts := mongoUpsert()
	if _, err := j.conversations.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("writing conversation document: %w", err)
	}

	for _, m := range msgs {
		mFilter := bson.M{"conversation_id": conversationID, "message_id": m.MessageID}
		if _, err := j.messages.UpdateOne(ctx, mFilter, bson.M{"$set": m}, opts); err != nil {
			return fmt.Errorf("writing message document %d: %w", m.MessageID, err)
		}
	}

	res, err := j.db.ExecContext(ctx, `
		UPDATE conversations SET archived_at = ? WHERE id = ? AND archived_at IS NULL`,
		now, conversationID)
	if err != nil {
		return fmt.Errorf("stamping archived_at: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Another run stamped it between our SELECT and UPDATE; the
		// upserts above were idempotent, so that is fine.
		return nil
	}

	log.Printf("[ARCHIVAL] Archived conversation %s (%d messages)", conversationID, len(msgs))
	return nil
}

func (j *ConversationArchivalJob) loadMessages(ctx context.Context, conversationID string) ([]archivedMessage, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, conversation_id, user_id, role, content, created_at, deleted_at
		FROM messages WHERE conversation_id = ? ORDER BY id ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []archivedMessage
	for rows.Next() {
		var m archivedMessage
		var deletedAt sql.NullTime
		if err := rows.Scan(&m.MessageID, &m.ConversationID, &m.UserID, &m.Role, &m.Content, &m.CreatedAt, &deletedAt); err != nil {
			return nil, err
		}
		if deletedAt.Valid {
			t := deletedAt.Time
			m.DeletedAt = &t
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

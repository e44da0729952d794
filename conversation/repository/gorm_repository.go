package repository

import (
	"context"
	"errors"
	"fmt"

	"conversation-webhook/backend/conversation/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AutoMigrate creates or updates the conversation tables
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Conversation{}, &models.Message{}); err != nil {
		return fmt.Errorf("failed to migrate conversation tables: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_messages_conversation_timestamp ON messages(conversation_id, timestamp)").Error; err != nil {
		return fmt.Errorf("failed to create message index: %w", err)
	}
	return nil
}

type GormConversationRepository struct {
	db *gorm.DB
}

func NewGormConversationRepository(db *gorm.DB) *GormConversationRepository {
	return &GormConversationRepository{db: db}
}

func (r *GormConversationRepository) Transaction(ctx context.Context, fn func(tx ConversationTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormConversationTx{db: tx})
	})
}

func (r *GormConversationRepository) GetWithMessages(ctx context.Context, id string) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp ASC").Order("id ASC")
		}).
		First(&conversation, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrConversationNotFound, id)
		}
		return nil, err
	}
	return &conversation, nil
}

func (r *GormConversationRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

type gormConversationTx struct {
	db *gorm.DB
}

func (t *gormConversationTx) GetForUpdate(id string) (*models.Conversation, error) {
	var conversation models.Conversation
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&conversation, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrConversationNotFound, id)
		}
		return nil, err
	}
	return &conversation, nil
}

func (t *gormConversationTx) CreateConversation(conversation *models.Conversation) error {
	var count int64
	if err := t.db.Model(&models.Conversation{}).Where("id = ?", conversation.ID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", models.ErrDuplicateConversation, conversation.ID)
	}

	// a concurrent insert can still win the race; the unique key reports it
	err := t.db.Create(conversation).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s", models.ErrDuplicateConversation, conversation.ID)
	}
	return err
}

func (t *gormConversationTx) CloseConversation(id string) error {
	result := t.db.Model(&models.Conversation{}).
		Where("id = ?", id).
		Update("status", models.StatusClosed)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", models.ErrConversationNotFound, id)
	}
	return nil
}

func (t *gormConversationTx) CreateMessage(message *models.Message) error {
	var owners int64
	if err := t.db.Model(&models.Conversation{}).Where("id = ?", message.ConversationID).Count(&owners).Error; err != nil {
		return err
	}
	if owners == 0 {
		return fmt.Errorf("%w: %s", models.ErrConversationNotFound, message.ConversationID)
	}

	var count int64
	if err := t.db.Model(&models.Message{}).Where("id = ?", message.ID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", models.ErrDuplicateMessage, message.ID)
	}

	err := t.db.Create(message).Error
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s", models.ErrDuplicateMessage, message.ID)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %s", models.ErrConversationNotFound, message.ConversationID)
	}
	return err
}

package store

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/coursebook/scopedauth/models"
)

// UserStore manages users, groups and model-level permission grants. User
// creation is an explicit factory call; there are no implicit creation
// hooks, so bulk imports behave the same as single creates.
type UserStore struct{ DB *gorm.DB }

func NewUserStore(db *gorm.DB) *UserStore { return &UserStore{DB: db} }

// CreateUser persists a new user. Username is required; new users are
// active by default.
func (s *UserStore) CreateUser(ctx context.Context, user *models.User) error {
	if strings.TrimSpace(user.Username) == "" {
		return models.ErrInvalidData
	}
	if user.ID == "" {
		user.ID = models.NewID()
	}
	user.CreatedAt = time.Now().UTC()
	user.IsActive = true
	return s.DB.WithContext(ctx).Create(user).Error
}

// GetUser loads a user by id.
func (s *UserStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// GetUserByUsername loads a user by username.
func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// CreateGroup persists a new group.
func (s *UserStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if strings.TrimSpace(group.Name) == "" {
		return models.ErrInvalidData
	}
	if group.ID == "" {
		group.ID = models.NewID()
	}
	group.CreatedAt = time.Now().UTC()
	return s.DB.WithContext(ctx).Create(group).Error
}

// AddUserToGroup links a user to a group.
func (s *UserStore) AddUserToGroup(ctx context.Context, userID, groupID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Group{}).Where("id = ?", groupID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return models.ErrNotFound
		}
		row := models.UserGroup{ID: models.NewID(), UserID: userID, GroupID: groupID}
		return tx.Create(&row).Error
	})
}

// GrantUserPermission grants a model-level permission directly to a user.
func (s *UserStore) GrantUserPermission(ctx context.Context, userID, perm string) error {
	row := models.UserPermission{ID: models.NewID(), UserID: userID, Permission: perm}
	return s.DB.WithContext(ctx).Create(&row).Error
}

// GrantGroupPermission grants a model-level permission to a group.
func (s *UserStore) GrantGroupPermission(ctx context.Context, groupID, perm string) error {
	row := models.GroupPermission{ID: models.NewID(), GroupID: groupID, Permission: perm}
	return s.DB.WithContext(ctx).Create(&row).Error
}

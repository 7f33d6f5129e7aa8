package models

import "time"

// User is the acting identity for permission checks and the subject of role
// assignments. Model-level permissions come from user_permissions plus the
// permissions of every group the user belongs to.
type User struct {
	ID          string    `gorm:"column:id;primaryKey" json:"id"`
	Username    string    `gorm:"column:username;uniqueIndex" json:"username"`
	DisplayName string    `gorm:"column:display_name" json:"display_name"`
	IsActive    bool      `gorm:"column:is_active" json:"is_active"`
	Superuser   bool      `gorm:"column:superuser" json:"superuser"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

func (User) TableName() string { return "users" }

// IsAuthenticated reports whether u represents a logged-in user. A nil user
// is the anonymous caller.
func (u *User) IsAuthenticated() bool { return u != nil && u.ID != "" }

// Group bundles model-level permissions for its members.
type Group struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Name      string    `gorm:"column:name;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (Group) TableName() string { return "groups" }

// UserGroup links a user to a group.
type UserGroup struct {
	ID      string `gorm:"column:id;primaryKey"`
	UserID  string `gorm:"column:user_id;index"`
	GroupID string `gorm:"column:group_id;index"`
}

func (UserGroup) TableName() string { return "user_groups" }

// UserPermission grants a model-level permission directly to a user.
type UserPermission struct {
	ID         string `gorm:"column:id;primaryKey"`
	UserID     string `gorm:"column:user_id;index"`
	Permission string `gorm:"column:permission"`
}

func (UserPermission) TableName() string { return "user_permissions" }

// GroupPermission grants a model-level permission to every member of a group.
type GroupPermission struct {
	ID         string `gorm:"column:id;primaryKey"`
	GroupID    string `gorm:"column:group_id;index"`
	Permission string `gorm:"column:permission"`
}

func (GroupPermission) TableName() string { return "group_permissions" }

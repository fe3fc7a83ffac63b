package notification

import (
	"database/sql"
	"time"
)

type Notification struct {
	ID        int64          `json:"id" db:"id"`
	UserID    int64          `json:"user_id" db:"user_id"`
	Title     string         `json:"title" db:"title"`
	Message   string         `json:"message" db:"message"`
	Link      sql.NullString `json:"link,omitempty" db:"link"`
	IsRead    bool           `json:"is_read" db:"is_read"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// Announcement is a ministry-wide message, optionally limited to one role.
type Announcement struct {
	ID             int64          `json:"id" db:"id"`
	Title          string         `json:"title" db:"title"`
	Body           string         `json:"body" db:"body"`
	AudienceRoleID sql.NullInt64  `json:"audience_role_id" db:"audience_role_id"`
	IsPublished    bool           `json:"is_published" db:"is_published"`
	PublishedAt    sql.NullTime   `json:"published_at" db:"published_at"`
	CreatedBy      sql.NullInt64  `json:"created_by" db:"created_by"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	AuthorName     sql.NullString `json:"author_name,omitempty" db:"-"`
}

// FAQ entry shown on the help page.
type FAQ struct {
	ID        int64  `json:"id" db:"id"`
	Question  string `json:"question" db:"question"`
	Answer    string `json:"answer" db:"answer"`
	SortOrder int    `json:"sort_order" db:"sort_order"`
}

// DTOs

type CreateAnnouncementRequest struct {
	Title        string `json:"title" binding:"required,max=255"`
	Body         string `json:"body" binding:"required"`
	AudienceRole string `json:"audience_role"`
	Publish      bool   `json:"publish"`
}

type ListFilters struct {
	UnreadOnly bool `form:"unread_only"`
	Limit      int  `form:"limit"`
	Offset     int  `form:"offset"`
}

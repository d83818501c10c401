package dto

import "github.com/yigit/assignhub/internal/app/models"

// NotificationFilter narrows the caller's notification feed
type NotificationFilter struct {
	Limit     int                     `form:"limit" binding:"omitempty,min=1,max=200"`
	IsRead    *bool                   `form:"isRead"`
	Type      models.NotificationType `form:"type"`
	SortBy    string                  `form:"sortBy" binding:"omitempty,oneof=createdAt title type isRead"`
	SortOrder string                  `form:"sortOrder" binding:"omitempty,oneof=asc desc ASC DESC"`
}

// NotificationListResponse is the caller's feed with read counters
type NotificationListResponse struct {
	TotalCount    int                    `json:"totalCount" example:"12"`
	UnreadCount   int                    `json:"unreadCount" example:"3"`
	ReadCount     int                    `json:"readCount" example:"9"`
	Notifications []*models.Notification `json:"notifications"`
}

// MarkAllReadResponse reports how many notifications changed state
type MarkAllReadResponse struct {
	Updated int64 `json:"updated" example:"3"`
}

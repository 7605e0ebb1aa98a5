package models

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"

	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusDone       = "done"

	SyncPending = "pending"
)

type Task struct {
	ID          uint     `gorm:"column:id;primaryKey" json:"id"`
	MeetingID   string   `gorm:"column:meeting_id;type:uuid;index;not null" json:"meeting_id"`
	Meeting     *Meeting `gorm:"foreignKey:MeetingID;constraint:OnDelete:CASCADE" json:"-"`
	Title       string   `gorm:"column:title;type:text" json:"title"`
	Description string   `gorm:"column:description;type:text" json:"description"`
	Owner       string   `gorm:"column:owner;type:text" json:"owner"`
	DueDate     string   `gorm:"column:due_date;type:text" json:"due_date"` // "" means unknown
	Priority    string   `gorm:"column:priority;type:text" json:"priority"` // low|medium|high
	Status      string   `gorm:"column:status;type:text" json:"status"`     // todo|in_progress|done

	NotionSyncStatus string `gorm:"column:notion_sync_status;type:text;default:pending" json:"notion_sync_status"`
}

func (Task) TableName() string { return "tasks" }

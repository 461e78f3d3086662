package dispatchlog

import (
	"time"

	"gorm.io/gorm"
)

// Outcome values recorded per delivery attempt resolution.
const (
	StatusSent     = "sent"
	StatusRequeued = "requeued"
	StatusFailed   = "failed"
)

// Entry is one row in the dispatch audit log: the terminal outcome of a job,
// or an intermediate requeue. It exists for operators; the queue protocol
// never reads it back.
type Entry struct {
	ID          uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	JobID       string         `json:"job_id" gorm:"type:varchar(64);not null;index"`
	OrderNumber string         `json:"order_number" gorm:"type:varchar(64);not null;index"`
	EmailType   string         `json:"email_type" gorm:"type:varchar(32);not null"`
	Recipient   string         `json:"recipient" gorm:"type:varchar(255);not null"`
	Status      string         `json:"status" gorm:"type:varchar(16);not null"`
	ErrorMsg    string         `json:"error_msg,omitempty" gorm:"type:text"`
	Attempts    int            `json:"attempts"`
	CreatedAt   time.Time      `json:"created_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Entry) TableName() string {
	return "dispatch_logs"
}

// Recorder is what the worker needs from the audit log. Kept small so tests
// can substitute a fake.
type Recorder interface {
	Record(entry *Entry) error
}

// Repo persists and queries dispatch log entries.
type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Record(entry *Entry) error {
	return r.db.Create(entry).Error
}

// List returns entries newest first with offset/limit pagination, plus the
// total row count.
func (r *Repo) List(offset, limit int) ([]Entry, int64, error) {
	var total int64
	if err := r.db.Model(&Entry{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []Entry
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *Repo) Get(id uint) (*Entry, error) {
	var entry Entry
	if err := r.db.First(&entry, id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

package order

import (
	"time"

	"github.com/gofrs/uuid"
)

// Status is the fulfillment state of an order. It moves monotonically
// through the pipeline; only the admin correction path may set it freely.
type Status string

const (
	StatusPaymentPending Status = "payment_pending"
	StatusProcessing     Status = "processing"
	StatusReview         Status = "review"
	StatusCompleted      Status = "completed"
)

func (s Status) String() string {
	return string(s)
}

// PaymentStatus transitions only unpaid -> pending -> paid, never backward.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

func (ps PaymentStatus) String() string {
	return string(ps)
}

// FileType distinguishes what stage of the pipeline a stored document
// belongs to.
type FileType string

const (
	FileSource      FileType = "source"
	FileWatermarked FileType = "watermarked"
	FileFinal       FileType = "final"
)

type OrderFile struct {
	ID         uuid.UUID `json:"id" db:"id"`
	OrderID    uuid.UUID `json:"order_id" db:"order_id"`
	FilePath   string    `json:"file_path" db:"file_path"`
	FileType   FileType  `json:"file_type" db:"file_type"`
	PageCount  int       `json:"page_count" db:"page_count"`
	UploadedAt time.Time `json:"uploaded_at" db:"uploaded_at"`
}

// TimelineEntry is one row of the append-only status history.
type TimelineEntry struct {
	ID        uuid.UUID `json:"id" db:"id"`
	OrderID   uuid.UUID `json:"order_id" db:"order_id"`
	Status    Status    `json:"status" db:"status"`
	Notes     string    `json:"notes,omitempty" db:"notes"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Order struct {
	ID                 uuid.UUID     `json:"id" db:"id"`
	UserID             uuid.UUID     `json:"user_id" db:"user_id"`
	Status             Status        `json:"status" db:"status"`
	PaymentStatus      PaymentStatus `json:"payment_status" db:"payment_status"`
	Files              []OrderFile   `json:"files" db:"-"`
	UrgencyDays        int           `json:"urgency_days" db:"urgency_days"`
	PhysicalCopy       bool          `json:"physical_copy" db:"physical_copy"`
	HardCopyAddress    string        `json:"hard_copy_address,omitempty" db:"hard_copy_address"`
	PageCountEstimated int           `json:"page_count_estimated" db:"page_count_estimated"`
	PageCountVerified  *int          `json:"page_count_verified,omitempty" db:"page_count_verified"`
	OriginalPrice      int64         `json:"original_price" db:"original_price"`
	FinalPrice         int64         `json:"final_price" db:"final_price"`
	Currency           string        `json:"currency" db:"currency"`
	DuitkuReference    string        `json:"duitku_reference,omitempty" db:"duitku_reference"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" db:"updated_at"`
}

var allowedTransitions = map[Status]map[Status]bool{
	StatusPaymentPending: {
		StatusProcessing: true,
	},
	StatusProcessing: {
		StatusReview: true,
	},
	StatusReview: {
		StatusCompleted: true,
	},
	StatusCompleted: {},
}

// CanTransition reports whether the pipeline allows moving from one status
// to the next. Admin corrections go through the admin update path, which
// bypasses this map deliberately.
func CanTransition(from, to Status) bool {
	next, ok := allowedTransitions[from]
	return ok && next[to]
}

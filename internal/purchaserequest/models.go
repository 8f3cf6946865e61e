package purchaserequest

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"procureflow/back-office/back-office-backend/pkg/docstatus"
)

// DocType is the document type code used in numbering and notifications.
const DocType = "PR"

// PurchaseRequest is a purchase request header. The workflow columns
// (user_action, workflow_history and the stage pointers) are owned by the
// transition coordinator; drafts may edit the business fields only.
type PurchaseRequest struct {
	ID               uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PRNo             string           `gorm:"uniqueIndex;not null" json:"pr_no"`
	DocStatus        docstatus.Status `gorm:"not null;default:'draft';index" json:"doc_status"`
	DocVersion       int              `gorm:"not null;default:1" json:"doc_version"`
	WorkflowID       uuid.UUID        `gorm:"type:uuid;not null" json:"workflow_id"`
	CurrentStage     string           `gorm:"index" json:"workflow_current_stage"`
	PreviousStage    string           `json:"workflow_previous_stage"`
	NextStage        string           `json:"workflow_next_stage"`
	UserAction       datatypes.JSON   `json:"user_action"`
	LastAction       string           `json:"last_action"`
	LastActionAt     *time.Time       `json:"last_action_at"`
	LastActionByID   string           `json:"last_action_by_id"`
	LastActionByName string           `json:"last_action_by_name"`
	WorkflowHistory  datatypes.JSON   `json:"workflow_history"`
	RequestorID      string           `gorm:"not null;index" json:"requestor_id"`
	RequestorName    string           `json:"requestor_name"`
	DepartmentID     string           `gorm:"index" json:"department_id"`
	Purpose          string           `json:"purpose"`
	NeededBy         *time.Time       `json:"needed_by"`
	TotalAmount      float64          `json:"total_amount"`
	Currency         string           `gorm:"default:'USD'" json:"currency"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	DeletedAt        gorm.DeletedAt   `gorm:"index" json:"-"`

	Items []PurchaseRequestItem `gorm:"foreignKey:PurchaseRequestID" json:"items"`
}

func (PurchaseRequest) TableName() string {
	return "purchase_requests"
}

// PurchaseRequestItem is one line of a purchase request with its two
// per-line ledgers stored as JSON columns.
type PurchaseRequestItem struct {
	ID                 uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PurchaseRequestID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"purchase_request_id"`
	LineNo             int            `gorm:"not null" json:"line_no"`
	ItemCode           string         `json:"item_code"`
	Description        string         `gorm:"not null" json:"description"`
	Quantity           float64        `gorm:"not null" json:"qty"`
	ApprovedQty        float64        `json:"approved_qty"`
	UnitPrice          float64        `json:"unit_price"`
	UOM                string         `json:"uom"`
	StagesStatus       datatypes.JSON `json:"stages_status"`
	History            datatypes.JSON `json:"history"`
	CurrentStageStatus string         `json:"current_stage_status"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func (PurchaseRequestItem) TableName() string {
	return "purchase_request_items"
}

package storerequisition

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"procureflow/back-office/back-office-backend/pkg/docstatus"
)

// DocType is the document type code used in numbering and notifications.
const DocType = "SR"

// StoreRequisition is a request to draw stock items from a store. It rides
// the same approval engine as purchase requests with a leaner line shape.
type StoreRequisition struct {
	ID               uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SRNo             string           `gorm:"uniqueIndex;not null" json:"sr_no"`
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
	StoreID          string           `gorm:"index" json:"store_id"`
	Purpose          string           `json:"purpose"`
	TotalQty         float64          `json:"total_qty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	DeletedAt        gorm.DeletedAt   `gorm:"index" json:"-"`

	Items []StoreRequisitionItem `gorm:"foreignKey:StoreRequisitionID" json:"items"`
}

func (StoreRequisition) TableName() string {
	return "store_requisitions"
}

// StoreRequisitionItem is one requested stock line with its two ledgers.
type StoreRequisitionItem struct {
	ID                 uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StoreRequisitionID uuid.UUID      `gorm:"type:uuid;not null;index" json:"store_requisition_id"`
	LineNo             int            `gorm:"not null" json:"line_no"`
	ItemCode           string         `gorm:"not null" json:"item_code"`
	Description        string         `json:"description"`
	Quantity           float64        `gorm:"not null" json:"qty"`
	IssuedQty          float64        `json:"issued_qty"`
	UOM                string         `json:"uom"`
	StagesStatus       datatypes.JSON `json:"stages_status"`
	History            datatypes.JSON `json:"history"`
	CurrentStageStatus string         `json:"current_stage_status"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func (StoreRequisitionItem) TableName() string {
	return "store_requisition_items"
}

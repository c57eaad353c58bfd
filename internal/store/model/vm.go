package model

import (
	"time"

	"github.com/dcm-project/openstack-service-provider/internal/state"
)

// VM is the persisted record of a virtual machine. The surrogate ID stays
// internal; UUID is the externally visible identifier. ProviderID is the
// provider's own identifier for the hosted instance and is null until the
// remote resource exists.
type VM struct {
	ID   uint   `gorm:"primaryKey;autoIncrement"`
	UUID string `gorm:"type:varchar(36);uniqueIndex;not null"`
	Name string `gorm:"size:255;not null;index"`

	ProviderID *string `gorm:"type:varchar(36);uniqueIndex"`

	FlavorID string `gorm:"type:varchar(36);not null"`
	ImageID  string `gorm:"type:varchar(36);not null"`

	State            state.VMState `gorm:"size:32;not null;index"`
	StateDescription *string       `gorm:"type:text"`

	IPAddress  *string `gorm:"size:45"`
	FloatingIP *string `gorm:"size:45"`

	// Resource sizing, denormalized from the flavor at creation time.
	VCPUs    *int
	MemoryMB *int
	DiskGB   *int

	Description *string `gorm:"type:text"`
	UserData    *string `gorm:"type:text"`
	KeyName     *string `gorm:"size:255"`

	CreatedAt    time.Time
	UpdatedAt    time.Time
	LaunchedAt   *time.Time
	TerminatedAt *time.Time
}

func (VM) TableName() string {
	return "vms"
}

type VMList []VM

// Package v1 defines the JSON wire types of the VM lifecycle API.
package v1

import (
	"time"
)

// Pagination bounds for list endpoints.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type CreateVMRequest struct {
	Name             string            `json:"name"`
	FlavorID         string            `json:"flavor_id"`
	ImageID          string            `json:"image_id"`
	Description      *string           `json:"description,omitempty"`
	KeyName          *string           `json:"key_name,omitempty"`
	UserData         *string           `json:"user_data,omitempty"`
	NetworkID        *string           `json:"network_id,omitempty"`
	SecurityGroups   []string          `json:"security_groups,omitempty"`
	AvailabilityZone *string           `json:"availability_zone,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

type UpdateVMRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

type RebootRequest struct {
	RebootType string `json:"reboot_type,omitempty"`
}

// VM is the external view of a persisted VM record.
type VM struct {
	UUID             string  `json:"uuid"`
	Name             string  `json:"name"`
	State            string  `json:"state"`
	StateDescription *string `json:"state_description,omitempty"`

	FlavorID string `json:"flavor_id"`
	ImageID  string `json:"image_id"`

	VCPUs    *int `json:"vcpus,omitempty"`
	MemoryMB *int `json:"memory_mb,omitempty"`
	DiskGB   *int `json:"disk_gb,omitempty"`

	IPAddress  *string `json:"ip_address,omitempty"`
	FloatingIP *string `json:"floating_ip,omitempty"`

	Description *string `json:"description,omitempty"`
	KeyName     *string `json:"key_name,omitempty"`

	ProviderID *string `json:"provider_id,omitempty"`

	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LaunchedAt   *time.Time `json:"launched_at,omitempty"`
	TerminatedAt *time.Time `json:"terminated_at,omitempty"`

	IsRunning       bool `json:"is_running"`
	IsStopped       bool `json:"is_stopped"`
	IsTransitioning bool `json:"is_transitioning"`
}

type VMList struct {
	Items    []VM  `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Pages    int   `json:"pages"`
}

// VMAction describes the outcome of a lifecycle action, including the state
// observed before and after.
type VMAction struct {
	VMUUID        string    `json:"vm_uuid"`
	Action        string    `json:"action"`
	Status        string    `json:"status"`
	Message       string    `json:"message"`
	PreviousState string    `json:"previous_state"`
	CurrentState  string    `json:"current_state"`
	Timestamp     time.Time `json:"timestamp"`
}

type Flavor struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	VCPUs       int     `json:"vcpus"`
	MemoryMB    int     `json:"memory_mb"`
	DiskGB      int     `json:"disk_gb"`
	EphemeralGB int     `json:"ephemeral_gb"`
	SwapMB      int     `json:"swap_mb"`
	IsPublic    bool    `json:"is_public"`
	Description *string `json:"description,omitempty"`
}

type FlavorList struct {
	Items []Flavor `json:"items"`
	Total int      `json:"total"`
}

type Image struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Status       string     `json:"status"`
	SizeBytes    *int64     `json:"size_bytes,omitempty"`
	MinDiskGB    int        `json:"min_disk_gb"`
	MinMemoryMB  int        `json:"min_memory_mb"`
	OSDistro     *string    `json:"os_distro,omitempty"`
	OSVersion    *string    `json:"os_version,omitempty"`
	Architecture *string    `json:"architecture,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	Description  *string    `json:"description,omitempty"`
}

type ImageList struct {
	Items []Image `json:"items"`
	Total int     `json:"total"`
}

// Error is the uniform error body.
type Error struct {
	Error     string         `json:"error"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type Health struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Database  string    `json:"database"`
	Provider  string    `json:"provider"`
}

type RootInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

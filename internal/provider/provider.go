// Package provider abstracts the compute provider hosting the actual VMs.
// The service layer depends only on the Client interface; the simulator and
// the OpenStack adapter implement it.
package provider

import (
	"context"
	"time"
)

// Reboot kinds accepted by RebootServer.
const (
	RebootSoft = "SOFT"
	RebootHard = "HARD"
)

// Server is the provider-side view of a hosted instance.
type Server struct {
	ID         string
	Name       string
	Status     string
	FlavorID   string
	ImageID    string
	IPAddress  string
	FloatingIP string
	KeyName    string
	CreatedAt  time.Time
	LaunchedAt time.Time
	Metadata   map[string]string
}

// Flavor is a compute/memory/disk sizing template.
type Flavor struct {
	ID          string
	Name        string
	VCPUs       int
	MemoryMB    int
	DiskGB      int
	EphemeralGB int
	SwapMB      int
	IsPublic    bool
	Description string
}

// Image is a bootable OS template.
type Image struct {
	ID           string
	Name         string
	Status       string
	SizeBytes    int64
	MinDiskGB    int
	MinMemoryMB  int
	OSDistro     string
	OSVersion    string
	Architecture string
	CreatedAt    time.Time
	Description  string
}

// CreateServerRequest carries the parameters for a new instance.
type CreateServerRequest struct {
	Name             string
	FlavorID         string
	ImageID          string
	NetworkID        string
	KeyName          string
	UserData         string
	SecurityGroups   []string
	AvailabilityZone string
	Metadata         map[string]string
}

// Client is the capability contract over the compute provider. Lookup
// failures for unknown IDs surface as apierrors not-found values; unexpected
// failures surface as provider errors.
type Client interface {
	CreateServer(ctx context.Context, req CreateServerRequest) (*Server, error)
	GetServer(ctx context.Context, serverID string) (*Server, error)
	DeleteServer(ctx context.Context, serverID string) error
	StartServer(ctx context.Context, serverID string) error
	StopServer(ctx context.Context, serverID string) error
	RebootServer(ctx context.Context, serverID, rebootType string) error

	ListFlavors(ctx context.Context) ([]Flavor, error)
	GetFlavor(ctx context.Context, flavorID string) (*Flavor, error)
	ListImages(ctx context.Context) ([]Image, error)
	GetImage(ctx context.Context, imageID string) (*Image, error)

	CheckConnection(ctx context.Context) error
}

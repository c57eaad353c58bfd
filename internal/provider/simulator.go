package provider

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dcm-project/openstack-service-provider/internal/apierrors"
)

// Simulator is a deterministic in-process compute backend. Each instance
// owns its own server map, so concurrent tests never share state.
type Simulator struct {
	mu      sync.Mutex
	servers map[string]*Server
	flavors []Flavor
	images  []Image
}

var _ Client = (*Simulator)(nil)

// NewSimulator returns a simulator seeded with the fixed flavor and image
// catalog.
func NewSimulator() *Simulator {
	return &Simulator{
		servers: make(map[string]*Server),
		flavors: seedFlavors(),
		images:  seedImages(),
	}
}

func seedFlavors() []Flavor {
	return []Flavor{
		{ID: "m1.tiny", Name: "Tiny", VCPUs: 1, MemoryMB: 512, DiskGB: 1, IsPublic: true, Description: "Tiny instance for testing"},
		{ID: "m1.small", Name: "Small", VCPUs: 1, MemoryMB: 2048, DiskGB: 20, IsPublic: true, Description: "Small instance for light workloads"},
		{ID: "m1.medium", Name: "Medium", VCPUs: 2, MemoryMB: 4096, DiskGB: 40, IsPublic: true, Description: "Medium instance for general workloads"},
		{ID: "m1.large", Name: "Large", VCPUs: 4, MemoryMB: 8192, DiskGB: 80, IsPublic: true, Description: "Large instance for demanding workloads"},
		{ID: "m1.xlarge", Name: "Extra Large", VCPUs: 8, MemoryMB: 16384, DiskGB: 160, IsPublic: true, Description: "Extra large instance for heavy workloads"},
	}
}

func seedImages() []Image {
	return []Image{
		{ID: "ubuntu-22.04", Name: "Ubuntu 22.04 LTS", Status: "active", SizeBytes: 2361393152, MinDiskGB: 8, MinMemoryMB: 512, OSDistro: "ubuntu", OSVersion: "22.04", Architecture: "x86_64", CreatedAt: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), Description: "Ubuntu 22.04 LTS (Jammy Jellyfish)"},
		{ID: "ubuntu-20.04", Name: "Ubuntu 20.04 LTS", Status: "active", SizeBytes: 2147483648, MinDiskGB: 8, MinMemoryMB: 512, OSDistro: "ubuntu", OSVersion: "20.04", Architecture: "x86_64", CreatedAt: time.Date(2023, 6, 1, 8, 0, 0, 0, time.UTC), Description: "Ubuntu 20.04 LTS (Focal Fossa)"},
		{ID: "centos-9", Name: "CentOS Stream 9", Status: "active", SizeBytes: 1932735283, MinDiskGB: 10, MinMemoryMB: 1024, OSDistro: "centos", OSVersion: "9", Architecture: "x86_64", CreatedAt: time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC), Description: "CentOS Stream 9"},
		{ID: "debian-12", Name: "Debian 12 (Bookworm)", Status: "active", SizeBytes: 2048000000, MinDiskGB: 8, MinMemoryMB: 512, OSDistro: "debian", OSVersion: "12", Architecture: "x86_64", CreatedAt: time.Date(2024, 1, 20, 14, 0, 0, 0, time.UTC), Description: "Debian 12 (Bookworm) stable"},
		{ID: "windows-2022", Name: "Windows Server 2022", Status: "active", SizeBytes: 15032385536, MinDiskGB: 40, MinMemoryMB: 2048, OSDistro: "windows", OSVersion: "2022", Architecture: "x86_64", CreatedAt: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC), Description: "Windows Server 2022 Datacenter"},
	}
}

func generateIP() string {
	return fmt.Sprintf("192.168.%d.%d", rand.Intn(254)+1, rand.Intn(254)+1)
}

func (s *Simulator) CreateServer(ctx context.Context, req CreateServerRequest) (*Server, error) {
	if _, err := s.GetFlavor(ctx, req.FlavorID); err != nil {
		return nil, err
	}
	if _, err := s.GetImage(ctx, req.ImageID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	server := &Server{
		ID:         uuid.New().String(),
		Name:       req.Name,
		Status:     "ACTIVE",
		FlavorID:   req.FlavorID,
		ImageID:    req.ImageID,
		IPAddress:  generateIP(),
		KeyName:    req.KeyName,
		CreatedAt:  now,
		LaunchedAt: now,
		Metadata:   req.Metadata,
	}

	s.mu.Lock()
	s.servers[server.ID] = server
	s.mu.Unlock()

	zap.S().Named("provider:simulator").Infow("created server", "id", server.ID, "name", req.Name)
	return copyServer(server), nil
}

func (s *Simulator) GetServer(ctx context.Context, serverID string) (*Server, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	server, ok := s.servers[serverID]
	if !ok {
		return nil, apierrors.NewResourceNotFound("Server", serverID)
	}
	return copyServer(server), nil
}

func (s *Simulator) DeleteServer(ctx context.Context, serverID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.servers[serverID]; !ok {
		return apierrors.NewResourceNotFound("Server", serverID)
	}
	delete(s.servers, serverID)
	return nil
}

func (s *Simulator) StartServer(ctx context.Context, serverID string) error {
	return s.setStatus(serverID, "ACTIVE")
}

func (s *Simulator) StopServer(ctx context.Context, serverID string) error {
	return s.setStatus(serverID, "SHUTOFF")
}

func (s *Simulator) RebootServer(ctx context.Context, serverID, rebootType string) error {
	return s.setStatus(serverID, "ACTIVE")
}

func (s *Simulator) setStatus(serverID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	server, ok := s.servers[serverID]
	if !ok {
		return apierrors.NewResourceNotFound("Server", serverID)
	}
	server.Status = status
	return nil
}

func (s *Simulator) ListFlavors(ctx context.Context) ([]Flavor, error) {
	out := make([]Flavor, len(s.flavors))
	copy(out, s.flavors)
	return out, nil
}

func (s *Simulator) GetFlavor(ctx context.Context, flavorID string) (*Flavor, error) {
	for _, f := range s.flavors {
		if f.ID == flavorID {
			flavor := f
			return &flavor, nil
		}
	}
	return nil, apierrors.NewResourceNotFound("Flavor", flavorID)
}

func (s *Simulator) ListImages(ctx context.Context) ([]Image, error) {
	out := make([]Image, len(s.images))
	copy(out, s.images)
	return out, nil
}

func (s *Simulator) GetImage(ctx context.Context, imageID string) (*Image, error) {
	for _, img := range s.images {
		if img.ID == imageID {
			image := img
			return &image, nil
		}
	}
	return nil, apierrors.NewResourceNotFound("Image", imageID)
}

func (s *Simulator) CheckConnection(ctx context.Context) error {
	return nil
}

func copyServer(s *Server) *Server {
	out := *s
	return &out
}

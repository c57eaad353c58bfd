package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/dcm-project/openstack-service-provider/internal/apierrors"
	"github.com/dcm-project/openstack-service-provider/internal/config"
)

const (
	createServerTimeout = 5 * time.Minute
	createPollInterval  = 5 * time.Second
)

// OpenStackClient talks to a real OpenStack deployment through the Keystone,
// Nova and Glance HTTP APIs. Authentication is lazy and memoized: the first
// call that needs the provider acquires a token and resolves the service
// endpoints, later calls reuse them.
type OpenStackClient struct {
	cfg  *config.OpenStackConfig
	http *resty.Client

	mu          sync.Mutex
	token       string
	computeURL  string
	imageURL    string
	tokenExpiry time.Time
}

var _ Client = (*OpenStackClient)(nil)

func NewOpenStackClient(cfg *config.OpenStackConfig) *OpenStackClient {
	return &OpenStackClient{
		cfg:  cfg,
		http: resty.New().SetTimeout(30 * time.Second),
	}
}

type tokenRequest struct {
	Auth struct {
		Identity struct {
			Methods  []string `json:"methods"`
			Password *struct {
				User struct {
					Name     string `json:"name"`
					Password string `json:"password"`
					Domain   struct {
						Name string `json:"name"`
					} `json:"domain"`
				} `json:"user"`
			} `json:"password,omitempty"`
			ApplicationCredential *struct {
				ID     string `json:"id"`
				Secret string `json:"secret"`
			} `json:"application_credential,omitempty"`
		} `json:"identity"`
		Scope *struct {
			Project struct {
				Name   string `json:"name"`
				Domain struct {
					Name string `json:"name"`
				} `json:"domain"`
			} `json:"project"`
		} `json:"scope,omitempty"`
	} `json:"auth"`
}

type tokenResponse struct {
	Token struct {
		ExpiresAt time.Time `json:"expires_at"`
		Catalog   []struct {
			Type      string `json:"type"`
			Endpoints []struct {
				Interface string `json:"interface"`
				Region    string `json:"region"`
				URL       string `json:"url"`
			} `json:"endpoints"`
		} `json:"catalog"`
	} `json:"token"`
}

// connect authenticates against Keystone and resolves the compute and image
// endpoints from the service catalog. Callers hold no lock.
func (c *OpenStackClient) connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return nil
	}

	var req tokenRequest
	if c.cfg.ApplicationCredentialID != "" {
		req.Auth.Identity.Methods = []string{"application_credential"}
		req.Auth.Identity.ApplicationCredential = &struct {
			ID     string `json:"id"`
			Secret string `json:"secret"`
		}{ID: c.cfg.ApplicationCredentialID, Secret: c.cfg.ApplicationCredentialSecret}
	} else {
		req.Auth.Identity.Methods = []string{"password"}
		pw := &struct {
			User struct {
				Name     string `json:"name"`
				Password string `json:"password"`
				Domain   struct {
					Name string `json:"name"`
				} `json:"domain"`
			} `json:"user"`
		}{}
		pw.User.Name = c.cfg.Username
		pw.User.Password = c.cfg.Password
		pw.User.Domain.Name = c.cfg.UserDomainName
		req.Auth.Identity.Password = pw

		scope := &struct {
			Project struct {
				Name   string `json:"name"`
				Domain struct {
					Name string `json:"name"`
				} `json:"domain"`
			} `json:"project"`
		}{}
		scope.Project.Name = c.cfg.ProjectName
		scope.Project.Domain.Name = c.cfg.ProjectDomainName
		req.Auth.Scope = scope
	}

	var tokenResp tokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&tokenResp).
		Post(strings.TrimSuffix(c.cfg.AuthURL, "/") + "/auth/tokens")
	if err != nil {
		return apierrors.NewProviderUnreachable("Failed to connect to OpenStack", err)
	}
	if resp.StatusCode() != http.StatusCreated {
		return apierrors.NewProviderUnreachable(
			fmt.Sprintf("OpenStack authentication failed with status %d", resp.StatusCode()), nil)
	}

	token := resp.Header().Get("X-Subject-Token")
	if token == "" {
		return apierrors.NewProviderUnreachable("OpenStack did not return a subject token", nil)
	}

	computeURL := c.endpointFor(tokenResp, "compute")
	imageURL := c.endpointFor(tokenResp, "image")
	if computeURL == "" || imageURL == "" {
		return apierrors.NewProviderUnreachable("OpenStack catalog is missing compute or image endpoints", nil)
	}

	c.token = token
	c.tokenExpiry = tokenResp.Token.ExpiresAt
	c.computeURL = strings.TrimSuffix(computeURL, "/")
	c.imageURL = strings.TrimSuffix(imageURL, "/")

	zap.S().Named("provider:openstack").Infow("authenticated against keystone",
		"compute", c.computeURL, "image", c.imageURL)
	return nil
}

func (c *OpenStackClient) endpointFor(tokens tokenResponse, serviceType string) string {
	for _, svc := range tokens.Token.Catalog {
		if svc.Type != serviceType {
			continue
		}
		for _, ep := range svc.Endpoints {
			if ep.Interface != "public" {
				continue
			}
			if c.cfg.RegionName != "" && ep.Region != c.cfg.RegionName {
				continue
			}
			return ep.URL
		}
	}
	return ""
}

func (c *OpenStackClient) request(ctx context.Context) (*resty.Request, error) {
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	return c.http.R().SetContext(ctx).SetHeader("X-Auth-Token", token), nil
}

type osServer struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Status   string    `json:"status"`
	KeyName  string    `json:"key_name"`
	Created  time.Time `json:"created"`
	Launched string    `json:"OS-SRV-USG:launched_at"`
	Flavor   struct {
		ID string `json:"id"`
	} `json:"flavor"`
	Image struct {
		ID string `json:"id"`
	} `json:"image"`
	Metadata  map[string]string            `json:"metadata"`
	Addresses map[string][]osServerAddress `json:"addresses"`
}

type osServerAddress struct {
	Addr string `json:"addr"`
	Type string `json:"OS-EXT-IPS:type"`
}

func (s *osServer) toServer() *Server {
	out := &Server{
		ID:        s.ID,
		Name:      s.Name,
		Status:    s.Status,
		FlavorID:  s.Flavor.ID,
		ImageID:   s.Image.ID,
		KeyName:   s.KeyName,
		CreatedAt: s.Created,
		Metadata:  s.Metadata,
	}
	if s.Launched != "" {
		if t, err := time.Parse("2006-01-02T15:04:05.000000", s.Launched); err == nil {
			out.LaunchedAt = t
		}
	}
	for _, addrs := range s.Addresses {
		for _, addr := range addrs {
			switch addr.Type {
			case "fixed":
				if out.IPAddress == "" {
					out.IPAddress = addr.Addr
				}
			case "floating":
				if out.FloatingIP == "" {
					out.FloatingIP = addr.Addr
				}
			}
		}
	}
	return out
}

func (c *OpenStackClient) CreateServer(ctx context.Context, req CreateServerRequest) (*Server, error) {
	r, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	server := map[string]any{
		"name":      req.Name,
		"flavorRef": req.FlavorID,
		"imageRef":  req.ImageID,
	}
	if req.KeyName != "" {
		server["key_name"] = req.KeyName
	}
	if req.UserData != "" {
		server["user_data"] = req.UserData
	}
	if req.AvailabilityZone != "" {
		server["availability_zone"] = req.AvailabilityZone
	}
	if len(req.Metadata) > 0 {
		server["metadata"] = req.Metadata
	}
	if req.NetworkID != "" {
		server["networks"] = []map[string]string{{"uuid": req.NetworkID}}
	}
	if len(req.SecurityGroups) > 0 {
		groups := make([]map[string]string, 0, len(req.SecurityGroups))
		for _, g := range req.SecurityGroups {
			groups = append(groups, map[string]string{"name": g})
		}
		server["security_groups"] = groups
	}

	var created struct {
		Server struct {
			ID string `json:"id"`
		} `json:"server"`
	}
	resp, err := r.SetBody(map[string]any{"server": server}).
		SetResult(&created).
		Post(c.computeURL + "/servers")
	if err != nil {
		return nil, apierrors.NewProvider("Failed to create server", err)
	}
	if resp.StatusCode() != http.StatusAccepted && resp.StatusCode() != http.StatusOK {
		return nil, apierrors.NewProvider(
			fmt.Sprintf("Failed to create server: status %d: %s", resp.StatusCode(), resp.String()), nil)
	}

	return c.waitForServer(ctx, created.Server.ID)
}

// waitForServer polls until the new server leaves its build state.
func (c *OpenStackClient) waitForServer(ctx context.Context, serverID string) (*Server, error) {
	deadline := time.Now().Add(createServerTimeout)
	for {
		server, err := c.GetServer(ctx, serverID)
		if err != nil {
			return nil, err
		}
		switch server.Status {
		case "ACTIVE":
			return server, nil
		case "ERROR":
			return nil, apierrors.NewProvider(
				fmt.Sprintf("Server %s entered ERROR state during build", serverID), nil)
		}
		if time.Now().After(deadline) {
			return nil, apierrors.NewProvider(
				fmt.Sprintf("Timed out waiting for server %s to become ACTIVE", serverID), nil)
		}
		select {
		case <-ctx.Done():
			return nil, apierrors.NewProvider("Cancelled while waiting for server build", ctx.Err())
		case <-time.After(createPollInterval):
		}
	}
}

func (c *OpenStackClient) GetServer(ctx context.Context, serverID string) (*Server, error) {
	r, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	var result struct {
		Server osServer `json:"server"`
	}
	resp, err := r.SetResult(&result).Get(c.computeURL + "/servers/" + serverID)
	if err != nil {
		return nil, apierrors.NewProvider("Failed to get server", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, apierrors.NewResourceNotFound("Server", serverID)
	}
	if resp.IsError() {
		return nil, apierrors.NewProvider(
			fmt.Sprintf("Failed to get server: status %d", resp.StatusCode()), nil)
	}
	return result.Server.toServer(), nil
}

func (c *OpenStackClient) DeleteServer(ctx context.Context, serverID string) error {
	r, err := c.request(ctx)
	if err != nil {
		return err
	}
	resp, err := r.Delete(c.computeURL + "/servers/" + serverID)
	if err != nil {
		return apierrors.NewProvider("Failed to delete server", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return apierrors.NewResourceNotFound("Server", serverID)
	}
	if resp.IsError() {
		return apierrors.NewProvider(
			fmt.Sprintf("Failed to delete server: status %d", resp.StatusCode()), nil)
	}
	return nil
}

func (c *OpenStackClient) StartServer(ctx context.Context, serverID string) error {
	return c.serverAction(ctx, serverID, map[string]any{"os-start": nil}, "start")
}

func (c *OpenStackClient) StopServer(ctx context.Context, serverID string) error {
	return c.serverAction(ctx, serverID, map[string]any{"os-stop": nil}, "stop")
}

func (c *OpenStackClient) RebootServer(ctx context.Context, serverID, rebootType string) error {
	return c.serverAction(ctx, serverID,
		map[string]any{"reboot": map[string]string{"type": rebootType}}, "reboot")
}

func (c *OpenStackClient) serverAction(ctx context.Context, serverID string, body map[string]any, action string) error {
	r, err := c.request(ctx)
	if err != nil {
		return err
	}
	resp, err := r.SetBody(body).Post(c.computeURL + "/servers/" + serverID + "/action")
	if err != nil {
		return apierrors.NewProvider(fmt.Sprintf("Failed to %s server", action), err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return apierrors.NewResourceNotFound("Server", serverID)
	}
	if resp.IsError() {
		return apierrors.NewProvider(
			fmt.Sprintf("Failed to %s server: status %d: %s", action, resp.StatusCode(), resp.String()), nil)
	}
	return nil
}

type osFlavor struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	VCPUs       int    `json:"vcpus"`
	RAM         int    `json:"ram"`
	Disk        int    `json:"disk"`
	Ephemeral   int    `json:"OS-FLV-EXT-DATA:ephemeral"`
	Swap        int    `json:"swap"`
	IsPublic    bool   `json:"os-flavor-access:is_public"`
	Description string `json:"description"`
}

func (f *osFlavor) toFlavor() Flavor {
	return Flavor{
		ID:          f.ID,
		Name:        f.Name,
		VCPUs:       f.VCPUs,
		MemoryMB:    f.RAM,
		DiskGB:      f.Disk,
		EphemeralGB: f.Ephemeral,
		SwapMB:      f.Swap,
		IsPublic:    f.IsPublic,
		Description: f.Description,
	}
}

func (c *OpenStackClient) ListFlavors(ctx context.Context) ([]Flavor, error) {
	r, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	var result struct {
		Flavors []osFlavor `json:"flavors"`
	}
	resp, err := r.SetResult(&result).Get(c.computeURL + "/flavors/detail")
	if err != nil {
		return nil, apierrors.NewProvider("Failed to list flavors", err)
	}
	if resp.IsError() {
		return nil, apierrors.NewProvider(
			fmt.Sprintf("Failed to list flavors: status %d", resp.StatusCode()), nil)
	}
	flavors := make([]Flavor, 0, len(result.Flavors))
	for i := range result.Flavors {
		flavors = append(flavors, result.Flavors[i].toFlavor())
	}
	return flavors, nil
}

func (c *OpenStackClient) GetFlavor(ctx context.Context, flavorID string) (*Flavor, error) {
	r, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	var result struct {
		Flavor osFlavor `json:"flavor"`
	}
	resp, err := r.SetResult(&result).Get(c.computeURL + "/flavors/" + flavorID)
	if err != nil {
		return nil, apierrors.NewProvider("Failed to get flavor", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, apierrors.NewResourceNotFound("Flavor", flavorID)
	}
	if resp.IsError() {
		return nil, apierrors.NewProvider(
			fmt.Sprintf("Failed to get flavor: status %d", resp.StatusCode()), nil)
	}
	flavor := result.Flavor.toFlavor()
	return &flavor, nil
}

type osImage struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	Size         int64     `json:"size"`
	MinDisk      int       `json:"min_disk"`
	MinRAM       int       `json:"min_ram"`
	OSDistro     string    `json:"os_distro"`
	OSVersion    string    `json:"os_version"`
	Architecture string    `json:"architecture"`
	CreatedAt    time.Time `json:"created_at"`
	Description  string    `json:"description"`
}

func (i *osImage) toImage() Image {
	return Image{
		ID:           i.ID,
		Name:         i.Name,
		Status:       i.Status,
		SizeBytes:    i.Size,
		MinDiskGB:    i.MinDisk,
		MinMemoryMB:  i.MinRAM,
		OSDistro:     i.OSDistro,
		OSVersion:    i.OSVersion,
		Architecture: i.Architecture,
		CreatedAt:    i.CreatedAt,
		Description:  i.Description,
	}
}

func (c *OpenStackClient) ListImages(ctx context.Context) ([]Image, error) {
	r, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	var result struct {
		Images []osImage `json:"images"`
	}
	resp, err := r.SetResult(&result).Get(c.imageURL + "/v2/images")
	if err != nil {
		return nil, apierrors.NewProvider("Failed to list images", err)
	}
	if resp.IsError() {
		return nil, apierrors.NewProvider(
			fmt.Sprintf("Failed to list images: status %d", resp.StatusCode()), nil)
	}
	images := make([]Image, 0, len(result.Images))
	for i := range result.Images {
		images = append(images, result.Images[i].toImage())
	}
	return images, nil
}

func (c *OpenStackClient) GetImage(ctx context.Context, imageID string) (*Image, error) {
	r, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	var result osImage
	resp, err := r.SetResult(&result).Get(c.imageURL + "/v2/images/" + imageID)
	if err != nil {
		return nil, apierrors.NewProvider("Failed to get image", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, apierrors.NewResourceNotFound("Image", imageID)
	}
	if resp.IsError() {
		return nil, apierrors.NewProvider(
			fmt.Sprintf("Failed to get image: status %d", resp.StatusCode()), nil)
	}
	image := result.toImage()
	return &image, nil
}

// CheckConnection verifies reachability by listing a single flavor.
func (c *OpenStackClient) CheckConnection(ctx context.Context) error {
	r, err := c.request(ctx)
	if err != nil {
		return err
	}
	resp, err := r.Get(c.computeURL + "/flavors?limit=1")
	if err != nil {
		return apierrors.NewProviderUnreachable("OpenStack connection check failed", err)
	}
	if resp.IsError() {
		return apierrors.NewProviderUnreachable(
			fmt.Sprintf("OpenStack connection check failed: status %d", resp.StatusCode()), nil)
	}
	return nil
}

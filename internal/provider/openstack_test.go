package provider_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dcm-project/openstack-service-provider/internal/apierrors"
	"github.com/dcm-project/openstack-service-provider/internal/config"
	"github.com/dcm-project/openstack-service-provider/internal/provider"
)

// fakeOpenStack stands in for Keystone, Nova and Glance on one listener.
type fakeOpenStack struct {
	server     *httptest.Server
	authCalls  atomic.Int64
	serverJSON map[string]any
}

func newFakeOpenStack() *fakeOpenStack {
	f := &fakeOpenStack{}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v3/auth/tokens", func(w http.ResponseWriter, r *http.Request) {
		f.authCalls.Add(1)
		w.Header().Set("X-Subject-Token", "fake-token")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": map[string]any{
				"expires_at": time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
				"catalog": []map[string]any{
					{
						"type": "compute",
						"endpoints": []map[string]any{
							{"interface": "public", "region": "RegionOne", "url": f.server.URL + "/compute"},
						},
					},
					{
						"type": "image",
						"endpoints": []map[string]any{
							{"interface": "public", "region": "RegionOne", "url": f.server.URL + "/image"},
						},
					},
				},
			},
		})
	})

	mux.HandleFunc("GET /compute/flavors", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"flavors": []map[string]any{{"id": "1", "name": "m1.small"}},
		})
	})

	mux.HandleFunc("GET /compute/flavors/detail", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"flavors": []map[string]any{
				{"id": "1", "name": "m1.small", "vcpus": 1, "ram": 2048, "disk": 20},
			},
		})
	})

	mux.HandleFunc("GET /compute/flavors/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"flavor": map[string]any{"id": r.PathValue("id"), "name": "m1.small", "vcpus": 1, "ram": 2048, "disk": 20},
		})
	})

	mux.HandleFunc("GET /compute/servers/{id}", func(w http.ResponseWriter, r *http.Request) {
		if f.serverJSON == nil || r.PathValue("id") != f.serverJSON["id"] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"server": f.serverJSON})
	})

	mux.HandleFunc("GET /image/v2/images", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"images": []map[string]any{
				{"id": "img-1", "name": "ubuntu", "status": "active", "os_distro": "ubuntu"},
			},
		})
	})

	f.server = httptest.NewServer(mux)
	return f
}

func (f *fakeOpenStack) client() *provider.OpenStackClient {
	return provider.NewOpenStackClient(&config.OpenStackConfig{
		AuthURL:           f.server.URL + "/v3",
		ProjectName:       "demo",
		ProjectDomainName: "Default",
		Username:          "demo",
		Password:          "secret",
		UserDomainName:    "Default",
		RegionName:        "RegionOne",
	})
}

var _ = Describe("OpenStackClient", func() {
	var (
		fake *fakeOpenStack
		cl   *provider.OpenStackClient
		ctx  context.Context
	)

	BeforeEach(func() {
		fake = newFakeOpenStack()
		cl = fake.client()
		ctx = context.Background()
	})

	AfterEach(func() {
		fake.server.Close()
	})

	It("authenticates once and reuses the token", func() {
		_, err := cl.ListFlavors(ctx)
		Expect(err).NotTo(HaveOccurred())
		_, err = cl.ListImages(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(fake.authCalls.Load()).To(Equal(int64(1)))
	})

	It("maps flavor listings onto the provider types", func() {
		flavors, err := cl.ListFlavors(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(flavors).To(HaveLen(1))
		Expect(flavors[0].MemoryMB).To(Equal(2048))
		Expect(flavors[0].DiskGB).To(Equal(20))
	})

	It("fails with not-found for unknown flavors", func() {
		_, err := cl.GetFlavor(ctx, "missing")
		Expect(apierrors.IsNotFound(err)).To(BeTrue())
	})

	It("extracts fixed and floating addresses from a server", func() {
		fake.serverJSON = map[string]any{
			"id":     "srv-1",
			"name":   "web-1",
			"status": "ACTIVE",
			"addresses": map[string]any{
				"private": []map[string]any{
					{"addr": "10.0.0.5", "OS-EXT-IPS:type": "fixed"},
					{"addr": "203.0.113.9", "OS-EXT-IPS:type": "floating"},
				},
			},
		}

		server, err := cl.GetServer(ctx, "srv-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(server.Status).To(Equal("ACTIVE"))
		Expect(server.IPAddress).To(Equal("10.0.0.5"))
		Expect(server.FloatingIP).To(Equal("203.0.113.9"))
	})

	It("fails with not-found for unknown servers", func() {
		_, err := cl.GetServer(ctx, "srv-ghost")
		Expect(apierrors.IsNotFound(err)).To(BeTrue())
	})

	It("reports reachability through the connection check", func() {
		Expect(cl.CheckConnection(ctx)).To(Succeed())
	})

	It("fails the connection check against a dead endpoint", func() {
		fake.server.Close()
		err := cl.CheckConnection(ctx)
		apiErr, ok := apierrors.As(err)
		Expect(ok).To(BeTrue())
		Expect(apiErr.Code).To(Equal(apierrors.CodeProviderUnreachable))
	})
})

var _ = Describe("Credential configuration", func() {
	It("requires the full password credential set", func() {
		cfg := &config.OpenStackConfig{AuthURL: "http://keystone", Username: "demo"}
		Expect(cfg.CredentialsConfigured()).To(BeFalse())

		cfg.ProjectName = "demo"
		cfg.Password = "secret"
		Expect(cfg.CredentialsConfigured()).To(BeTrue())
	})

	It("accepts application credentials without a password", func() {
		cfg := &config.OpenStackConfig{
			AuthURL:                     "http://keystone",
			ApplicationCredentialID:     "ac-id",
			ApplicationCredentialSecret: "ac-secret",
		}
		Expect(cfg.CredentialsConfigured()).To(BeTrue())
	})
})

package provider_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dcm-project/openstack-service-provider/internal/apierrors"
	"github.com/dcm-project/openstack-service-provider/internal/provider"
)

func TestProvider(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Provider Suite")
}

var _ = Describe("Simulator", func() {
	var (
		sim *provider.Simulator
		ctx context.Context
	)

	BeforeEach(func() {
		sim = provider.NewSimulator()
		ctx = context.Background()
	})

	Describe("catalog", func() {
		It("serves the seeded flavors", func() {
			flavors, err := sim.ListFlavors(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(flavors).To(HaveLen(5))

			small, err := sim.GetFlavor(ctx, "m1.small")
			Expect(err).NotTo(HaveOccurred())
			Expect(small.VCPUs).To(Equal(1))
			Expect(small.MemoryMB).To(Equal(2048))
			Expect(small.DiskGB).To(Equal(20))
		})

		It("serves the seeded images", func() {
			images, err := sim.ListImages(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(images).To(HaveLen(5))

			ubuntu, err := sim.GetImage(ctx, "ubuntu-22.04")
			Expect(err).NotTo(HaveOccurred())
			Expect(ubuntu.OSDistro).To(Equal("ubuntu"))
		})

		It("fails with not-found for unknown catalog ids", func() {
			_, err := sim.GetFlavor(ctx, "m9.unknown")
			Expect(apierrors.IsNotFound(err)).To(BeTrue())

			_, err = sim.GetImage(ctx, "plan9")
			Expect(apierrors.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("servers", func() {
		It("creates an ACTIVE server with a private address", func() {
			server, err := sim.CreateServer(ctx, provider.CreateServerRequest{
				Name:     "web-1",
				FlavorID: "m1.small",
				ImageID:  "ubuntu-22.04",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(server.ID).NotTo(BeEmpty())
			Expect(server.Status).To(Equal("ACTIVE"))
			Expect(server.IPAddress).To(MatchRegexp(`^192\.168\.\d+\.\d+$`))
		})

		It("rejects creation with an unknown flavor or image", func() {
			_, err := sim.CreateServer(ctx, provider.CreateServerRequest{
				Name: "x", FlavorID: "nope", ImageID: "ubuntu-22.04",
			})
			Expect(apierrors.IsNotFound(err)).To(BeTrue())

			_, err = sim.CreateServer(ctx, provider.CreateServerRequest{
				Name: "x", FlavorID: "m1.small", ImageID: "nope",
			})
			Expect(apierrors.IsNotFound(err)).To(BeTrue())
		})

		It("transitions status through stop, start and reboot", func() {
			server, err := sim.CreateServer(ctx, provider.CreateServerRequest{
				Name: "web-1", FlavorID: "m1.tiny", ImageID: "debian-12",
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(sim.StopServer(ctx, server.ID)).To(Succeed())
			got, err := sim.GetServer(ctx, server.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal("SHUTOFF"))

			Expect(sim.StartServer(ctx, server.ID)).To(Succeed())
			got, err = sim.GetServer(ctx, server.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal("ACTIVE"))

			Expect(sim.RebootServer(ctx, server.ID, provider.RebootHard)).To(Succeed())
			got, err = sim.GetServer(ctx, server.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal("ACTIVE"))
		})

		It("deletes servers and forgets them", func() {
			server, err := sim.CreateServer(ctx, provider.CreateServerRequest{
				Name: "gone", FlavorID: "m1.tiny", ImageID: "debian-12",
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(sim.DeleteServer(ctx, server.ID)).To(Succeed())
			_, err = sim.GetServer(ctx, server.ID)
			Expect(apierrors.IsNotFound(err)).To(BeTrue())
		})
	})

	It("does not share server state between instances", func() {
		server, err := sim.CreateServer(ctx, provider.CreateServerRequest{
			Name: "isolated", FlavorID: "m1.tiny", ImageID: "debian-12",
		})
		Expect(err).NotTo(HaveOccurred())

		other := provider.NewSimulator()
		_, err = other.GetServer(ctx, server.ID)
		Expect(apierrors.IsNotFound(err)).To(BeTrue())
	})

	It("reports a healthy connection", func() {
		Expect(sim.CheckConnection(ctx)).To(Succeed())
	})
})

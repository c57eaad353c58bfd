package events_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dcm-project/openstack-service-provider/internal/events"
)

func TestEvents(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Events Suite")
}

var _ = Describe("Publisher", func() {
	It("is a noop when no NATS URL is configured", func() {
		publisher, err := events.NewPublisher(events.PublisherConfig{})
		Expect(err).NotTo(HaveOccurred())

		err = publisher.PublishVMEvent(context.Background(), events.VMEvent{
			VMUUID:    "8c2f1a3e-0000-0000-0000-000000000000",
			Action:    "create",
			Timestamp: time.Now().UTC(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(publisher.Close()).To(Succeed())
	})

	It("tolerates a nil receiver", func() {
		var publisher *events.Publisher
		Expect(publisher.PublishVMEvent(context.Background(), events.VMEvent{})).To(Succeed())
		Expect(publisher.Close()).To(Succeed())
	})
})

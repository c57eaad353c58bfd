package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dcm-project/openstack-service-provider/internal/state"
	"github.com/dcm-project/openstack-service-provider/internal/store"
	"github.com/dcm-project/openstack-service-provider/internal/store/model"
)

func TestStore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Store Suite")
}

func openTestDB() *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	Expect(err).NotTo(HaveOccurred())
	Expect(store.Migrate(db)).To(Succeed())
	return db
}

func newVM(name string, st state.VMState, createdAt time.Time) model.VM {
	return model.VM{
		UUID:      uuid.New().String(),
		Name:      name,
		FlavorID:  "m1.small",
		ImageID:   "ubuntu-22.04",
		State:     st,
		CreatedAt: createdAt,
	}
}

var _ = Describe("VMStore", func() {
	var (
		vms store.VMStore
		ctx context.Context
	)

	BeforeEach(func() {
		db := openTestDB()
		vms = store.NewVMStore(db)
		ctx = context.Background()
	})

	Describe("Create and GetByUUID", func() {
		It("round-trips a record", func() {
			created, err := vms.Create(ctx, newVM("web-1", state.StateBuilding, time.Time{}))
			Expect(err).NotTo(HaveOccurred())
			Expect(created.ID).NotTo(BeZero())

			got, err := vms.GetByUUID(ctx, created.UUID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Name).To(Equal("web-1"))
			Expect(got.State).To(Equal(state.StateBuilding))
		})

		It("treats unknown UUIDs as absent", func() {
			_, err := vms.GetByUUID(ctx, uuid.New().String())
			Expect(err).To(MatchError(store.ErrVMNotFound))
		})

		It("treats DELETED records as absent", func() {
			created, err := vms.Create(ctx, newVM("gone", state.StateDeleted, time.Time{}))
			Expect(err).NotTo(HaveOccurred())

			_, err = vms.GetByUUID(ctx, created.UUID)
			Expect(err).To(MatchError(store.ErrVMNotFound))
		})
	})

	Describe("Update", func() {
		It("persists field changes", func() {
			created, err := vms.Create(ctx, newVM("web-1", state.StateBuilding, time.Time{}))
			Expect(err).NotTo(HaveOccurred())

			created.State = state.StateActive
			providerID := uuid.New().String()
			created.ProviderID = &providerID
			Expect(vms.Update(ctx, created)).To(Succeed())

			got, err := vms.GetByUUID(ctx, created.UUID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.State).To(Equal(state.StateActive))
			Expect(got.ProviderID).To(HaveValue(Equal(providerID)))
		})
	})

	Describe("List", func() {
		base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

		BeforeEach(func() {
			for i := 0; i < 5; i++ {
				_, err := vms.Create(ctx, newVM(
					fmt.Sprintf("vm-%d", i),
					state.StateActive,
					base.Add(time.Duration(i)*time.Minute),
				))
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("pages with ceil(total/page_size) arithmetic", func() {
			page1, total, err := vms.List(ctx, store.VMFilter{}, 1, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(5)))
			Expect(page1).To(HaveLen(2))

			page2, _, err := vms.List(ctx, store.VMFilter{}, 2, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(page2).To(HaveLen(2))

			page3, _, err := vms.List(ctx, store.VMFilter{}, 3, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(page3).To(HaveLen(1))
		})

		It("orders by creation time descending", func() {
			page, _, err := vms.List(ctx, store.VMFilter{}, 1, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(page[0].Name).To(Equal("vm-4"))
			Expect(page[len(page)-1].Name).To(Equal("vm-0"))
		})

		It("excludes DELETED records", func() {
			deleted, err := vms.Create(ctx, newVM("deleted", state.StateDeleted, base))
			Expect(err).NotTo(HaveOccurred())

			page, total, err := vms.List(ctx, store.VMFilter{}, 1, 100)
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(5)))
			for _, vm := range page {
				Expect(vm.UUID).NotTo(Equal(deleted.UUID))
			}
		})

		It("filters by exact state", func() {
			_, err := vms.Create(ctx, newVM("stopped", state.StateShutoff, base))
			Expect(err).NotTo(HaveOccurred())

			shutoff := state.StateShutoff
			page, total, err := vms.List(ctx, store.VMFilter{State: &shutoff}, 1, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(1)))
			Expect(page[0].Name).To(Equal("stopped"))
		})

		It("filters by case-insensitive name substring", func() {
			_, err := vms.Create(ctx, newVM("Database-Primary", state.StateActive, base))
			Expect(err).NotTo(HaveOccurred())

			page, total, err := vms.List(ctx, store.VMFilter{NameContains: "database"}, 1, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(1)))
			Expect(page[0].Name).To(Equal("Database-Primary"))
		})
	})
})

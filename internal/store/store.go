package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/dcm-project/openstack-service-provider/internal/store/model"
)

type Store interface {
	VM() VMStore
	CheckHealth(ctx context.Context) error
	Close() error
}

type DataStore struct {
	db *gorm.DB
	vm VMStore
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		db: db,
		vm: NewVMStore(db),
	}
}

// Migrate creates or updates the schema for all persisted models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.VM{})
}

func (s *DataStore) VM() VMStore {
	return s.vm
}

// CheckHealth verifies the database connection with a trivial round trip.
func (s *DataStore) CheckHealth(ctx context.Context) error {
	var one int
	return s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

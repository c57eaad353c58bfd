package store

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dcm-project/openstack-service-provider/internal/state"
	"github.com/dcm-project/openstack-service-provider/internal/store/model"
)

// ErrVMNotFound is returned when no live record matches the given UUID.
// Records in the terminal DELETED state are treated as absent.
var ErrVMNotFound = errors.New("vm record not found")

// VMFilter narrows List results. Zero values mean no filtering.
type VMFilter struct {
	State        *state.VMState
	NameContains string
}

type VMStore interface {
	Create(ctx context.Context, vm model.VM) (*model.VM, error)
	GetByUUID(ctx context.Context, vmUUID string) (*model.VM, error)
	Update(ctx context.Context, vm *model.VM) error
	// List returns one page of live records plus the total match count.
	// Ordering is creation time descending; page numbers are 1-based.
	List(ctx context.Context, filter VMFilter, page, pageSize int) (model.VMList, int64, error)
}

type vmStore struct {
	db *gorm.DB
}

var _ VMStore = (*vmStore)(nil)

func NewVMStore(db *gorm.DB) VMStore {
	return &vmStore{db: db}
}

func (s *vmStore) Create(ctx context.Context, vm model.VM) (*model.VM, error) {
	result := s.db.WithContext(ctx).Clauses(clause.Returning{}).Create(&vm)
	if result.Error != nil {
		return nil, result.Error
	}
	return &vm, nil
}

func (s *vmStore) GetByUUID(ctx context.Context, vmUUID string) (*model.VM, error) {
	var vm model.VM
	result := s.db.WithContext(ctx).
		Where("uuid = ? AND state <> ?", vmUUID, state.StateDeleted).
		First(&vm)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrVMNotFound
		}
		return nil, result.Error
	}
	return &vm, nil
}

func (s *vmStore) Update(ctx context.Context, vm *model.VM) error {
	return s.db.WithContext(ctx).Save(vm).Error
}

func (s *vmStore) List(ctx context.Context, filter VMFilter, page, pageSize int) (model.VMList, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.VM{}).
		Where("state <> ?", state.StateDeleted)

	if filter.State != nil {
		query = query.Where("state = ?", *filter.State)
	}
	if filter.NameContains != "" {
		query = query.Where("lower(name) LIKE ?", "%"+strings.ToLower(filter.NameContains)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var vms model.VMList
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&vms).Error
	if err != nil {
		return nil, 0, err
	}
	return vms, total, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apiv1 "github.com/dcm-project/openstack-service-provider/api/v1"
	"github.com/dcm-project/openstack-service-provider/internal/apierrors"
	"github.com/dcm-project/openstack-service-provider/internal/events"
	"github.com/dcm-project/openstack-service-provider/internal/provider"
	"github.com/dcm-project/openstack-service-provider/internal/state"
	"github.com/dcm-project/openstack-service-provider/internal/store"
	"github.com/dcm-project/openstack-service-provider/internal/store/model"
)

// VMService orchestrates the VM lifecycle: it combines the persisted record,
// the state machine guards, and the provider client. Operations on one VM
// UUID are serialized by a keyed mutex; operations on different UUIDs run
// independently.
type VMService struct {
	store     store.Store
	provider  provider.Client
	publisher *events.Publisher
	locks     *keyedMutex
}

func NewVMService(st store.Store, client provider.Client, publisher *events.Publisher) *VMService {
	return &VMService{
		store:     st,
		provider:  client,
		publisher: publisher,
		locks:     newKeyedMutex(),
	}
}

// CreateVM creates a VM in two phases: the local record is inserted in
// BUILDING state and made durable before the provider call, so the record
// survives a remote failure. A provider failure moves the record to ERROR
// and is re-surfaced to the caller; the ERROR record stays persisted for
// manual cleanup or retry.
func (s *VMService) CreateVM(ctx context.Context, req apiv1.CreateVMRequest) (*apiv1.VM, error) {
	logger := zap.S().Named("vm_service:create_vm")

	if len(req.Name) < 1 || len(req.Name) > 255 {
		return nil, apierrors.NewValidation("VM name must be between 1 and 255 characters", "name")
	}

	flavor, err := s.provider.GetFlavor(ctx, req.FlavorID)
	if err != nil {
		return nil, err
	}
	if _, err := s.provider.GetImage(ctx, req.ImageID); err != nil {
		return nil, err
	}

	vm := model.VM{
		UUID:        uuid.New().String(),
		Name:        req.Name,
		FlavorID:    req.FlavorID,
		ImageID:     req.ImageID,
		State:       state.StateBuilding,
		Description: req.Description,
		KeyName:     req.KeyName,
		UserData:    req.UserData,
		VCPUs:       intPtr(flavor.VCPUs),
		MemoryMB:    intPtr(flavor.MemoryMB),
		DiskGB:      intPtr(flavor.DiskGB),
	}

	record, err := s.store.VM().Create(ctx, vm)
	if err != nil {
		return nil, fmt.Errorf("failed to persist VM record: %w", err)
	}

	createReq := provider.CreateServerRequest{
		Name:           req.Name,
		FlavorID:       req.FlavorID,
		ImageID:        req.ImageID,
		SecurityGroups: req.SecurityGroups,
		Metadata:       req.Metadata,
	}
	if req.NetworkID != nil {
		createReq.NetworkID = *req.NetworkID
	}
	if req.KeyName != nil {
		createReq.KeyName = *req.KeyName
	}
	if req.UserData != nil {
		createReq.UserData = *req.UserData
	}
	if req.AvailabilityZone != nil {
		createReq.AvailabilityZone = *req.AvailabilityZone
	}

	server, err := s.provider.CreateServer(ctx, createReq)
	if err != nil {
		record.State = state.StateError
		record.StateDescription = strPtr(err.Error())
		if updateErr := s.store.VM().Update(ctx, record); updateErr != nil {
			logger.Errorw("failed to persist ERROR state", "uuid", record.UUID, "error", updateErr)
		}
		logger.Errorw("provider create failed", "uuid", record.UUID, "error", err)
		return nil, err
	}

	now := time.Now().UTC()
	record.ProviderID = strPtr(server.ID)
	record.State = state.StateActive
	record.IPAddress = optStr(server.IPAddress)
	record.FloatingIP = optStr(server.FloatingIP)
	record.LaunchedAt = &now
	if err := s.store.VM().Update(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist created VM: %w", err)
	}

	logger.Infow("created VM", "uuid", record.UUID, "name", record.Name)
	s.publish(ctx, record, "create", string(state.StateBuilding))
	return toView(record), nil
}

// GetVM returns the persisted view of a VM. Soft-deleted records are absent.
func (s *VMService) GetVM(ctx context.Context, vmUUID string) (*apiv1.VM, error) {
	vm, err := s.getByUUID(ctx, vmUUID)
	if err != nil {
		return nil, err
	}
	return toView(vm), nil
}

// ListVMs returns one page of live records, newest first.
func (s *VMService) ListVMs(ctx context.Context, filter store.VMFilter, page, pageSize int) (*apiv1.VMList, error) {
	vms, total, err := s.store.VM().List(ctx, filter, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list VMs: %w", err)
	}

	items := make([]apiv1.VM, 0, len(vms))
	for i := range vms {
		items = append(items, *toView(&vms[i]))
	}
	pages := int((total + int64(pageSize) - 1) / int64(pageSize))

	return &apiv1.VMList{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Pages:    pages,
	}, nil
}

// UpdateVM applies the provided fields and leaves the rest untouched. No
// state change and no provider call happen here.
func (s *VMService) UpdateVM(ctx context.Context, vmUUID string, req apiv1.UpdateVMRequest) (*apiv1.VM, error) {
	unlock := s.locks.Lock(vmUUID)
	defer unlock()

	vm, err := s.getByUUID(ctx, vmUUID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if len(*req.Name) < 1 || len(*req.Name) > 255 {
			return nil, apierrors.NewValidation("VM name must be between 1 and 255 characters", "name")
		}
		vm.Name = *req.Name
	}
	if req.Description != nil {
		vm.Description = req.Description
	}

	if err := s.store.VM().Update(ctx, vm); err != nil {
		return nil, fmt.Errorf("failed to update VM: %w", err)
	}
	zap.S().Named("vm_service:update_vm").Infow("updated VM", "uuid", vmUUID)
	return toView(vm), nil
}

// DeleteVM soft-deletes the record. A remote delete failure is logged and
// swallowed; the local record is the authority for whether the VM is gone.
func (s *VMService) DeleteVM(ctx context.Context, vmUUID string) (*apiv1.VMAction, error) {
	logger := zap.S().Named("vm_service:delete_vm")
	unlock := s.locks.Lock(vmUUID)
	defer unlock()

	vm, err := s.getByUUID(ctx, vmUUID)
	if err != nil {
		return nil, err
	}
	previous := vm.State

	if !state.CanDelete(vm.State) {
		return nil, apierrors.NewStateConflict(vmUUID, string(vm.State), "delete")
	}

	if vm.ProviderID != nil {
		if err := s.provider.DeleteServer(ctx, *vm.ProviderID); err != nil {
			logger.Warnw("provider delete failed, continuing with local deletion",
				"uuid", vmUUID, "provider_id", *vm.ProviderID, "error", err)
		}
	}

	now := time.Now().UTC()
	vm.State = state.StateDeleted
	vm.TerminatedAt = &now
	if err := s.store.VM().Update(ctx, vm); err != nil {
		return nil, fmt.Errorf("failed to mark VM deleted: %w", err)
	}

	logger.Infow("deleted VM", "uuid", vmUUID)
	s.publish(ctx, vm, "delete", string(previous))
	return action(vm, "delete", previous, fmt.Sprintf("VM %s has been deleted", vm.Name)), nil
}

// StartVM starts a stopped VM. Provider failures propagate.
func (s *VMService) StartVM(ctx context.Context, vmUUID string) (*apiv1.VMAction, error) {
	unlock := s.locks.Lock(vmUUID)
	defer unlock()

	vm, err := s.getByUUID(ctx, vmUUID)
	if err != nil {
		return nil, err
	}
	previous := vm.State

	if !state.CanStart(vm.State) {
		return nil, apierrors.NewStateConflict(vmUUID, string(vm.State), "start")
	}

	if vm.ProviderID != nil {
		if err := s.provider.StartServer(ctx, *vm.ProviderID); err != nil {
			return nil, err
		}
	}

	vm.State = state.StateActive
	if err := s.store.VM().Update(ctx, vm); err != nil {
		return nil, fmt.Errorf("failed to persist started VM: %w", err)
	}

	zap.S().Named("vm_service:start_vm").Infow("started VM", "uuid", vmUUID)
	s.publish(ctx, vm, "start", string(previous))
	return action(vm, "start", previous, fmt.Sprintf("VM %s has been started", vm.Name)), nil
}

// StopVM stops a running VM. Provider failures propagate.
func (s *VMService) StopVM(ctx context.Context, vmUUID string) (*apiv1.VMAction, error) {
	unlock := s.locks.Lock(vmUUID)
	defer unlock()

	vm, err := s.getByUUID(ctx, vmUUID)
	if err != nil {
		return nil, err
	}
	previous := vm.State

	if !state.CanStop(vm.State) {
		return nil, apierrors.NewStateConflict(vmUUID, string(vm.State), "stop")
	}

	if vm.ProviderID != nil {
		if err := s.provider.StopServer(ctx, *vm.ProviderID); err != nil {
			return nil, err
		}
	}

	vm.State = state.StateShutoff
	if err := s.store.VM().Update(ctx, vm); err != nil {
		return nil, fmt.Errorf("failed to persist stopped VM: %w", err)
	}

	zap.S().Named("vm_service:stop_vm").Infow("stopped VM", "uuid", vmUUID)
	s.publish(ctx, vm, "stop", string(previous))
	return action(vm, "stop", previous, fmt.Sprintf("VM %s has been stopped", vm.Name)), nil
}

// RebootVM commits the transitional state before the provider call so that
// concurrent readers observe it, then commits ACTIVE on success. A provider
// failure moves the record to ERROR and propagates.
func (s *VMService) RebootVM(ctx context.Context, vmUUID, rebootType string) (*apiv1.VMAction, error) {
	logger := zap.S().Named("vm_service:reboot_vm")

	if rebootType == "" {
		rebootType = provider.RebootSoft
	}
	if rebootType != provider.RebootSoft && rebootType != provider.RebootHard {
		return nil, apierrors.NewValidation(
			fmt.Sprintf("reboot_type must be %s or %s", provider.RebootSoft, provider.RebootHard), "reboot_type")
	}

	unlock := s.locks.Lock(vmUUID)
	defer unlock()

	vm, err := s.getByUUID(ctx, vmUUID)
	if err != nil {
		return nil, err
	}
	previous := vm.State

	if !state.CanReboot(vm.State) {
		return nil, apierrors.NewStateConflict(vmUUID, string(vm.State), "reboot")
	}

	if rebootType == provider.RebootSoft {
		vm.State = state.StateReboot
	} else {
		vm.State = state.StateHardReboot
	}
	if err := s.store.VM().Update(ctx, vm); err != nil {
		return nil, fmt.Errorf("failed to persist transitional state: %w", err)
	}

	if vm.ProviderID != nil {
		if err := s.provider.RebootServer(ctx, *vm.ProviderID, rebootType); err != nil {
			vm.State = state.StateError
			vm.StateDescription = strPtr(err.Error())
			if updateErr := s.store.VM().Update(ctx, vm); updateErr != nil {
				logger.Errorw("failed to persist ERROR state after reboot failure",
					"uuid", vmUUID, "error", updateErr)
			}
			return nil, err
		}
	}

	vm.State = state.StateActive
	if err := s.store.VM().Update(ctx, vm); err != nil {
		return nil, fmt.Errorf("failed to persist rebooted VM: %w", err)
	}

	actionName := "reboot_soft"
	if rebootType == provider.RebootHard {
		actionName = "reboot_hard"
	}
	logger.Infow("rebooted VM", "uuid", vmUUID, "type", rebootType)
	s.publish(ctx, vm, actionName, string(previous))
	return action(vm, actionName, previous,
		fmt.Sprintf("VM %s has been rebooted (%s)", vm.Name, rebootType)), nil
}

// SyncVM overwrites local state with the provider's reported state. This is
// the only path by which local state catches up with out-of-band remote
// changes. A VM with no provider resource returns its current view.
func (s *VMService) SyncVM(ctx context.Context, vmUUID string) (*apiv1.VM, error) {
	logger := zap.S().Named("vm_service:sync_vm")
	unlock := s.locks.Lock(vmUUID)
	defer unlock()

	vm, err := s.getByUUID(ctx, vmUUID)
	if err != nil {
		return nil, err
	}

	if vm.ProviderID == nil {
		logger.Warnw("VM has no provider resource, nothing to sync", "uuid", vmUUID)
		return toView(vm), nil
	}

	server, err := s.provider.GetServer(ctx, *vm.ProviderID)
	if err != nil {
		logger.Errorw("failed to fetch remote state", "uuid", vmUUID, "error", err)
		return nil, err
	}

	vm.State = state.FromProviderStatus(server.Status)
	vm.IPAddress = optStr(server.IPAddress)
	vm.FloatingIP = optStr(server.FloatingIP)
	if err := s.store.VM().Update(ctx, vm); err != nil {
		return nil, fmt.Errorf("failed to persist synced state: %w", err)
	}

	logger.Infow("synced VM state", "uuid", vmUUID, "state", vm.State)
	return toView(vm), nil
}

func (s *VMService) getByUUID(ctx context.Context, vmUUID string) (*model.VM, error) {
	vm, err := s.store.VM().GetByUUID(ctx, vmUUID)
	if err != nil {
		if errors.Is(err, store.ErrVMNotFound) {
			return nil, apierrors.NewVMNotFound(vmUUID)
		}
		return nil, fmt.Errorf("failed to load VM record: %w", err)
	}
	return vm, nil
}

func (s *VMService) publish(ctx context.Context, vm *model.VM, actionName, previousState string) {
	err := s.publisher.PublishVMEvent(ctx, events.VMEvent{
		VMUUID:        vm.UUID,
		VMName:        vm.Name,
		Action:        actionName,
		PreviousState: previousState,
		CurrentState:  string(vm.State),
		Timestamp:     time.Now().UTC(),
	})
	if err != nil {
		zap.S().Named("vm_service:events").Warnw("failed to publish lifecycle event",
			"uuid", vm.UUID, "action", actionName, "error", err)
	}
}

func action(vm *model.VM, name string, previous state.VMState, message string) *apiv1.VMAction {
	return &apiv1.VMAction{
		VMUUID:        vm.UUID,
		Action:        name,
		Status:        "success",
		Message:       message,
		PreviousState: string(previous),
		CurrentState:  string(vm.State),
		Timestamp:     time.Now().UTC(),
	}
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func optStr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

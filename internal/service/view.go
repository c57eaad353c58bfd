package service

import (
	apiv1 "github.com/dcm-project/openstack-service-provider/api/v1"
	"github.com/dcm-project/openstack-service-provider/internal/state"
	"github.com/dcm-project/openstack-service-provider/internal/store/model"
)

// toView converts a persisted record into its external representation.
func toView(vm *model.VM) *apiv1.VM {
	return &apiv1.VM{
		UUID:             vm.UUID,
		Name:             vm.Name,
		State:            string(vm.State),
		StateDescription: vm.StateDescription,
		FlavorID:         vm.FlavorID,
		ImageID:          vm.ImageID,
		VCPUs:            vm.VCPUs,
		MemoryMB:         vm.MemoryMB,
		DiskGB:           vm.DiskGB,
		IPAddress:        vm.IPAddress,
		FloatingIP:       vm.FloatingIP,
		Description:      vm.Description,
		KeyName:          vm.KeyName,
		ProviderID:       vm.ProviderID,
		CreatedAt:        vm.CreatedAt,
		UpdatedAt:        vm.UpdatedAt,
		LaunchedAt:       vm.LaunchedAt,
		TerminatedAt:     vm.TerminatedAt,
		IsRunning:        state.IsRunning(vm.State),
		IsStopped:        state.IsStopped(vm.State),
		IsTransitioning:  state.IsTransitioning(vm.State),
	}
}

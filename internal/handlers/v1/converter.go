package v1

import (
	apiv1 "github.com/dcm-project/openstack-service-provider/api/v1"
	"github.com/dcm-project/openstack-service-provider/internal/provider"
)

func flavorView(f *provider.Flavor) apiv1.Flavor {
	view := apiv1.Flavor{
		ID:          f.ID,
		Name:        f.Name,
		VCPUs:       f.VCPUs,
		MemoryMB:    f.MemoryMB,
		DiskGB:      f.DiskGB,
		EphemeralGB: f.EphemeralGB,
		SwapMB:      f.SwapMB,
		IsPublic:    f.IsPublic,
	}
	if f.Description != "" {
		view.Description = &f.Description
	}
	return view
}

func imageView(img *provider.Image) apiv1.Image {
	view := apiv1.Image{
		ID:          img.ID,
		Name:        img.Name,
		Status:      img.Status,
		MinDiskGB:   img.MinDiskGB,
		MinMemoryMB: img.MinMemoryMB,
	}
	if img.SizeBytes != 0 {
		view.SizeBytes = &img.SizeBytes
	}
	if img.OSDistro != "" {
		view.OSDistro = &img.OSDistro
	}
	if img.OSVersion != "" {
		view.OSVersion = &img.OSVersion
	}
	if img.Architecture != "" {
		view.Architecture = &img.Architecture
	}
	if !img.CreatedAt.IsZero() {
		view.CreatedAt = &img.CreatedAt
	}
	if img.Description != "" {
		view.Description = &img.Description
	}
	return view
}

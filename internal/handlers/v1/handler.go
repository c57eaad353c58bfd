// Package v1 implements the HTTP handlers of the VM lifecycle API.
package v1

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	apiv1 "github.com/dcm-project/openstack-service-provider/api/v1"
	"github.com/dcm-project/openstack-service-provider/internal/apierrors"
	"github.com/dcm-project/openstack-service-provider/internal/provider"
	"github.com/dcm-project/openstack-service-provider/internal/service"
	"github.com/dcm-project/openstack-service-provider/internal/state"
	"github.com/dcm-project/openstack-service-provider/internal/store"
)

type Handler struct {
	vmService *service.VMService
	provider  provider.Client
	store     store.Store
	version   string
	simulated bool
	debug     bool
}

type Options struct {
	Version   string
	Simulated bool
	Debug     bool
}

func NewHandler(vmService *service.VMService, client provider.Client, st store.Store, opts Options) *Handler {
	return &Handler{
		vmService: vmService,
		provider:  client,
		store:     st,
		version:   opts.Version,
		simulated: opts.Simulated,
		debug:     opts.Debug,
	}
}

// Register mounts the API routes on router. Authentication middleware is
// applied by the caller around the /vms, /flavors and /images subtrees.
func (h *Handler) Register(router chi.Router) {
	router.Route("/vms", func(r chi.Router) {
		r.Post("/", h.CreateVM)
		r.Get("/", h.ListVMs)
		r.Get("/{uuid}", h.GetVM)
		r.Patch("/{uuid}", h.UpdateVM)
		r.Delete("/{uuid}", h.DeleteVM)
		r.Post("/{uuid}/start", h.StartVM)
		r.Post("/{uuid}/stop", h.StopVM)
		r.Post("/{uuid}/reboot", h.RebootVM)
		r.Post("/{uuid}/sync", h.SyncVM)
	})
	router.Route("/flavors", func(r chi.Router) {
		r.Get("/", h.ListFlavors)
		r.Get("/{id}", h.GetFlavor)
	})
	router.Route("/images", func(r chi.Router) {
		r.Get("/", h.ListImages)
		r.Get("/{id}", h.GetImage)
	})
}

// CreateVM (POST /vms)
func (h *Handler) CreateVM(w http.ResponseWriter, r *http.Request) {
	var req apiv1.CreateVMRequest
	if !decodeBody(w, r, &req) {
		return
	}

	vm, err := h.vmService.CreateVM(r.Context(), req)
	if err != nil {
		h.renderError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, vm)
}

// ListVMs (GET /vms)
func (h *Handler) ListVMs(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)

	var filter store.VMFilter
	if raw := r.URL.Query().Get("state"); raw != "" {
		parsed, ok := state.Parse(raw)
		if !ok {
			h.renderError(w, apierrors.NewValidation("Unknown VM state: "+raw, "state"))
			return
		}
		filter.State = &parsed
	}
	filter.NameContains = r.URL.Query().Get("name")

	list, err := h.vmService.ListVMs(r.Context(), filter, page, pageSize)
	if err != nil {
		h.renderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetVM (GET /vms/{uuid})
func (h *Handler) GetVM(w http.ResponseWriter, r *http.Request) {
	vm, err := h.vmService.GetVM(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		h.renderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vm)
}

// UpdateVM (PATCH /vms/{uuid})
func (h *Handler) UpdateVM(w http.ResponseWriter, r *http.Request) {
	var req apiv1.UpdateVMRequest
	if !decodeBody(w, r, &req) {
		return
	}

	vm, err := h.vmService.UpdateVM(r.Context(), chi.URLParam(r, "uuid"), req)
	if err != nil {
		h.renderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vm)
}

// DeleteVM (DELETE /vms/{uuid})
func (h *Handler) DeleteVM(w http.ResponseWriter, r *http.Request) {
	result, err := h.vmService.DeleteVM(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		h.renderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// StartVM (POST /vms/{uuid}/start)
func (h *Handler) StartVM(w http.ResponseWriter, r *http.Request) {
	result, err := h.vmService.StartVM(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		h.renderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// StopVM (POST /vms/{uuid}/stop)
func (h *Handler) StopVM(w http.ResponseWriter, r *http.Request) {
	result, err := h.vmService.StopVM(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		h.renderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// RebootVM (POST /vms/{uuid}/reboot)
func (h *Handler) RebootVM(w http.ResponseWriter, r *http.Request) {
	var req apiv1.RebootRequest
	if r.ContentLength > 0 {
		if !decodeBody(w, r, &req) {
			return
		}
	}

	result, err := h.vmService.RebootVM(r.Context(), chi.URLParam(r, "uuid"), req.RebootType)
	if err != nil {
		h.renderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SyncVM (POST /vms/{uuid}/sync)
func (h *Handler) SyncVM(w http.ResponseWriter, r *http.Request) {
	vm, err := h.vmService.SyncVM(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		h.renderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vm)
}

// ListFlavors (GET /flavors)
func (h *Handler) ListFlavors(w http.ResponseWriter, r *http.Request) {
	flavors, err := h.provider.ListFlavors(r.Context())
	if err != nil {
		h.renderError(w, err)
		return
	}
	items := make([]apiv1.Flavor, 0, len(flavors))
	for i := range flavors {
		items = append(items, flavorView(&flavors[i]))
	}
	writeJSON(w, http.StatusOK, apiv1.FlavorList{Items: items, Total: len(items)})
}

// GetFlavor (GET /flavors/{id})
func (h *Handler) GetFlavor(w http.ResponseWriter, r *http.Request) {
	flavor, err := h.provider.GetFlavor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.renderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, flavorView(flavor))
}

// ListImages (GET /images)
func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	images, err := h.provider.ListImages(r.Context())
	if err != nil {
		h.renderError(w, err)
		return
	}
	items := make([]apiv1.Image, 0, len(images))
	for i := range images {
		items = append(items, imageView(&images[i]))
	}
	writeJSON(w, http.StatusOK, apiv1.ImageList{Items: items, Total: len(items)})
}

// GetImage (GET /images/{id})
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	image, err := h.provider.GetImage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.renderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, imageView(image))
}

// Health (GET /health) reports store and provider reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	dbStatus := "connected"
	if err := h.store.CheckHealth(r.Context()); err != nil {
		dbStatus = "error: " + err.Error()
	}

	providerStatus := "connected"
	if h.simulated {
		providerStatus = "simulated"
	} else if err := h.provider.CheckConnection(r.Context()); err != nil {
		providerStatus = "error: " + err.Error()
	}

	status := "healthy"
	if dbStatus != "connected" {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, apiv1.Health{
		Status:    status,
		Version:   h.version,
		Timestamp: time.Now().UTC(),
		Database:  dbStatus,
		Provider:  providerStatus,
	})
}

// Root (GET /)
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, apiv1.RootInfo{
		Name:    "OpenStack VM Lifecycle API",
		Version: h.version,
	})
}

// pagination clamps page to >= 1 and page_size to [1,100].
func pagination(r *http.Request) (page, pageSize int) {
	page = 1
	pageSize = apiv1.DefaultPageSize

	if raw := r.URL.Query().Get("page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 1 {
			page = v
		}
	}
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 1 {
			pageSize = v
		}
	}
	if pageSize > apiv1.MaxPageSize {
		pageSize = apiv1.MaxPageSize
	}
	return page, pageSize
}

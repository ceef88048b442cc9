// Package http provides http transport for the picklist cache
package http

import (
	stdhttp "net/http"

	"picktrack/internal/modkit/httpkit"
	perr "picktrack/internal/platform/errors"
	"picktrack/internal/services/cache/domain"

	"github.com/go-chi/chi/v5"
)

type handlers struct {
	svc domain.Service
}

// Register mounts the cache routes
func Register(r httpkit.Router, s domain.Service) {
	h := &handlers{svc: s}

	httpkit.Get(r, "/identifier-lists/{key}", h.identifierList)
	httpkit.PutJSON[domain.IDsInput](r, "/identifier-lists/{key}", h.setIdentifierList)
	httpkit.PostJSON[domain.IDsInput](r, "/identifier-lists/{key}/merge", h.mergeIdentifierList)

	httpkit.Get(r, "/line-items/{key}", h.lineItems)
	httpkit.PutJSON[domain.LineItemsInput](r, "/line-items/{key}", h.setLineItems)
	httpkit.PostJSON[domain.LineItemsInput](r, "/line-items/{key}/merge", h.mergeLineItems)
	httpkit.PostJSON[domain.LineItemsInput](r, "/line-items/{key}/changes", h.detectChanges)

	httpkit.Get(r, "/status-snapshots/{key}", h.statusSnapshot)
	httpkit.PutJSON[domain.SnapshotInput](r, "/status-snapshots/{key}", h.setStatusSnapshot)
	httpkit.PostJSON[domain.SnapshotInput](r, "/status-snapshots/{key}/merge", h.mergeStatusSnapshot)

	httpkit.Get(r, "/all-ids", h.allIDs)
	httpkit.PutJSON[domain.IDsInput](r, "/all-ids", h.setAllIDs)
	httpkit.PostJSON[domain.IDsInput](r, "/all-ids/merge", h.mergeAllIDs)

	httpkit.Get(r, "/tables/{table}/keys", h.keys)
	httpkit.Delete(r, "/tables/{table}/keys/{key}", h.invalidate)
	httpkit.Delete(r, "/tables", h.invalidateAll)

	httpkit.Get(r, "/analytics", h.analytics)
	httpkit.Get(r, "/freshness", h.freshness)
}

func key(r *stdhttp.Request) string { return chi.URLParam(r, "key") }

func miss(table, k string) error {
	return perr.WithField(perr.NotFoundf("%s %q not cached", table, k), "key")
}

// swagger:route GET /cache/identifier-lists/{key} Cache cacheIdentifierList
// @Summary Processed identifiers for a picklist
// @Tags cache
// @Produce json
// @Param key path string true "picklist id"
// @Success 200 {object} domain.EntryView[[]string] "ok"
// @Failure 404 {object} httpkit.Envelope "absent or expired"
// @Router /cache/identifier-lists/{key} [get]
func (h *handlers) identifierList(r *stdhttp.Request) (any, error) {
	v, ok := h.svc.IdentifierList(key(r))
	if !ok {
		return nil, miss(domain.TableIdentifierLists, key(r))
	}
	return v, nil
}

// swagger:route PUT /cache/identifier-lists/{key} Cache cacheSetIdentifierList
// @Summary Replace the processed identifiers for a picklist
// @Tags cache
// @Accept json
// @Produce json
// @Param key path string true "picklist id"
// @Param body body domain.IDsInput true "identifiers"
// @Success 200 {object} httpkit.Envelope "ok"
// @Failure 400 {object} httpkit.Envelope "invalid body"
// @Router /cache/identifier-lists/{key} [put]
func (h *handlers) setIdentifierList(r *stdhttp.Request, in domain.IDsInput) (any, error) {
	h.svc.SetIdentifierList(key(r), in.IDs)
	return nil, nil
}

// swagger:route POST /cache/identifier-lists/{key}/merge Cache cacheMergeIdentifierList
// @Summary Union identifiers into the cached list
// @Tags cache
// @Accept json
// @Produce json
// @Param key path string true "picklist id"
// @Param body body domain.IDsInput true "identifiers"
// @Success 200 {object} httpkit.Envelope "ok"
// @Router /cache/identifier-lists/{key}/merge [post]
func (h *handlers) mergeIdentifierList(r *stdhttp.Request, in domain.IDsInput) (any, error) {
	h.svc.MergeIdentifierList(key(r), in.IDs)
	return nil, nil
}

// swagger:route GET /cache/line-items/{key} Cache cacheLineItems
// @Summary Cached line items for a picklist
// @Tags cache
// @Produce json
// @Param key path string true "picklist id"
// @Success 200 {object} domain.EntryView[[]domain.LineItem] "ok"
// @Failure 404 {object} httpkit.Envelope "absent or expired"
// @Router /cache/line-items/{key} [get]
func (h *handlers) lineItems(r *stdhttp.Request) (any, error) {
	v, ok := h.svc.LineItems(key(r))
	if !ok {
		return nil, miss(domain.TableLineItems, key(r))
	}
	return v, nil
}

// swagger:route PUT /cache/line-items/{key} Cache cacheSetLineItems
// @Summary Replace the line items for a picklist
// @Tags cache
// @Accept json
// @Produce json
// @Param key path string true "picklist id"
// @Param body body domain.LineItemsInput true "line items"
// @Success 200 {object} httpkit.Envelope "ok"
// @Failure 400 {object} httpkit.Envelope "invalid body"
// @Router /cache/line-items/{key} [put]
func (h *handlers) setLineItems(r *stdhttp.Request, in domain.LineItemsInput) (any, error) {
	h.svc.SetLineItems(key(r), in.Items)
	return nil, nil
}

// swagger:route POST /cache/line-items/{key}/merge Cache cacheMergeLineItems
// @Summary Merge line items by name and variant
// @Tags cache
// @Accept json
// @Produce json
// @Param key path string true "picklist id"
// @Param body body domain.LineItemsInput true "changed items"
// @Success 200 {object} httpkit.Envelope "ok"
// @Failure 400 {object} httpkit.Envelope "invalid body"
// @Router /cache/line-items/{key}/merge [post]
func (h *handlers) mergeLineItems(r *stdhttp.Request, in domain.LineItemsInput) (any, error) {
	h.svc.MergeLineItems(key(r), in.Items)
	return nil, nil
}

// swagger:route POST /cache/line-items/{key}/changes Cache cacheDetectChanges
// @Summary Compare fetched line items with the cached ones
// @Tags cache
// @Accept json
// @Produce json
// @Param key path string true "picklist id"
// @Param body body domain.LineItemsInput true "fetched items"
// @Success 200 {object} domain.ChangeSet "ok"
// @Router /cache/line-items/{key}/changes [post]
func (h *handlers) detectChanges(r *stdhttp.Request, in domain.LineItemsInput) (any, error) {
	return h.svc.DetectChanges(key(r), in.Items), nil
}

// swagger:route GET /cache/status-snapshots/{key} Cache cacheStatusSnapshot
// @Summary Last known status of a picklist
// @Tags cache
// @Produce json
// @Param key path string true "picklist id"
// @Success 200 {object} domain.EntryView[domain.StatusSnapshot] "ok"
// @Failure 404 {object} httpkit.Envelope "absent or expired"
// @Router /cache/status-snapshots/{key} [get]
func (h *handlers) statusSnapshot(r *stdhttp.Request) (any, error) {
	v, ok := h.svc.StatusSnapshot(key(r))
	if !ok {
		return nil, miss(domain.TableStatusSnapshots, key(r))
	}
	return v, nil
}

// swagger:route PUT /cache/status-snapshots/{key} Cache cacheSetStatusSnapshot
// @Summary Replace the status snapshot for a picklist
// @Tags cache
// @Accept json
// @Produce json
// @Param key path string true "picklist id"
// @Param body body domain.SnapshotInput true "snapshot"
// @Success 200 {object} httpkit.Envelope "ok"
// @Failure 400 {object} httpkit.Envelope "invalid body"
// @Router /cache/status-snapshots/{key} [put]
func (h *handlers) setStatusSnapshot(r *stdhttp.Request, in domain.SnapshotInput) (any, error) {
	h.svc.SetStatusSnapshot(key(r), in.Snapshot)
	return nil, nil
}

// swagger:route POST /cache/status-snapshots/{key}/merge Cache cacheMergeStatusSnapshot
// @Summary Replace the snapshot only when it changed
// @Tags cache
// @Accept json
// @Produce json
// @Param key path string true "picklist id"
// @Param body body domain.SnapshotInput true "snapshot"
// @Success 200 {object} httpkit.Envelope "ok"
// @Failure 400 {object} httpkit.Envelope "invalid body"
// @Router /cache/status-snapshots/{key}/merge [post]
func (h *handlers) mergeStatusSnapshot(r *stdhttp.Request, in domain.SnapshotInput) (any, error) {
	h.svc.MergeStatusSnapshot(key(r), in.Snapshot)
	return nil, nil
}

// swagger:route GET /cache/all-ids Cache cacheAllIDs
// @Summary Every identifier known across picklists
// @Tags cache
// @Produce json
// @Success 200 {object} domain.EntryView[[]string] "ok"
// @Failure 404 {object} httpkit.Envelope "absent or expired"
// @Router /cache/all-ids [get]
func (h *handlers) allIDs(_ *stdhttp.Request) (any, error) {
	v, ok := h.svc.AllIDs()
	if !ok {
		return nil, miss(domain.TableAllIDs, domain.AllIDsKey)
	}
	return v, nil
}

// swagger:route PUT /cache/all-ids Cache cacheSetAllIDs
// @Summary Replace the all-ids list
// @Tags cache
// @Accept json
// @Produce json
// @Param body body domain.IDsInput true "identifiers"
// @Success 200 {object} httpkit.Envelope "ok"
// @Failure 400 {object} httpkit.Envelope "invalid body"
// @Router /cache/all-ids [put]
func (h *handlers) setAllIDs(_ *stdhttp.Request, in domain.IDsInput) (any, error) {
	h.svc.SetAllIDs(in.IDs)
	return nil, nil
}

// swagger:route POST /cache/all-ids/merge Cache cacheMergeAllIDs
// @Summary Union identifiers into the all-ids list
// @Tags cache
// @Accept json
// @Produce json
// @Param body body domain.IDsInput true "identifiers"
// @Success 200 {object} httpkit.Envelope "ok"
// @Failure 400 {object} httpkit.Envelope "invalid body"
// @Router /cache/all-ids/merge [post]
func (h *handlers) mergeAllIDs(_ *stdhttp.Request, in domain.IDsInput) (any, error) {
	h.svc.MergeAllIDs(in.IDs)
	return nil, nil
}

// swagger:route GET /cache/tables/{table}/keys Cache cacheKeys
// @Summary Keys held by one table
// @Tags cache
// @Produce json
// @Param table path string true "identifier_lists, line_items, status_snapshots or all_ids"
// @Success 200 {object} httpkit.Envelope "ok"
// @Failure 422 {object} httpkit.Envelope "unknown table"
// @Router /cache/tables/{table}/keys [get]
func (h *handlers) keys(r *stdhttp.Request) (any, error) {
	return h.svc.Keys(chi.URLParam(r, "table"))
}

// swagger:route DELETE /cache/tables/{table}/keys/{key} Cache cacheInvalidate
// @Summary Drop one cached entry
// @Tags cache
// @Produce json
// @Param table path string true "identifier_lists, line_items, status_snapshots or all_ids"
// @Param key path string true "picklist id"
// @Success 204 "dropped"
// @Failure 422 {object} httpkit.Envelope "unknown table"
// @Router /cache/tables/{table}/keys/{key} [delete]
func (h *handlers) invalidate(r *stdhttp.Request) (any, error) {
	if err := h.svc.Invalidate(chi.URLParam(r, "table"), key(r)); err != nil {
		return nil, err
	}
	return httpkit.NoContent(), nil
}

// swagger:route DELETE /cache/tables Cache cacheInvalidateAll
// @Summary Empty every table and reset analytics
// @Tags cache
// @Success 204 "emptied"
// @Router /cache/tables [delete]
func (h *handlers) invalidateAll(_ *stdhttp.Request) (any, error) {
	h.svc.InvalidateAll()
	return httpkit.NoContent(), nil
}

// swagger:route GET /cache/analytics Cache cacheAnalytics
// @Summary Hit rates, refill latency and recommendations
// @Tags cache
// @Produce json
// @Success 200 {object} domain.Report "ok"
// @Router /cache/analytics [get]
func (h *handlers) analytics(_ *stdhttp.Request) (any, error) {
	return h.svc.Analytics(), nil
}

// swagger:route GET /cache/freshness Cache cacheFreshness
// @Summary Live entries per freshness band for each table
// @Tags cache
// @Produce json
// @Success 200 {object} domain.FreshnessReport "ok"
// @Router /cache/freshness [get]
func (h *handlers) freshness(_ *stdhttp.Request) (any, error) {
	return h.svc.Freshness(), nil
}

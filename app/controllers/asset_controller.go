package controllers

import (
	"context"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/internal/pkg/objectstore"
	"github.com/assettracer/assettracer/internal/pkg/photo"
	"github.com/assettracer/assettracer/internal/pkg/reporting"
	"github.com/assettracer/assettracer/internal/pkg/response"
)

const photoURLTTL = 15 * time.Minute

// HandleListAssets returns a page of assets. Supports q and status filters.
func HandleListAssets(c *fiber.Ctx) error {
	opts := listOptions(c)
	assets, total, err := repos().Asset.List(orgID(c), opts)
	if err != nil {
		return apiError(c, err)
	}
	return page(c, assets, total, opts)
}

// HandleGetAsset returns one asset with its photos.
func HandleGetAsset(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, err)
	}
	asset, err := repos().Asset.GetByID(orgID(c), id)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(asset)
}

// HandleCreateAsset creates an asset within the maxAssets quota.
func HandleCreateAsset(c *fiber.Ctx) error {
	var asset models.Asset
	if err := bindJSON(c, &asset); err != nil {
		return apiError(c, err)
	}
	asset.ID = 0
	asset.OrganizationID = orgID(c)
	asset.Photos = nil

	if err := repos().Asset.Create(c.UserContext(), &asset); err != nil {
		return apiError(c, err)
	}
	reporting.Invalidate(asset.OrganizationID)
	return c.Status(fiber.StatusCreated).JSON(asset)
}

// HandleUpdateAsset applies the fields present in the body.
func HandleUpdateAsset(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, err)
	}
	r := repos()
	asset, err := r.Asset.GetByID(orgID(c), id)
	if err != nil {
		return apiError(c, err)
	}
	if err := bindJSON(c, asset); err != nil {
		return apiError(c, err)
	}
	asset.ID, asset.OrganizationID = id, orgID(c)

	if err := r.Asset.Update(asset); err != nil {
		return apiError(c, err)
	}
	reporting.Invalidate(asset.OrganizationID)
	return c.JSON(asset)
}

// HandleDeleteAsset soft deletes an asset, freeing a maxAssets slot.
func HandleDeleteAsset(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, err)
	}
	if err := repos().Asset.Delete(orgID(c), id); err != nil {
		return apiError(c, err)
	}
	reporting.Invalidate(orgID(c))
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleUploadAssetPhoto stores an uploaded photo and its thumbnail in
// object storage. The first photo becomes the asset thumbnail.
func HandleUploadAssetPhoto(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, err)
	}
	store := objectstore.Default()
	if !store.Enabled() {
		return response.Error(c, fiber.StatusServiceUnavailable, "storage_disabled", "object storage is not configured")
	}

	r := repos()
	asset, err := r.Asset.GetByID(orgID(c), id)
	if err != nil {
		return apiError(c, err)
	}

	fh, err := c.FormFile("photo")
	if err != nil {
		return response.Error(c, fiber.StatusBadRequest, "invalid_argument", "photo file is required")
	}
	if fh.Size > photo.MaxUploadSize {
		return apiError(c, photo.ErrTooLarge)
	}
	f, err := fh.Open()
	if err != nil {
		return apiError(c, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, photo.MaxUploadSize+1))
	if err != nil {
		return apiError(c, err)
	}

	processed, err := photo.Process(fh.Filename, data)
	if err != nil {
		return apiError(c, err)
	}

	base := uuid.NewString()
	p := &models.AssetPhoto{
		OrganizationID: asset.OrganizationID,
		AssetID:        asset.ID,
		ObjectKey:      objectstore.PhotoKey(asset.OrganizationID, asset.ID, base+processed.Extension),
		ThumbnailKey:   objectstore.PhotoKey(asset.OrganizationID, asset.ID, base+"_thumb.jpg"),
		ContentType:    processed.ContentType,
		FileSize:       int64(len(data)),
		Width:          processed.Width,
		Height:         processed.Height,
		TakenAt:        processed.TakenAt,
		Latitude:       processed.Latitude,
		Longitude:      processed.Longitude,
	}

	ctx := c.UserContext()
	if err := store.Put(ctx, p.ObjectKey, data, p.ContentType); err != nil {
		return apiError(c, err)
	}
	if err := store.Put(ctx, p.ThumbnailKey, processed.Thumbnail, "image/jpeg"); err != nil {
		cleanupObjects(ctx, store, p.ObjectKey)
		return apiError(c, err)
	}
	if err := r.Asset.AddPhoto(p); err != nil {
		cleanupObjects(ctx, store, p.ObjectKey, p.ThumbnailKey)
		return apiError(c, err)
	}
	if asset.ThumbnailKey == "" {
		asset.ThumbnailKey = p.ThumbnailKey
		if err := r.Asset.Update(asset); err != nil {
			log.Warnf("[Assets] Failed to set thumbnail of asset %d: %v", asset.ID, err)
		}
	}

	out := fiber.Map{"photo": p}
	if url, err := store.PresignGet(ctx, p.ObjectKey, photoURLTTL); err == nil {
		out["url"] = url
	}
	if url, err := store.PresignGet(ctx, p.ThumbnailKey, photoURLTTL); err == nil {
		out["thumbnail_url"] = url
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

func cleanupObjects(ctx context.Context, store objectstore.Store, keys ...string) {
	for _, k := range keys {
		if err := store.Delete(ctx, k); err != nil {
			log.Warnf("[Assets] Failed to remove orphaned object %s: %v", k, err)
		}
	}
}

// HandleGetAssetROI returns revenue, cost and ROI of one asset.
func HandleGetAssetROI(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, err)
	}
	rows, err := reporting.NewFromDB().ROI(orgID(c), id)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(rows[0])
}

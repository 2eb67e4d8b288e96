package catalog

import "errors"

var (
	ErrProductNotFound  = errors.New("catalog.errors.product_not_found")
	ErrDuplicateSKU     = errors.New("catalog.errors.duplicate_sku")
	ErrInvalidProduct   = errors.New("catalog.errors.invalid_product")
	ErrFailedToPersist  = errors.New("catalog.errors.failed_to_persist")
	ErrInvalidImageFile = errors.New("catalog.errors.invalid_image_file")
)

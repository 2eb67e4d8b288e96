package customer

import "errors"

var (
	ErrCustomerNotFound = errors.New("customer.errors.customer_not_found")
	ErrGroupNotFound    = errors.New("customer.errors.group_not_found")
	ErrDuplicatePhone   = errors.New("customer.errors.duplicate_phone")
	ErrDuplicateGroup   = errors.New("customer.errors.duplicate_group")
	ErrGroupNotEmpty    = errors.New("customer.errors.group_not_empty")
	ErrFailedToPersist  = errors.New("customer.errors.failed_to_persist")
)

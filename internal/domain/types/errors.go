package types

import "errors"

var (
	ErrMissingDriverID  = errors.New("driver_id must be provided")
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90 degrees")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180 degrees")
	ErrInvalidHeading   = errors.New("heading must be between 0 and 360 degrees")

	ErrLocationNotFound   = errors.New("no location found for driver")
	ErrSyncStatusNotFound = errors.New("no sync status found for driver")
	ErrEmptyBatch         = errors.New("locations must be a non-empty list")

	ErrAuthorityRejected    = errors.New("remote authority rejected the update")
	ErrAuthorityUnavailable = errors.New("remote authority unavailable")
)

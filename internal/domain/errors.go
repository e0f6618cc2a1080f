package domain

import "errors"

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrBackupNotFound      = errors.New("backup transaction not found")
	ErrInvalidOrdering     = errors.New("ordering is not a permutation of the current waypoint keys")
	ErrSubmitBlocked       = errors.New("waypoints are not ready to be submitted")
	ErrTooManyWaypoints    = errors.New("maximum number of waypoints reached")
	ErrWaypointIndex       = errors.New("waypoint index out of range")
	ErrSessionClosed       = errors.New("distance request session is closed")
	ErrAddressNotFound     = errors.New("address could not be geocoded")
)

package domain

import (
	"errors"
	"fmt"
)

// Failure kinds. Callers match them with errors.Is.
var (
	ErrUnauthorized      = errors.New("invalid user")
	ErrForbidden         = errors.New("invalid permissions")
	ErrAdminSelfDemotion = fmt.Errorf("%w: administrators cannot remove their own admin permission", ErrForbidden)
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidName       = fmt.Errorf("%w: name must be between %d and %d characters", ErrInvalidInput, MinNameLength, MaxNameLength)
	ErrPayloadTooLarge   = errors.New("image exceeds the maximum allowed size")
	ErrDecodeFailed      = errors.New("image payload could not be decoded")
	ErrUploadFailed      = errors.New("blob upload failed")
	ErrBlobDeleteFailed  = errors.New("blob delete failed")
	ErrStoreWriteFailed  = errors.New("user store write failed")
)

// Operation failures. These wrap one of the kinds above so both the
// operation and the cause survive errors.Is.
var (
	ErrImageUploadFailed     = errors.New("error uploading image")
	ErrUpdateUserFailed      = errors.New("error updating user")
	ErrDeleteUserFailed      = errors.New("error deleting user")
	ErrDeleteUserImageFailed = errors.New("error deleting user image")
)

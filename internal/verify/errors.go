package verify

import "errors"

var (
	// ErrConnection means the profile could not be fetched, usually bad credentials.
	ErrConnection = errors.New("connection test failed, please verify credentials (agent credentials will not work)")
	// ErrOrganization means the organization could not be listed.
	ErrOrganization = errors.New("organization test failed, please verify organization ID and credentials (agent credentials will not work)")
	// ErrApplicationNotFound means the configured application could not be resolved to exactly one ID.
	ErrApplicationNotFound = errors.New("application not found")
	// ErrNoOpenFilter means the quick filter response had no OPEN count.
	ErrNoOpenFilter = errors.New("vulnerability quick filters did not include an OPEN count")
)

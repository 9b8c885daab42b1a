// Package tenantkey converts a tenant's numeric app id to the opaque key used
// in callback URLs and back.
//
// A key is the base58 (Bitcoin alphabet) encoding of the 8-byte little-endian
// representation of the app id.
package tenantkey

import (
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"

	"pipehub/internal/domain/entity"
)

const appIDSize = 8

// Encode returns the tenant key for appID.
func Encode(appID int64) string {
	var buf [appIDSize]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(appID))
	return base58.Encode(buf[:])
}

// Decode returns the app id encoded in key.
// The returned error wraps entity.ErrInvalidKey.
func Decode(key string) (int64, error) {
	if key == "" {
		return 0, fmt.Errorf("%w: empty key", entity.ErrInvalidKey)
	}

	raw, err := base58.Decode(key)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", entity.ErrInvalidKey, err)
	}
	if len(raw) != appIDSize {
		return 0, fmt.Errorf("%w: decoded %d bytes, want %d", entity.ErrInvalidKey, len(raw), appIDSize)
	}

	return int64(binary.LittleEndian.Uint64(raw)), nil
}

package cache

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	ProvidersListPrefix        = "providers-list"
	ProviderAppointmentsPrefix = "provider-appointments"
)

func ProvidersListKey(userID uuid.UUID) string {
	return ProvidersListPrefix + ":" + userID.String()
}

// ProviderAppointmentsKey names the cached schedule of one provider day. Month and day are not zero padded.
func ProviderAppointmentsKey(providerID uuid.UUID, year int, month time.Month, day int) string {
	return fmt.Sprintf("%s:%s:%d-%d-%d", ProviderAppointmentsPrefix, providerID, year, int(month), day)
}
